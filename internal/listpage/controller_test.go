package listpage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"posadmin/internal/api"
	"posadmin/internal/api/apitest"
	"posadmin/internal/collection"
	"posadmin/internal/model"
	"posadmin/internal/prefs"
	"posadmin/internal/viewstate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terms(n int) []model.Entity {
	out := make([]model.Entity, n)
	for i := range out {
		out[i] = model.Entity{ID: fmt.Sprint(i + 1), Name: fmt.Sprintf("Term %02d", i+1)}
	}
	return out
}

func idRange(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprint(i))
	}
	return out
}

func newTermsPage(t *testing.T, items ...model.Entity) (*Controller, *apitest.Server, *collection.Store) {
	t.Helper()
	srv := apitest.NewServer().Seed(model.KindPaymentTerms, items...)
	store := collection.New(srv, model.KindPaymentTerms, nil)
	c := New(context.Background(), Options{Kind: model.KindPaymentTerms, Store: store, Workers: 2})
	require.NoError(t, c.Load(context.Background()))
	return c, srv, store
}

func storeNames(s *collection.Store) []string {
	var out []string
	for _, e := range s.Snapshot() {
		out = append(out, e.Name)
	}
	return out
}

func storeIDs(s *collection.Store) []string {
	var out []string
	for _, e := range s.Snapshot() {
		out = append(out, e.ID)
	}
	return out
}

func TestBulkDelete_FailedIDsStaySelected(t *testing.T) {
	c, srv, store := newTermsPage(t, terms(5)...)
	srv.FailOn(model.KindPaymentTerms, apitest.OpDelete, "3", &api.StatusError{Code: 409, Message: "term in use"})

	c.Dispatch(viewstate.SetSelected(idRange(1, 5), true))
	out := c.BulkDelete(context.Background())

	assert.Equal(t, []string{"1", "2", "4", "5"}, out.Succeeded)
	assert.Equal(t, []string{"3"}, out.Failed)

	st := c.State()
	assert.True(t, st.Selected.Equal(model.NewIDSet("3")))
	assert.Equal(t, []string{"3"}, storeIDs(store))
	assert.False(t, st.Submitting)
	assert.True(t, st.Banner.Open)
	assert.Equal(t, viewstate.BannerError, st.Banner.Kind)
	assert.Equal(t, "Deleted 4 of 5 payment terms", st.Banner.Message)
}

func TestBulkDelete_StepsBackFromEmptiedPage(t *testing.T) {
	c, _, store := newTermsPage(t, terms(30)...)

	c.Dispatch(viewstate.SetCurrentPage{Page: 3})
	require.Equal(t, 3, c.State().CurrentPage)

	c.Dispatch(viewstate.SetSelected(idRange(16, 30), true))
	out := c.BulkDelete(context.Background())
	require.Len(t, out.Succeeded, 15)

	st := c.State()
	assert.Equal(t, 2, st.CurrentPage)
	assert.Equal(t, 15, st.TotalFiltered)
	assert.Equal(t, 0, st.Selected.Len())
	assert.Len(t, store.Snapshot(), 15)
	assert.Equal(t, viewstate.BannerSuccess, st.Banner.Kind)
	assert.Equal(t, "Deleted 15 payment terms", st.Banner.Message)

	view := c.View()
	assert.Equal(t, idRange(11, 15), view.PageIDs)
}

func TestBulkDelete_AllFailedReportsFirstError(t *testing.T) {
	c, srv, _ := newTermsPage(t, terms(2)...)
	srv.FailOn(model.KindPaymentTerms, apitest.OpDelete, "", &api.StatusError{Code: 500, Message: "database is read-only"})

	c.Dispatch(viewstate.SetSelected(idRange(1, 2), true))
	c.BulkDelete(context.Background())

	st := c.State()
	assert.Equal(t, 2, st.Selected.Len())
	assert.Equal(t, "Could not delete 2 payment terms: database is read-only", st.Banner.Message)
}

func TestBulkDuplicate_ContinuesPastFailuresAndKeepsSelection(t *testing.T) {
	c, srv, store := newTermsPage(t,
		model.Entity{ID: "1", Name: "Net 30"},
		model.Entity{ID: "2", Name: "Net 60"},
		model.Entity{ID: "3", Name: "Net 90"},
	)
	srv.FailOn(model.KindPaymentTerms, apitest.OpCreate, "Net 60 (Copy)", errors.New("boom"))

	c.Dispatch(viewstate.SetSelected(idRange(1, 3), true))
	out := c.BulkDuplicate(context.Background())

	assert.Equal(t, []string{"1", "3"}, out.Succeeded)
	assert.Equal(t, []string{"2"}, out.Failed)
	assert.Contains(t, storeNames(store), "Net 30 (Copy)")
	assert.Contains(t, storeNames(store), "Net 90 (Copy)")
	assert.NotContains(t, storeNames(store), "Net 60 (Copy)")

	st := c.State()
	assert.True(t, st.Selected.Equal(model.NewIDSet("1", "2", "3")))
	assert.Equal(t, "Duplicated 2 of 3 payment terms", st.Banner.Message)
}

func TestBulkDuplicate_EmptySelectionIsNoop(t *testing.T) {
	c, srv, _ := newTermsPage(t, terms(2)...)
	calls := len(srv.Calls())

	out := c.BulkDuplicate(context.Background())

	assert.Empty(t, out.Requested)
	assert.Len(t, srv.Calls(), calls)
	assert.False(t, c.State().Banner.Open)
}

func TestSaveInline(t *testing.T) {
	t.Run("empty name stays inline without banner", func(t *testing.T) {
		c, srv, _ := newTermsPage(t, terms(1)...)
		c.StartAdd()

		err := c.SaveInline(context.Background(), "   ")

		var ve collection.ValidationError
		require.ErrorAs(t, err, &ve)
		st := c.State()
		assert.Equal(t, viewstate.InlineAdding, st.Inline.Mode)
		assert.Equal(t, "Name is required", st.Inline.Error)
		assert.False(t, st.Banner.Open)
		assert.False(t, st.Submitting)
		for _, call := range srv.Calls() {
			assert.NotEqual(t, apitest.OpCreate, call.Op)
		}
	})

	t.Run("create closes session with banner", func(t *testing.T) {
		c, _, store := newTermsPage(t, terms(1)...)
		c.StartAdd()

		require.NoError(t, c.SaveInline(context.Background(), " Net 45 "))

		st := c.State()
		assert.Equal(t, viewstate.InlineIdle, st.Inline.Mode)
		assert.Equal(t, viewstate.BannerSuccess, st.Banner.Kind)
		assert.Equal(t, `Created payment term "Net 45"`, st.Banner.Message)
		assert.Contains(t, storeNames(store), "Net 45")
		assert.Equal(t, 2, st.TotalFiltered)
	})

	t.Run("rename", func(t *testing.T) {
		c, _, store := newTermsPage(t, terms(2)...)
		c.StartEdit("2")

		require.NoError(t, c.SaveInline(context.Background(), "Cash"))

		got, ok := store.Lookup("2")
		require.True(t, ok)
		assert.Equal(t, "Cash", got.Name)
		assert.Equal(t, `Saved payment term "Cash"`, c.State().Banner.Message)
	})

	t.Run("remote failure keeps session open", func(t *testing.T) {
		c, srv, _ := newTermsPage(t, terms(1)...)
		srv.FailOn(model.KindPaymentTerms, apitest.OpCreate, "Dup", &api.StatusError{Code: 422, Message: "name taken"})
		c.StartAdd()

		require.Error(t, c.SaveInline(context.Background(), "Dup"))

		st := c.State()
		assert.Equal(t, viewstate.InlineAdding, st.Inline.Mode)
		assert.Equal(t, viewstate.BannerError, st.Banner.Kind)
		assert.Equal(t, "Could not save payment term: name taken", st.Banner.Message)
	})

	t.Run("idle is a no-op", func(t *testing.T) {
		c, srv, _ := newTermsPage(t, terms(1)...)
		calls := len(srv.Calls())
		require.NoError(t, c.SaveInline(context.Background(), "x"))
		assert.Len(t, srv.Calls(), calls)
	})
}

func TestRequestDelete(t *testing.T) {
	c, _, _ := newTermsPage(t, terms(3)...)

	st := c.RequestDelete()
	assert.False(t, st.Confirm.Open)
	assert.Equal(t, viewstate.BannerError, st.Banner.Kind)

	c.Dispatch(viewstate.ToggleOne("2"))
	st = c.RequestDelete()
	assert.True(t, st.Confirm.Open)
	assert.Equal(t, viewstate.PendingDelete, st.Confirm.Pending)

	st = c.CancelConfirm()
	assert.False(t, st.Confirm.Open)
	assert.Equal(t, 1, st.Selected.Len())
}

func TestConfirm_ClosesModalBeforeDeleting(t *testing.T) {
	c, srv, _ := newTermsPage(t, terms(3)...)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv.OnCall(func(call apitest.Call) {
		if call.Op != apitest.OpDelete {
			return
		}
		once.Do(func() { close(entered) })
		<-release
	})

	c.Dispatch(viewstate.ToggleOne("1"))
	c.RequestDelete()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Confirm(context.Background())
		assert.NoError(t, err)
	}()

	<-entered
	st := c.State()
	assert.False(t, st.Confirm.Open)
	assert.True(t, st.Submitting)

	close(release)
	<-done
	assert.False(t, c.State().Submitting)
	assert.Equal(t, "Deleted 1 payment term", c.State().Banner.Message)
}

func TestConfirm_NothingPending(t *testing.T) {
	c, _, _ := newTermsPage(t, terms(1)...)
	_, err := c.Confirm(context.Background())
	assert.Error(t, err)
}

func TestClose_IgnoresLateResults(t *testing.T) {
	c, srv, store := newTermsPage(t, terms(3)...)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv.OnCall(func(call apitest.Call) {
		if call.Op != apitest.OpDelete {
			return
		}
		once.Do(func() { close(entered) })
		<-release
	})

	c.Dispatch(viewstate.SetSelected(idRange(1, 2), true))
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.BulkDelete(context.Background())
	}()

	<-entered
	c.Close()
	close(release)
	<-done

	st := c.State()
	assert.True(t, c.Closed())
	assert.Equal(t, 2, st.Selected.Len())
	assert.False(t, st.Banner.Open)
	assert.Equal(t, []string{"3"}, storeIDs(store))
}

func TestLoad_FailureShowsBanner(t *testing.T) {
	srv := apitest.NewServer()
	srv.FailOn(model.KindPaymentTerms, apitest.OpList, "", &api.StatusError{Code: 503, Message: "maintenance"})
	c := New(context.Background(), Options{Kind: model.KindPaymentTerms, Store: collection.New(srv, model.KindPaymentTerms, nil)})

	err := c.Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Could not load payment terms: maintenance", c.State().Banner.Message)
}

func TestLoad_FailureKeepsSavedPage(t *testing.T) {
	ctx := context.Background()
	p, err := prefs.Open(ctx, filepath.Join(t.TempDir(), prefs.FileName), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	require.NoError(t, p.SavePage(ctx, model.KindPaymentTerms, 3))

	srv := apitest.NewServer().Seed(model.KindPaymentTerms, terms(30)...)
	srv.FailOn(model.KindPaymentTerms, apitest.OpList, "", &api.StatusError{Code: 503, Message: "maintenance"})
	opts := Options{Kind: model.KindPaymentTerms, Store: collection.New(srv, model.KindPaymentTerms, nil), Prefs: p}
	c := New(ctx, opts)
	require.Equal(t, 3, c.State().CurrentPage)

	require.Error(t, c.Load(ctx))
	st := c.State()
	assert.Equal(t, 3, st.CurrentPage)
	assert.Equal(t, -1, st.TotalFiltered)
	assert.Equal(t, "Could not load payment terms: maintenance", st.Banner.Message)
	assert.Equal(t, 3, p.LoadList(ctx, model.KindPaymentTerms).Page)

	// Once the backend is back the saved page is still there.
	srv.ClearFailures()
	c.Close()
	opts.Store = collection.New(srv, model.KindPaymentTerms, nil)
	again := New(ctx, opts)
	require.NoError(t, again.Load(ctx))
	assert.Equal(t, 3, again.State().CurrentPage)
	assert.Equal(t, idRange(21, 30), again.View().PageIDs)
}

func sampleApps() []model.Entity {
	return []model.Entity{
		{ID: "1", Name: "Invoices", CategoryID: "10"},
		{ID: "2", Name: "Quotes", CategoryID: "10"},
		{ID: "3", Name: "Users", CategoryID: "20"},
		{ID: "4", Name: "Loose"},
	}
}

func newAppsPage(t *testing.T, p *prefs.Store) *Controller {
	t.Helper()
	srv := apitest.NewServer().
		Seed(model.KindApps, sampleApps()...).
		Seed(model.KindCategories, model.Entity{ID: "10", Name: "Sales"}, model.Entity{ID: "20", Name: "Admin"})
	c := New(context.Background(), Options{
		Kind:       model.KindApps,
		Store:      collection.New(srv, model.KindApps, nil),
		Categories: collection.New(srv, model.KindCategories, nil),
		Prefs:      p,
		PerPage:    5,
	})
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestGroupedSearchExpandsMatchingGroups(t *testing.T) {
	c := newAppsPage(t, nil)
	c.ToggleViewMode(context.Background())
	require.Equal(t, viewstate.Grouped, c.State().ViewMode)
	require.Equal(t, 0, c.State().Expanded.Len())

	st := c.Dispatch(viewstate.SetSearchTerm{Term: "invo"})
	assert.True(t, st.Expanded.Has("Sales"))
	assert.False(t, st.Expanded.Has("Admin"))
	assert.Equal(t, []string{"1"}, c.View().VisibleIDs)

	// Searching by category name matches every app in it.
	st = c.Dispatch(viewstate.SetSearchTerm{Term: "admin"})
	assert.True(t, st.Expanded.Has("Admin"))
	assert.Equal(t, []string{"3"}, c.View().VisibleIDs)
}

func TestFlatSearchLeavesGroupsAlone(t *testing.T) {
	c := newAppsPage(t, nil)
	st := c.Dispatch(viewstate.SetSearchTerm{Term: "invo"})
	assert.Equal(t, 0, st.Expanded.Len())
	assert.Equal(t, 1, st.TotalFiltered)
}

func TestPrefsSurviveNewController(t *testing.T) {
	ctx := context.Background()
	p, err := prefs.Open(ctx, filepath.Join(t.TempDir(), prefs.FileName), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	c := newAppsPage(t, p)
	c.Dispatch(viewstate.SetSort{Key: "url"})
	c.Dispatch(viewstate.SetCurrentPage{Page: 1})

	c.ToggleViewMode(ctx)
	c.Dispatch(viewstate.ToggleGroup{Label: "Sales"})
	c.Dispatch(viewstate.SetSort{Key: "name"})
	c.Close()

	again := newAppsPage(t, p)
	st := again.State()
	assert.Equal(t, viewstate.Grouped, st.ViewMode)
	assert.True(t, st.Expanded.Has("Sales"))
	assert.Equal(t, viewstate.SortConfig{Key: "name", Direction: viewstate.Desc}, st.Sort)

	st = again.ToggleViewMode(ctx)
	assert.Equal(t, viewstate.Flat, st.ViewMode)
	assert.Equal(t, viewstate.SortConfig{Key: "url", Direction: viewstate.Asc}, st.Sort)
}

func TestToggleViewMode_NotGroupable(t *testing.T) {
	c, _, _ := newTermsPage(t, terms(1)...)
	st := c.ToggleViewMode(context.Background())
	assert.Equal(t, viewstate.Flat, st.ViewMode)
}

func TestNavigate(t *testing.T) {
	c, _, _ := newTermsPage(t, terms(12)...)
	nav, ok := c.Navigate("012")
	require.True(t, ok)
	assert.Equal(t, 12, nav.CurrentIndex)
	assert.Equal(t, 12, nav.TotalItems)
	prev, ok := nav.Prev()
	require.True(t, ok)
	assert.Equal(t, "11", prev)
	_, ok = nav.Next()
	assert.False(t, ok)
}
