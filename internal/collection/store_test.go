package collection

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"posadmin/internal/api"
	"posadmin/internal/api/apitest"
	"posadmin/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ent(id, name string) model.Entity {
	return model.Entity{ID: id, Name: name}
}

func loadedStore(t *testing.T, kind model.Kind, items ...model.Entity) (*Store, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer().Seed(kind, items...)
	s := New(srv, kind, nil)
	_, err := s.Load(context.Background())
	require.NoError(t, err)
	return s, srv
}

func names(items []model.Entity) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.Name
	}
	return out
}

func TestLoad_DropsDuplicateIDs(t *testing.T) {
	s, _ := loadedStore(t, model.KindApps, ent("1", "A"), ent("2", "B"), ent("1", "A again"))
	assert.Equal(t, []string{"A", "B"}, names(s.Snapshot()))
	assert.Equal(t, uint64(1), s.Version())
}

func TestLoad_FailureKeepsPreviousCollection(t *testing.T) {
	s, srv := loadedStore(t, model.KindApps, ent("1", "A"))
	before := s.Snapshot()

	srv.FailOn(model.KindApps, apitest.OpList, "", errors.New("connection reset"))
	_, err := s.Load(context.Background())

	var fe FetchError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, uint64(1), s.Version())
}

func TestLoad_StaleResponseIsSuperseded(t *testing.T) {
	srv := apitest.NewServer().Seed(model.KindApps, ent("1", "Old"))
	s := New(srv, model.KindApps, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv.OnCall(func(c apitest.Call) {
		if c.Op != apitest.OpList {
			return
		}
		first := false
		once.Do(func() { first = true })
		if first {
			close(entered)
			<-release
		}
	})

	type result struct {
		items []model.Entity
		err   error
	}
	slow := make(chan result, 1)
	go func() {
		items, err := s.Load(context.Background())
		slow <- result{items, err}
	}()
	<-entered

	srv.Seed(model.KindApps, ent("2", "New"))
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	close(release)
	r := <-slow
	assert.ErrorIs(t, r.err, ErrSuperseded)
	assert.Equal(t, []string{"New"}, names(s.Snapshot()))
}

func TestCreate_InsertsInNameOrder(t *testing.T) {
	s, _ := loadedStore(t, model.KindApps, ent("1", "Apple"), ent("2", "cherry"))

	got, err := s.Create(context.Background(), model.Draft{"name": "  Banana ", "url": "https://b.example"})
	require.NoError(t, err)
	assert.Equal(t, "1001", got.ID)
	assert.Equal(t, "Banana", got.Name)
	assert.Equal(t, "https://b.example", got.URL)
	assert.Equal(t, []string{"Apple", "Banana", "cherry"}, names(s.Snapshot()))
}

func TestCreate_EmptyNameNeverReachesNetwork(t *testing.T) {
	s, srv := loadedStore(t, model.KindApps)
	calls := len(srv.Calls())

	_, err := s.Create(context.Background(), model.Draft{"name": "   "})
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
	assert.Len(t, srv.Calls(), calls)
	assert.Empty(t, s.Snapshot())
}

func TestCreate_RemoteFailureLeavesCollection(t *testing.T) {
	s, srv := loadedStore(t, model.KindApps, ent("1", "Apple"))
	srv.FailOn(model.KindApps, apitest.OpCreate, "", &api.StatusError{Code: 422, Message: "name taken"})

	_, err := s.Create(context.Background(), model.Draft{"name": "Apple"})
	var re RemoteError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, err.Error(), "name taken")
	assert.Equal(t, []string{"Apple"}, names(s.Snapshot()))
}

func TestUpdate(t *testing.T) {
	t.Run("replaces and resorts", func(t *testing.T) {
		s, _ := loadedStore(t, model.KindUsers, ent("1", "Ada"), ent("2", "Bob"))
		before := s.Snapshot()

		got, err := s.Update(context.Background(), "2", model.Patch{"name": "Aaron"})
		require.NoError(t, err)
		assert.Equal(t, "Aaron", got.Name)
		assert.Equal(t, []string{"Aaron", "Ada"}, names(s.Snapshot()))
		assert.Equal(t, []string{"Ada", "Bob"}, names(before), "published slices are never modified")
	})

	t.Run("unknown id locally", func(t *testing.T) {
		s, srv := loadedStore(t, model.KindUsers, ent("1", "Ada"))
		calls := len(srv.Calls())
		_, err := s.Update(context.Background(), "9", model.Patch{"name": "X"})
		var nf NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "9", nf.ID)
		assert.Len(t, srv.Calls(), calls)
	})

	t.Run("gone remotely", func(t *testing.T) {
		s, srv := loadedStore(t, model.KindUsers, ent("1", "Ada"))
		srv.Seed(model.KindUsers)
		_, err := s.Update(context.Background(), "1", model.Patch{"name": "X"})
		var nf NotFoundError
		require.ErrorAs(t, err, &nf)
	})

	t.Run("numeric id forms match", func(t *testing.T) {
		s, _ := loadedStore(t, model.KindUsers, ent("7", "Ada"))
		_, err := s.Update(context.Background(), "007", model.Patch{"role": "admin"})
		require.NoError(t, err)
		e, ok := s.Lookup("7")
		require.True(t, ok)
		assert.Equal(t, "admin", e.StringField("role"))
	})
}

func TestRemove(t *testing.T) {
	s, srv := loadedStore(t, model.KindApps, ent("1", "A"), ent("2", "B"), ent("3", "C"))

	ok, err := s.Remove(context.Background(), "2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"A", "C"}, names(s.Snapshot()))

	srv.FailOn(model.KindApps, apitest.OpDelete, "3", errors.New("boom"))
	ok, err = s.Remove(context.Background(), "3")
	assert.False(t, ok)
	var re RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"A", "C"}, names(s.Snapshot()))

	srv.Seed(model.KindApps)
	ok, err = s.Remove(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, ok, "remote 404 counts as deleted")
	assert.Equal(t, []string{"C"}, names(s.Snapshot()))
}

func TestDuplicate_ProbesForFreeName(t *testing.T) {
	s, _ := loadedStore(t, model.KindPaymentTerms,
		model.Entity{ID: "1", Name: "Net 30", Description: "thirty days", Fields: map[string]any{"days": float64(30)}},
		ent("2", "Net 30 (Copy)"),
	)

	got, err := s.Duplicate(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Net 30 (Copy 2)", got.Name)
	assert.Equal(t, "thirty days", got.Description)
	assert.Equal(t, float64(30), got.Fields["days"])
	assert.NotEqual(t, "1", got.ID)
}

func TestUniqueCopyName_CaseInsensitive(t *testing.T) {
	s, _ := loadedStore(t, model.KindApps, ent("1", "Shop"), ent("2", "shop (copy)"), ent("3", "SHOP (COPY 2)"))
	assert.Equal(t, "Shop (Copy 3)", s.UniqueCopyName("Shop"))
	assert.Equal(t, "Other (Copy)", s.UniqueCopyName("Other"))
}

func TestDuplicate_ConcurrentCopiesGetDistinctNames(t *testing.T) {
	s, srv := loadedStore(t, model.KindPaymentTerms, ent("1", "Net 30"))

	const n = 3
	var barrier sync.WaitGroup
	barrier.Add(n)
	srv.OnCall(func(c apitest.Call) {
		if c.Op == apitest.OpCreate {
			barrier.Done()
			barrier.Wait()
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Duplicate(context.Background(), "1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got := names(s.Snapshot())
	sort.Strings(got)
	assert.Equal(t, []string{"Net 30", "Net 30 (Copy 2)", "Net 30 (Copy 3)", "Net 30 (Copy)"}, got)
}

func TestDuplicate_UnknownID(t *testing.T) {
	s, _ := loadedStore(t, model.KindApps)
	_, err := s.Duplicate(context.Background(), "5")
	var nf NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRemove_UnknownIDIsNotFound(t *testing.T) {
	s, srv := loadedStore(t, model.KindPaymentTerms, ent("1", "Net 30"), ent("2", "Net 60"), ent("3", "Net 90"))
	v := s.Version()

	ok, err := s.Remove(context.Background(), "9999")
	assert.False(t, ok)
	var nf NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "9999", nf.ID)
	assert.Len(t, s.Snapshot(), 3)
	assert.Equal(t, v, s.Version())
	assert.Len(t, srv.Items(model.KindPaymentTerms), 3)
}
