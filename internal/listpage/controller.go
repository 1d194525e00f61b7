// Package listpage drives one list page: it owns the page's view state, reads
// the collection through the derived view model, runs single and bulk
// mutations, and turns their outcomes into banners.
package listpage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"posadmin/internal/bulk"
	"posadmin/internal/collection"
	"posadmin/internal/logging"
	"posadmin/internal/model"
	"posadmin/internal/prefs"
	"posadmin/internal/viewmodel"
	"posadmin/internal/viewstate"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const prefsTimeout = 2 * time.Second

type Options struct {
	Kind  model.Kind
	Store *collection.Store
	// Categories backs grouping and category-name search; nil disables both.
	Categories *collection.Store
	// Prefs persists page, view mode, expanded groups and sort; nil keeps them in memory.
	Prefs *prefs.Store

	PerPage int
	Workers int
	Logger  logrus.FieldLogger
}

// Controller is safe for concurrent use. Mutating methods block on the
// network and are meant to run off the UI goroutine.
type Controller struct {
	kind    model.Kind
	store   *collection.Store
	cats    *collection.Store
	prefs   *prefs.Store
	workers int
	log     logrus.FieldLogger

	memo viewmodel.Memo

	mu      sync.Mutex
	state   viewstate.State
	closed  bool
	catsVer uint64
	catsMap viewmodel.Categories
}

func New(ctx context.Context, opts Options) *Controller {
	kind := opts.Kind
	if kind.Slug == "" && opts.Store != nil {
		kind = opts.Store.Kind()
	}
	perPage := opts.PerPage
	if perPage == 0 {
		perPage = kind.PerPage
	}
	c := &Controller{
		kind:    kind,
		store:   opts.Store,
		cats:    opts.Categories,
		prefs:   opts.Prefs,
		workers: opts.Workers,
		log:     logging.OrDiscard(opts.Logger).WithField("kind", kind.Slug),
		catsMap: viewmodel.Categories{},
	}

	s := viewstate.New(perPage)
	p := c.prefs.LoadList(ctx, kind)
	s.CurrentPage = p.Page
	if kind.Groupable {
		s.ViewMode = p.ViewMode
	}
	s.Expanded = viewstate.NewLabelSet(p.Expanded...)
	s.Sort = viewstate.NormalizeSort(p.SortFor(s.ViewMode))
	c.state = s
	return c
}

func (c *Controller) Kind() model.Kind { return c.kind }

func (c *Controller) State() viewstate.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns the derived rows for the current state.
func (c *Controller) View() viewmodel.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.computeLocked(c.state)
}

// Navigate returns the detail-view navigation context of id.
func (c *Controller) Navigate(id string) (viewmodel.Nav, bool) {
	return viewmodel.Navigation(c.View(), model.CanonicalID(id))
}

// Lookup returns the stored entity with id.
func (c *Controller) Lookup(id string) (model.Entity, bool) {
	return c.store.Lookup(id)
}

// CategoryName resolves a category id for display.
func (c *Controller) CategoryName(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.categoriesLocked().Name(id)
}

// Dispatch applies a and returns the new state.
func (c *Controller) Dispatch(a viewstate.Action) viewstate.State {
	return c.dispatch(a)
}

// Close stops the controller from applying further results. Calls that are
// still in flight finish against the backend but no longer touch the state.
// The cached rows are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.memo.Reset()
}

func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// dispatch reduces every action in order, then reconciles the filtered total
// once, so intermediate states are never reconciled on their own. Until the
// store has loaded once the total stays unknown and the page is left alone,
// so a failed first load cannot clobber the saved page.
func (c *Controller) dispatch(actions ...viewstate.Action) viewstate.State {
	c.mu.Lock()
	if c.closed {
		s := c.state
		c.mu.Unlock()
		return s
	}
	loaded := c.store.Version() > 0
	prev := c.state
	next := prev
	if loaded {
		next.TotalFiltered = len(c.computeLocked(prev).Filtered)
	}
	for _, a := range actions {
		next = viewstate.Reduce(next, a)
	}
	if loaded {
		next = c.reconcileLocked(prev, next)
	}
	c.state = next
	c.mu.Unlock()

	c.persist(prev, next)
	return next
}

func (c *Controller) reconcileLocked(prev, next viewstate.State) viewstate.State {
	res := c.computeLocked(next)
	next = viewstate.Reduce(next, viewstate.SetTotalFiltered{N: len(res.Filtered)})
	if next.ViewMode == viewstate.Grouped && next.SearchTerm != prev.SearchTerm && len(res.GroupsWithResults) > 0 {
		next = viewstate.Reduce(next, viewstate.ExpandGroups{Labels: res.GroupsWithResults})
	}
	return next
}

func (c *Controller) computeLocked(s viewstate.State) viewmodel.Result {
	items, ver := c.store.Current()
	cats := c.categoriesLocked()
	return c.memo.Compute(ver, c.catsVer, viewmodel.InputFor(c.kind, items, cats, s))
}

func (c *Controller) categoriesLocked() viewmodel.Categories {
	if c.cats == nil {
		return c.catsMap
	}
	items, ver := c.cats.Current()
	if ver != c.catsVer || c.catsMap == nil {
		c.catsMap = viewmodel.CategoriesFrom(items)
		c.catsVer = ver
	}
	return c.catsMap
}

func (c *Controller) persist(prev, next viewstate.State) {
	if c.prefs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), prefsTimeout)
	defer cancel()

	var errs []error
	if next.CurrentPage != prev.CurrentPage {
		errs = append(errs, c.prefs.SavePage(ctx, c.kind, next.CurrentPage))
	}
	if next.ViewMode != prev.ViewMode {
		errs = append(errs, c.prefs.SaveViewMode(ctx, c.kind, next.ViewMode))
	} else if next.Sort != prev.Sort {
		errs = append(errs, c.prefs.SaveSort(ctx, c.kind, next.ViewMode, next.Sort))
	}
	if !next.Expanded.Equal(prev.Expanded) {
		errs = append(errs, c.prefs.SaveExpanded(ctx, c.kind, next.Expanded.Sorted()))
	}
	if err := errors.Join(errs...); err != nil {
		c.log.WithError(err).Warn("persist list prefs")
	}
}

// ToggleViewMode switches between flat and grouped for groupable kinds,
// restoring the sort last used in the target mode.
func (c *Controller) ToggleViewMode(ctx context.Context) viewstate.State {
	cur := c.State()
	if !c.kind.Groupable {
		return cur
	}
	mode := viewstate.Grouped
	if cur.ViewMode == viewstate.Grouped {
		mode = viewstate.Flat
	}
	sortCfg := c.prefs.LoadList(ctx, c.kind).SortFor(mode)
	return c.dispatch(viewstate.SetViewMode{Mode: mode, Sort: sortCfg})
}

// Load refreshes the collection and its categories.
func (c *Controller) Load(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.store.Load(gctx)
		return err
	})
	if c.cats != nil {
		g.Go(func() error {
			if _, err := c.cats.Load(gctx); err != nil {
				// Grouping falls back to Uncategorized; the list itself still loads.
				c.log.WithError(err).Warn("load categories")
			}
			return nil
		})
	}
	err := g.Wait()
	switch {
	case errors.Is(err, collection.ErrSuperseded):
		return err
	case err != nil:
		c.dispatch(viewstate.ShowBanner{Kind: viewstate.BannerError, Message: "Could not load " + c.kind.Plural() + ": " + rootMessage(err)})
		return err
	}
	c.dispatch()
	return nil
}

// StartAdd opens an inline session for a new entity.
func (c *Controller) StartAdd() viewstate.State {
	return c.dispatch(viewstate.StartAddNew{})
}

// StartEdit opens an inline rename session for id.
func (c *Controller) StartEdit(id string) viewstate.State {
	return c.dispatch(viewstate.StartEdit{ID: id})
}

func (c *Controller) CancelInline() viewstate.State {
	return c.dispatch(viewstate.CancelInline{})
}

// SaveInline commits the inline session with name. An empty name is reported
// on the inline row and never reaches the backend.
func (c *Controller) SaveInline(ctx context.Context, name string) error {
	st := c.State()
	if st.Inline.Mode == viewstate.InlineIdle {
		return nil
	}

	c.dispatch(viewstate.SetSubmitting{On: true})
	var (
		saved model.Entity
		err   error
		verb  string
	)
	switch st.Inline.Mode {
	case viewstate.InlineAdding:
		verb = "Created"
		saved, err = c.store.Create(ctx, model.Draft{"name": name})
	case viewstate.InlineEditing:
		verb = "Saved"
		saved, err = c.store.Update(ctx, st.Inline.ID, model.Patch{"name": name})
	}

	var ve collection.ValidationError
	var nf collection.NotFoundError
	switch {
	case err == nil:
		c.dispatch(
			viewstate.SetSubmitting{On: false},
			viewstate.FinishInline{},
			viewstate.ShowBanner{Kind: viewstate.BannerSuccess, Message: verb + " " + c.kind.Label + " " + quote(saved.Name)},
		)
	case errors.As(err, &ve):
		c.dispatch(
			viewstate.SetSubmitting{On: false},
			viewstate.SetInlineError{Message: "Name is required"},
		)
	case errors.As(err, &nf):
		c.dispatch(
			viewstate.SetSubmitting{On: false},
			viewstate.CancelInline{},
			viewstate.ShowBanner{Kind: viewstate.BannerError, Message: "This " + c.kind.Label + " no longer exists; reload the list (r)"},
		)
	default:
		c.dispatch(
			viewstate.SetSubmitting{On: false},
			viewstate.ShowBanner{Kind: viewstate.BannerError, Message: "Could not save " + c.kind.Label + ": " + rootMessage(err)},
		)
	}
	return err
}

// RequestDelete opens the confirmation modal for the current selection.
func (c *Controller) RequestDelete() viewstate.State {
	if c.State().Selected.Len() == 0 {
		return c.dispatch(viewstate.ShowBanner{Kind: viewstate.BannerError, Message: "Select at least one " + c.kind.Label + " to delete"})
	}
	return c.dispatch(viewstate.OpenConfirm{Pending: viewstate.PendingDelete})
}

func (c *Controller) CancelConfirm() viewstate.State {
	return c.dispatch(viewstate.CloseConfirm{})
}

// Confirm closes the modal right away and then runs the pending action.
func (c *Controller) Confirm(ctx context.Context) (bulk.Outcome, error) {
	pending := c.State().Confirm.Pending
	c.dispatch(viewstate.CloseConfirm{})
	switch pending {
	case viewstate.PendingDelete:
		return c.BulkDelete(ctx), nil
	case viewstate.PendingDuplicate:
		return c.BulkDuplicate(ctx), nil
	}
	return bulk.Outcome{}, errors.New("nothing to confirm")
}

// BulkDelete removes every selected entity. Ids that fail stay selected.
func (c *Controller) BulkDelete(ctx context.Context) bulk.Outcome {
	ids := c.selectionInViewOrder()
	if len(ids) == 0 {
		c.dispatch(viewstate.ShowBanner{Kind: viewstate.BannerError, Message: "Select at least one " + c.kind.Label + " to delete"})
		return bulk.Outcome{}
	}

	c.dispatch(viewstate.SetSubmitting{On: true})
	out := bulk.Delete(ctx, c.store, ids, bulk.Options{Workers: c.workers, Logger: c.log})

	remaining := len(c.View().Filtered)
	c.dispatch(
		viewstate.SetSelected(out.Succeeded, false),
		viewstate.PageBackIfEmpty{Remaining: remaining},
		viewstate.SetSubmitting{On: false},
		c.outcomeBanner("Deleted", "delete", out),
	)
	return out
}

// BulkDuplicate copies every selected entity, continuing past failures.
func (c *Controller) BulkDuplicate(ctx context.Context) bulk.Outcome {
	ids := c.selectionInViewOrder()
	if len(ids) == 0 {
		return bulk.Outcome{}
	}

	c.dispatch(viewstate.SetSubmitting{On: true})
	out := bulk.Duplicate(ctx, c.store, ids, bulk.Options{Workers: c.workers, Logger: c.log})
	c.dispatch(
		viewstate.SetSubmitting{On: false},
		c.outcomeBanner("Duplicated", "duplicate", out),
	)
	return out
}

func (c *Controller) outcomeBanner(done, verb string, out bulk.Outcome) viewstate.ShowBanner {
	n, total := len(out.Succeeded), len(out.Requested)
	switch {
	case out.AllFailed():
		return viewstate.ShowBanner{Kind: viewstate.BannerError, Message: "Could not " + verb + " " + c.kind.Count(total) + ": " + rootMessage(out.FirstError())}
	case out.Partial():
		return viewstate.ShowBanner{Kind: viewstate.BannerError, Message: done + " " + itoa(n) + " of " + c.kind.Count(total)}
	default:
		return viewstate.ShowBanner{Kind: viewstate.BannerSuccess, Message: done + " " + c.kind.Count(n)}
	}
}

// selectionInViewOrder lists the selected ids in rendered order, followed by
// selected ids that are filtered out or gone.
func (c *Controller) selectionInViewOrder() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel := c.state.Selected
	if sel.Len() == 0 {
		return nil
	}
	res := c.computeLocked(c.state)
	out := make([]string, 0, sel.Len())
	seen := make(map[string]struct{}, sel.Len())
	for _, e := range res.Filtered {
		if sel.Has(e.ID) {
			out = append(out, e.ID)
			seen[e.ID] = struct{}{}
		}
	}
	var rest []string
	for id := range sel {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return model.CompareIDs(rest[i], rest[j]) < 0 })
	return append(out, rest...)
}
