package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"posadmin/internal/collection"
	"posadmin/internal/format"
	"posadmin/internal/model"
	"posadmin/internal/viewmodel"
	"posadmin/internal/viewstate"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// viewFlags select one computed view of a collection, the same way the list
// page's view state does.
type viewFlags struct {
	search  string
	page    int
	perPage int
	group   bool
	expand  []string
	sortKey string
	desc    bool
}

func (f *viewFlags) bind(cmd *cobra.Command, paging bool) {
	cmd.Flags().StringVar(&f.search, "search", "", "Case-insensitive substring filter")
	cmd.Flags().BoolVar(&f.group, "group", false, "Group by category (groupable kinds only)")
	cmd.Flags().StringSliceVar(&f.expand, "expand", nil, "Category labels to expand in grouped mode (repeatable)")
	cmd.Flags().StringVar(&f.sortKey, "sort", "name", "Sort key (name, id, category, or any field)")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "Sort descending")
	if paging {
		cmd.Flags().IntVar(&f.page, "page", 1, "Page number (clamped into range)")
		cmd.Flags().IntVar(&f.perPage, "per-page", 0, "Items per page (5|10|20|50; default: the kind's)")
	}
}

func (f viewFlags) input(k model.Kind, items []model.Entity, cats viewmodel.Categories) (viewmodel.Input, error) {
	if f.group && !k.Groupable {
		return viewmodel.Input{}, fmt.Errorf("%s cannot be grouped", k.Plural())
	}
	perPage := f.perPage
	if perPage == 0 {
		perPage = k.PerPage
	}
	if !viewstate.AllowedPerPage(perPage) {
		return viewmodel.Input{}, fmt.Errorf("per-page must be one of %s", joinInts(viewstate.PerPageChoices))
	}
	dir := viewstate.Asc
	if f.desc {
		dir = viewstate.Desc
	}
	mode := viewstate.Flat
	if f.group {
		mode = viewstate.Grouped
	}
	return viewmodel.Input{
		Items:      items,
		Kind:       k,
		Categories: cats,
		SearchTerm: f.search,
		Mode:       mode,
		Expanded:   viewstate.NewLabelSet(f.expand...),
		Sort:       viewstate.NormalizeSort(viewstate.SortConfig{Key: strings.TrimSpace(f.sortKey), Direction: dir}),
		Page:       f.page,
		PerPage:    perPage,
	}, nil
}

// computeView runs the pipeline. A grouped search opens every group with hits,
// like the list page does.
func computeView(in viewmodel.Input) viewmodel.Result {
	res := viewmodel.Compute(in)
	if in.Mode == viewstate.Grouped && len(res.GroupsWithResults) > 0 {
		in.Expanded = in.Expanded.With(res.GroupsWithResults...)
		res = viewmodel.Compute(in)
	}
	return res
}

// loadCollection loads k and, for groupable kinds when asked, the categories.
// Categories are best effort: without them entities group as uncategorized.
func loadCollection(ctx context.Context, s *session, k model.Kind, withCategories bool) (*collection.Store, viewmodel.Categories, error) {
	store := collection.New(s.client, k, s.log)
	cats := collection.New(s.client, model.KindCategories, s.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := store.Load(gctx)
		return err
	})
	if withCategories && k.Groupable {
		g.Go(func() error {
			if _, err := cats.Load(gctx); err != nil {
				s.log.WithError(err).Warn("categories unavailable")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return store, viewmodel.CategoriesFrom(cats.Snapshot()), nil
}

type pageInfo struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
	Start   int `json:"start"`
	End     int `json:"end"`
}

type groupInfo struct {
	Label    string   `json:"label"`
	Count    int      `json:"count"`
	Expanded bool     `json:"expanded"`
	IDs      []string `json:"ids"`
}

type listResult struct {
	Data       []model.Entity `json:"data"`
	Groups     []groupInfo    `json:"groups,omitempty"`
	Pagination pageInfo       `json:"pagination"`

	kind model.Kind
	rows []viewmodel.Row
}

func newListResult(k model.Kind, res viewmodel.Result) listResult {
	out := listResult{
		Data: []model.Entity{},
		Pagination: pageInfo{
			Page:    res.Pagination.Current,
			PerPage: res.Pagination.PerPage,
			Total:   res.Pagination.Total,
			Pages:   res.Pagination.Pages,
			Start:   res.Pagination.Start,
			End:     res.Pagination.End,
		},
		kind: k,
		rows: res.Rows,
	}
	for _, row := range res.Rows {
		if !row.Header {
			out.Data = append(out.Data, row.Entity)
		}
	}
	for _, g := range res.Groups {
		ids := make([]string, 0, len(g.Items))
		for _, e := range g.Items {
			ids = append(ids, e.ID)
		}
		out.Groups = append(out.Groups, groupInfo{Label: g.Label, Count: len(g.Items), Expanded: g.Expanded, IDs: ids})
	}
	return out
}

func (r listResult) Table() format.Table {
	t := format.Table{Headers: []string{"ID", "NAME"}}
	if r.kind.Groupable {
		t.Headers = append(t.Headers, "CATEGORY")
	}
	for _, col := range r.kind.Columns {
		t.Headers = append(t.Headers, strings.ToUpper(col))
	}
	for _, row := range r.rows {
		cells := make([]string, len(t.Headers))
		if row.Header {
			arrow := "▸"
			if row.Expanded {
				arrow = "▾"
			}
			cells[1] = fmt.Sprintf("%s %s (%d)", arrow, row.Label, row.Count)
			t.Rows = append(t.Rows, cells)
			continue
		}
		cells[0] = row.Entity.ID
		cells[1] = row.Entity.Name
		i := 2
		if r.kind.Groupable {
			cells[i] = row.Category
			i++
		}
		for _, col := range r.kind.Columns {
			cells[i] = row.Entity.StringField(col)
			i++
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func newListCmd(app *App) *cobra.Command {
	var vf viewFlags

	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "Print one page of a collection (filtered, grouped, sorted, paginated)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := model.LookupKind(args[0])
			if err != nil {
				return err
			}
			s, err := connect(cmd, app)
			if err != nil {
				return err
			}
			store, cats, err := loadCollection(cmd.Context(), s, k, true)
			if err != nil {
				return err
			}
			in, err := vf.input(k, store.Snapshot(), cats)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, newListResult(k, computeView(in)))
		},
	}

	vf.bind(cmd, true)
	return cmd
}

type navInfo struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

type showResult struct {
	Data model.Entity `json:"data"`
	// Nav is absent when the entity is hidden by the view (filtered out or in a collapsed group).
	Nav *navInfo `json:"nav,omitempty"`

	category string
}

func (r showResult) Table() format.Table {
	t := format.Table{Headers: []string{"FIELD", "VALUE"}}
	add := func(k, v string) {
		if strings.TrimSpace(v) != "" {
			t.Rows = append(t.Rows, []string{k, v})
		}
	}
	add("id", r.Data.ID)
	add("name", r.Data.Name)
	add("category", r.category)
	add("url", r.Data.URL)
	add("description", r.Data.Description)
	for _, key := range r.Data.FieldKeys() {
		add(key, r.Data.StringField(key))
	}
	if r.Nav != nil {
		add("position", fmt.Sprintf("%d of %d", r.Nav.Index, r.Nav.Total))
		add("prev", r.Nav.Prev)
		add("next", r.Nav.Next)
	}
	return t
}

func newShowCmd(app *App) *cobra.Command {
	var vf viewFlags

	cmd := &cobra.Command{
		Use:   "show <kind> <id>",
		Short: "Show one entity and its position in the list ordering",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := model.LookupKind(args[0])
			if err != nil {
				return err
			}
			s, err := connect(cmd, app)
			if err != nil {
				return err
			}
			store, cats, err := loadCollection(cmd.Context(), s, k, true)
			if err != nil {
				return err
			}
			id := model.CanonicalID(args[1])
			e, ok := store.Lookup(id)
			if !ok {
				return collection.NotFoundError{Kind: k.Label, ID: id}
			}
			in, err := vf.input(k, store.Snapshot(), cats)
			if err != nil {
				return err
			}

			out := showResult{Data: e}
			if name, known := cats.Name(e.CategoryID); known {
				out.category = name
			} else {
				out.category = e.CategoryID
			}
			if nav, found := viewmodel.Navigation(computeView(in), id); found {
				ni := &navInfo{Index: nav.CurrentIndex, Total: nav.TotalItems}
				ni.Prev, _ = nav.Prev()
				ni.Next, _ = nav.Next()
				out.Nav = ni
			}
			return writeOut(cmd, app, out)
		},
	}

	vf.bind(cmd, false)
	return cmd
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
