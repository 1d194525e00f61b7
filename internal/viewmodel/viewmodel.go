// Package viewmodel derives the rendered rows of a list page from a collection
// snapshot and the page's view state: filter, then group, then sort, then
// paginate. Nothing here modifies its inputs.
package viewmodel

import (
	"strings"

	"posadmin/internal/model"
	"posadmin/internal/viewstate"
)

// Uncategorized labels the group of entities whose category cannot be resolved.
const Uncategorized = "Uncategorized"

var defaultSearchFields = []string{"name", "description", "url"}

// Categories maps a canonical category id to its display name.
type Categories map[string]string

func CategoriesFrom(items []model.Entity) Categories {
	out := make(Categories, len(items))
	for _, c := range items {
		out[c.ID] = c.Name
	}
	return out
}

// Name resolves id, reporting false for empty or unknown ids.
func (c Categories) Name(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	name, ok := c[id]
	return name, ok
}

type Input struct {
	Items      []model.Entity
	Kind       model.Kind
	Categories Categories

	SearchTerm string
	Mode       viewstate.ViewMode
	Expanded   viewstate.LabelSet
	Sort       viewstate.SortConfig
	Page       int
	PerPage    int
}

// InputFor builds an Input from a view state.
func InputFor(kind model.Kind, items []model.Entity, cats Categories, s viewstate.State) Input {
	return Input{
		Items:      items,
		Kind:       kind,
		Categories: cats,
		SearchTerm: s.SearchTerm,
		Mode:       s.ViewMode,
		Expanded:   s.Expanded,
		Sort:       s.Sort,
		Page:       s.CurrentPage,
		PerPage:    s.ItemsPerPage,
	}
}

type Group struct {
	Label    string
	Items    []model.Entity
	Expanded bool
}

// Row is one rendered line: a group header or an entity.
type Row struct {
	Header   bool
	Label    string
	Count    int
	Expanded bool

	Entity   model.Entity
	Category string
}

type Pagination struct {
	Current int
	PerPage int
	Total   int
	Pages   int
	// Start and End are the 1-based inclusive range shown ("11-20 of 45"); both 0 when empty.
	Start int
	End   int
}

type Result struct {
	Filtered   []model.Entity
	Groups     []Group
	Rows       []Row
	VisibleIDs []string
	PageIDs    []string
	Pagination Pagination
	// GroupsWithResults lists the groups holding search hits; nil without a search term.
	GroupsWithResults []string
}

// Compute runs the whole pipeline.
func Compute(in Input) Result {
	fields := in.Kind.SearchFields
	if len(fields) == 0 {
		fields = defaultSearchFields
	}
	filtered := Filter(in.Items, in.SearchTerm, fields, in.Categories)
	sorter := newSorter(in.Sort, in.Categories)
	sorter.sort(filtered)

	var res Result
	res.Filtered = filtered

	groups := groupBy(filtered, in.Categories, in.Expanded)
	if strings.TrimSpace(in.SearchTerm) != "" {
		res.GroupsWithResults = make([]string, 0, len(groups))
		for _, g := range groups {
			res.GroupsWithResults = append(res.GroupsWithResults, g.Label)
		}
	}

	if in.Mode == viewstate.Grouped {
		res.Groups = groups
		res.Rows = make([]Row, 0, len(groups)+len(filtered))
		res.VisibleIDs = make([]string, 0, len(filtered))
		for _, g := range groups {
			res.Rows = append(res.Rows, Row{Header: true, Label: g.Label, Count: len(g.Items), Expanded: g.Expanded})
			if !g.Expanded {
				continue
			}
			for _, e := range g.Items {
				res.Rows = append(res.Rows, Row{Entity: e, Category: g.Label})
				res.VisibleIDs = append(res.VisibleIDs, e.ID)
			}
		}
		res.PageIDs = res.VisibleIDs
		res.Pagination = Pagination{Current: 1, PerPage: in.PerPage, Total: len(filtered), Pages: 1}
		if len(filtered) > 0 {
			res.Pagination.Start, res.Pagination.End = 1, len(filtered)
		}
		return res
	}

	res.VisibleIDs = ids(filtered)
	page, p := Paginate(filtered, in.Page, in.PerPage)
	res.Pagination = p
	res.PageIDs = ids(page)
	res.Rows = make([]Row, 0, len(page))
	for _, e := range page {
		cat, _ := in.Categories.Name(e.CategoryID)
		res.Rows = append(res.Rows, Row{Entity: e, Category: cat})
	}
	return res
}

// Filter keeps entities where the trimmed, lower-cased term is a substring of
// any of fields or of the resolved category name. An empty term keeps all.
// The result is always a new slice.
func Filter(items []model.Entity, term string, fields []string, cats Categories) []model.Entity {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]model.Entity, 0, len(items))
	if term == "" {
		return append(out, items...)
	}
	for _, e := range items {
		if matches(e, term, fields, cats) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e model.Entity, term string, fields []string, cats Categories) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(e.StringField(f)), term) {
			return true
		}
	}
	if name, ok := cats.Name(e.CategoryID); ok && strings.Contains(strings.ToLower(name), term) {
		return true
	}
	return false
}

// Paginate returns page (clamped into range) of items and its metadata.
func Paginate(items []model.Entity, page, perPage int) ([]model.Entity, Pagination) {
	if perPage <= 0 {
		perPage = viewstate.DefaultPerPage
	}
	total := len(items)
	pages := viewstate.PageCount(total, perPage)
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	p := Pagination{Current: page, PerPage: perPage, Total: total, Pages: pages}
	if total == 0 {
		return []model.Entity{}, p
	}
	p.Start, p.End = start+1, end
	out := make([]model.Entity, end-start)
	copy(out, items[start:end])
	return out, p
}

func groupBy(items []model.Entity, cats Categories, expanded viewstate.LabelSet) []Group {
	byLabel := map[string]*Group{}
	var order []string
	for _, e := range items {
		label, ok := cats.Name(e.CategoryID)
		if !ok || strings.TrimSpace(label) == "" {
			label = Uncategorized
		}
		g, seen := byLabel[label]
		if !seen {
			g = &Group{Label: label, Expanded: expanded.Has(label)}
			byLabel[label] = g
			order = append(order, label)
		}
		g.Items = append(g.Items, e)
	}
	labels := viewstate.NewLabelSet(order...).Sorted()
	out := make([]Group, 0, len(labels))
	for _, l := range labels {
		out = append(out, *byLabel[l])
	}
	return out
}

func ids(items []model.Entity) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}
