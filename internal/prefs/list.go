package prefs

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"posadmin/internal/model"
	"posadmin/internal/viewstate"
)

// Stored view-mode values.
const (
	ModeFilter = "filter"
	ModeGroup  = "group"
)

// Key names are shared with the web dashboard's local storage.

func PageKey(k model.Kind) string { return k.StorageKey + "_list_page" }

func ViewModeKey(k model.Kind) string { return k.Slug + "-view-mode" }

func ExpandedKey(k model.Kind) string {
	if k.Slug == model.KindApps.Slug {
		return "expanded-categories"
	}
	return k.Slug + "-expanded-groups"
}

func ListSortKey(k model.Kind) string { return k.Slug + "-list-sort" }

func GroupSortKey(k model.Kind) string { return k.Slug + "-group-sort" }

// SortKeyFor returns the sort key used in mode.
func SortKeyFor(k model.Kind, mode viewstate.ViewMode) string {
	if mode == viewstate.Grouped {
		return GroupSortKey(k)
	}
	return ListSortKey(k)
}

// ListPrefs is everything a list page restores on open.
type ListPrefs struct {
	Page      int
	ViewMode  viewstate.ViewMode
	Expanded  []string
	ListSort  viewstate.SortConfig
	GroupSort viewstate.SortConfig
}

// DefaultListPrefs is what LoadList returns for keys that are missing or unreadable.
func DefaultListPrefs() ListPrefs {
	return ListPrefs{
		Page:      1,
		ViewMode:  viewstate.Flat,
		ListSort:  viewstate.DefaultSort,
		GroupSort: viewstate.DefaultSort,
	}
}

// SortFor returns the stored sort for mode.
func (p ListPrefs) SortFor(mode viewstate.ViewMode) viewstate.SortConfig {
	if mode == viewstate.Grouped {
		return p.GroupSort
	}
	return p.ListSort
}

// LoadList reads the list prefs of k. It is best effort: read errors and
// corrupt values are logged and replaced by defaults.
func (s *Store) LoadList(ctx context.Context, k model.Kind) ListPrefs {
	out := DefaultListPrefs()
	if s == nil {
		return out
	}
	get := func(key string) (string, bool) {
		v, ok, err := s.Get(ctx, key)
		if err != nil {
			s.log.WithError(err).WithField("key", key).Warn("read pref")
			return "", false
		}
		return v, ok
	}

	if v, ok := get(PageKey(k)); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 1 {
			out.Page = n
		}
	}
	if v, ok := get(ViewModeKey(k)); ok {
		out.ViewMode = ParseViewMode(v)
	}
	if v, ok := get(ExpandedKey(k)); ok {
		var labels []string
		if err := json.Unmarshal([]byte(v), &labels); err == nil {
			out.Expanded = labels
		}
	}
	if v, ok := get(ListSortKey(k)); ok {
		out.ListSort = parseSort(v)
	}
	if v, ok := get(GroupSortKey(k)); ok {
		out.GroupSort = parseSort(v)
	}
	return out
}

// SaveList writes every list pref of k in one transaction.
func (s *Store) SaveList(ctx context.Context, k model.Kind, p ListPrefs) error {
	if p.Page < 1 {
		p.Page = 1
	}
	expanded := p.Expanded
	if expanded == nil {
		expanded = []string{}
	}
	exp, err := json.Marshal(expanded)
	if err != nil {
		return err
	}
	ls, err := json.Marshal(viewstate.NormalizeSort(p.ListSort))
	if err != nil {
		return err
	}
	gs, err := json.Marshal(viewstate.NormalizeSort(p.GroupSort))
	if err != nil {
		return err
	}
	return s.setMany(ctx, map[string]string{
		PageKey(k):      strconv.Itoa(p.Page),
		ViewModeKey(k):  FormatViewMode(p.ViewMode),
		ExpandedKey(k):  string(exp),
		ListSortKey(k):  string(ls),
		GroupSortKey(k): string(gs),
	})
}

func (s *Store) SavePage(ctx context.Context, k model.Kind, page int) error {
	return s.Set(ctx, PageKey(k), strconv.Itoa(page))
}

func (s *Store) SaveViewMode(ctx context.Context, k model.Kind, mode viewstate.ViewMode) error {
	return s.Set(ctx, ViewModeKey(k), FormatViewMode(mode))
}

func (s *Store) SaveExpanded(ctx context.Context, k model.Kind, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return err
	}
	return s.Set(ctx, ExpandedKey(k), string(b))
}

func (s *Store) SaveSort(ctx context.Context, k model.Kind, mode viewstate.ViewMode, cfg viewstate.SortConfig) error {
	b, err := json.Marshal(viewstate.NormalizeSort(cfg))
	if err != nil {
		return err
	}
	return s.Set(ctx, SortKeyFor(k, mode), string(b))
}

// ParseViewMode maps "group" to grouped and anything else to flat. JSON-quoted
// values are accepted too.
func ParseViewMode(v string) viewstate.ViewMode {
	v = strings.Trim(strings.TrimSpace(v), `"`)
	switch v {
	case ModeGroup, string(viewstate.Grouped):
		return viewstate.Grouped
	default:
		return viewstate.Flat
	}
}

func FormatViewMode(m viewstate.ViewMode) string {
	if m == viewstate.Grouped {
		return ModeGroup
	}
	return ModeFilter
}

func parseSort(v string) viewstate.SortConfig {
	var c viewstate.SortConfig
	if err := json.Unmarshal([]byte(v), &c); err != nil {
		return viewstate.DefaultSort
	}
	return viewstate.NormalizeSort(c)
}
