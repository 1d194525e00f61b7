package viewmodel

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"

	"posadmin/internal/model"
	"posadmin/internal/viewstate"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// collators is shared by every Compute; a Collator must not be used by two
// goroutines at once.
var collators = sync.Pool{
	New: func() any { return collate.New(language.Und, collate.IgnoreCase) },
}

type sorter struct {
	key      string
	desc     bool
	cats     Categories
	collator *collate.Collator
}

func newSorter(cfg viewstate.SortConfig, cats Categories) sorter {
	cfg = viewstate.NormalizeSort(cfg)
	return sorter{
		key:  cfg.Key,
		desc: cfg.Direction == viewstate.Desc,
		cats: cats,
	}
}

// sort orders items in place by the configured key, ties by id ascending.
// Sorting by id never touches a collator.
func (s sorter) sort(items []model.Entity) {
	if s.key != "id" && len(items) > 1 {
		c := collators.Get().(*collate.Collator)
		defer collators.Put(c)
		s.collator = c
	}
	sort.SliceStable(items, func(i, j int) bool {
		return s.compare(items[i], items[j]) < 0
	})
}

func (s sorter) compare(a, b model.Entity) int {
	var c int
	if s.key == "id" {
		c = model.CompareIDs(a.ID, b.ID)
	} else {
		c = s.compareValues(s.value(a), s.value(b))
	}
	if s.desc {
		c = -c
	}
	if c != 0 {
		return c
	}
	return model.CompareIDs(a.ID, b.ID)
}

func (s sorter) value(e model.Entity) any {
	switch s.key {
	case "category", "category_name":
		name, _ := s.cats.Name(e.CategoryID)
		return name
	}
	v, ok := e.Field(s.key)
	if !ok {
		return nil
	}
	return v
}

// compareValues compares numerically when both values are numbers, otherwise
// by locale-aware case-insensitive collation. Missing values sort first.
func (s sorter) compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return 0
			}
		}
	}
	return s.collator.CompareString(text(a), text(b))
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.Trim(string(b), `"`)
}
