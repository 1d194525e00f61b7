// Package viewstate is the page-scoped view state of a list page and the pure
// reducer that evolves it.
package viewstate

import (
	"sort"
	"strings"

	"posadmin/internal/model"
)

type ViewMode string

const (
	Flat    ViewMode = "flat"
	Grouped ViewMode = "grouped"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type SortConfig struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort orders by name, ascending.
var DefaultSort = SortConfig{Key: "name", Direction: Asc}

type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "error"
)

// Banner is the transient notification line. Seq identifies one showing of it;
// an auto-close timer carries the Seq it was scheduled for.
type Banner struct {
	Open    bool
	Kind    BannerKind
	Message string
	Seq     uint64
}

type PendingAction string

const (
	PendingNone      PendingAction = ""
	PendingDelete    PendingAction = "delete"
	PendingDuplicate PendingAction = "duplicate"
)

type Confirm struct {
	Open    bool
	Pending PendingAction
}

type InlineMode int

const (
	InlineIdle InlineMode = iota
	InlineAdding
	InlineEditing
)

// Inline is the single inline-edit session. ID is set only while editing.
type Inline struct {
	Mode  InlineMode
	ID    string
	Error string
}

// PerPageChoices are the page sizes a user may pick.
var PerPageChoices = []int{5, 10, 20, 50}

const DefaultPerPage = 10

func AllowedPerPage(n int) bool {
	for _, c := range PerPageChoices {
		if c == n {
			return true
		}
	}
	return false
}

// State is treated as a value: Reduce never modifies its input.
type State struct {
	CurrentPage  int
	ItemsPerPage int
	SearchTerm   string
	Selected     model.IDSet
	ViewMode     ViewMode
	Expanded     LabelSet
	Sort         SortConfig
	Submitting   bool
	Banner       Banner
	Confirm      Confirm
	Inline       Inline
	// TotalFiltered is the size of the filtered list, -1 until first computed.
	TotalFiltered int
}

func New(perPage int) State {
	if !AllowedPerPage(perPage) {
		perPage = DefaultPerPage
	}
	return State{
		CurrentPage:   1,
		ItemsPerPage:  perPage,
		Selected:      model.NewIDSet(),
		ViewMode:      Flat,
		Expanded:      NewLabelSet(),
		Sort:          DefaultSort,
		TotalFiltered: -1,
	}
}

// PageCount is ceil(total/perPage), at least 1.
func PageCount(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

func (s State) Pages() int {
	return PageCount(s.TotalFiltered, s.ItemsPerPage)
}

// LabelSet is an immutable set of group labels. Labels are kept verbatim.
type LabelSet map[string]struct{}

func NewLabelSet(labels ...string) LabelSet {
	out := make(LabelSet, len(labels))
	for _, l := range labels {
		out[l] = struct{}{}
	}
	return out
}

func (s LabelSet) Has(label string) bool {
	_, ok := s[label]
	return ok
}

func (s LabelSet) Len() int { return len(s) }

func (s LabelSet) With(labels ...string) LabelSet {
	out := make(LabelSet, len(s)+len(labels))
	for l := range s {
		out[l] = struct{}{}
	}
	for _, l := range labels {
		out[l] = struct{}{}
	}
	return out
}

func (s LabelSet) Toggle(label string) LabelSet {
	out := s.With()
	if s.Has(label) {
		delete(out, label)
	} else {
		out[label] = struct{}{}
	}
	return out
}

// Sorted returns the labels case-insensitively ascending.
func (s LabelSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i]), strings.ToLower(out[j])
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}

func (s LabelSet) Equal(o LabelSet) bool {
	if len(s) != len(o) {
		return false
	}
	for l := range s {
		if !o.Has(l) {
			return false
		}
	}
	return true
}
