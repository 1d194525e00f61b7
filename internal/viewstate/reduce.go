package viewstate

import (
	"strings"

	"posadmin/internal/model"
)

// Action is one of the transitions defined in this package.
type Action interface {
	apply(State) State
}

// Reduce returns the state after a. It has no side effects.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s)
}

// SetSearchTerm also returns to page 1 in the same transition.
type SetSearchTerm struct{ Term string }

func (a SetSearchTerm) apply(s State) State {
	s.SearchTerm = a.Term
	s.CurrentPage = 1
	return s
}

// SetCurrentPage clamps Page into the known page range.
type SetCurrentPage struct{ Page int }

func (a SetCurrentPage) apply(s State) State {
	p := a.Page
	if p < 1 {
		p = 1
	}
	if s.TotalFiltered >= 0 {
		if last := s.Pages(); p > last {
			p = last
		}
	}
	s.CurrentPage = p
	return s
}

// SetItemsPerPage ignores sizes outside PerPageChoices.
type SetItemsPerPage struct{ N int }

func (a SetItemsPerPage) apply(s State) State {
	if !AllowedPerPage(a.N) {
		return s
	}
	s.ItemsPerPage = a.N
	s.CurrentPage = 1
	return s
}

// SetTotalFiltered records the filtered count and returns to page 1 when the
// current page starts past the end of the list.
type SetTotalFiltered struct{ N int }

func (a SetTotalFiltered) apply(s State) State {
	n := a.N
	if n < 0 {
		n = 0
	}
	s.TotalFiltered = n
	if s.CurrentPage > 1 && n <= (s.CurrentPage-1)*s.ItemsPerPage {
		s.CurrentPage = 1
	}
	return s
}

type SelectionMode int

const (
	SelectToggle SelectionMode = iota
	SelectSet
	SelectUnset
	SelectReplace
)

type ToggleSelection struct {
	IDs  []string
	Mode SelectionMode
}

// ToggleOne flips membership of id.
func ToggleOne(id string) ToggleSelection {
	return ToggleSelection{IDs: []string{id}, Mode: SelectToggle}
}

// SetSelected forces membership of every id to on.
func SetSelected(ids []string, on bool) ToggleSelection {
	if on {
		return ToggleSelection{IDs: ids, Mode: SelectSet}
	}
	return ToggleSelection{IDs: ids, Mode: SelectUnset}
}

// ReplaceSelection makes ids the whole selection.
func ReplaceSelection(ids []string) ToggleSelection {
	return ToggleSelection{IDs: ids, Mode: SelectReplace}
}

func (a ToggleSelection) apply(s State) State {
	switch a.Mode {
	case SelectToggle:
		next := s.Selected
		for _, id := range a.IDs {
			id = model.CanonicalID(id)
			if next.Has(id) {
				next = next.Without(id)
			} else {
				next = next.With(id)
			}
		}
		s.Selected = next
	case SelectSet:
		s.Selected = s.Selected.With(a.IDs...)
	case SelectUnset:
		s.Selected = s.Selected.Without(a.IDs...)
	case SelectReplace:
		s.Selected = model.NewIDSet(a.IDs...)
	}
	return s
}

type OpenConfirm struct{ Pending PendingAction }

func (a OpenConfirm) apply(s State) State {
	s.Confirm = Confirm{Open: true, Pending: a.Pending}
	return s
}

type CloseConfirm struct{}

func (CloseConfirm) apply(s State) State {
	s.Confirm = Confirm{}
	return s
}

type SetSubmitting struct{ On bool }

func (a SetSubmitting) apply(s State) State {
	s.Submitting = a.On
	return s
}

// ShowBanner opens the banner under a fresh Seq.
type ShowBanner struct {
	Kind    BannerKind
	Message string
}

func (a ShowBanner) apply(s State) State {
	s.Banner = Banner{Open: true, Kind: a.Kind, Message: a.Message, Seq: s.Banner.Seq + 1}
	return s
}

// HideBanner closes the banner if Seq is the current one. Seq 0 always closes.
type HideBanner struct{ Seq uint64 }

func (a HideBanner) apply(s State) State {
	if a.Seq != 0 && a.Seq != s.Banner.Seq {
		return s
	}
	s.Banner.Open = false
	return s
}

type StartAddNew struct{}

func (StartAddNew) apply(s State) State {
	s.Inline = Inline{Mode: InlineAdding}
	return s
}

type StartEdit struct{ ID string }

func (a StartEdit) apply(s State) State {
	s.Inline = Inline{Mode: InlineEditing, ID: model.CanonicalID(a.ID)}
	return s
}

type FinishInline struct{}

func (FinishInline) apply(s State) State {
	s.Inline = Inline{}
	return s
}

type CancelInline struct{}

func (CancelInline) apply(s State) State {
	s.Inline = Inline{}
	return s
}

type SetInlineError struct{ Message string }

func (a SetInlineError) apply(s State) State {
	if s.Inline.Mode == InlineIdle {
		return s
	}
	s.Inline.Error = a.Message
	return s
}

// SetViewMode switches modes. A non-empty Sort replaces the active sort.
type SetViewMode struct {
	Mode ViewMode
	Sort SortConfig
}

func (a SetViewMode) apply(s State) State {
	if a.Mode != Flat && a.Mode != Grouped {
		return s
	}
	if a.Mode != s.ViewMode {
		s.CurrentPage = 1
	}
	s.ViewMode = a.Mode
	if a.Sort.Key != "" {
		s.Sort = NormalizeSort(a.Sort)
	}
	return s
}

type ToggleGroup struct{ Label string }

func (a ToggleGroup) apply(s State) State {
	s.Expanded = s.Expanded.Toggle(a.Label)
	return s
}

type ExpandGroups struct{ Labels []string }

func (a ExpandGroups) apply(s State) State {
	next := s.Expanded.With(a.Labels...)
	if !next.Equal(s.Expanded) {
		s.Expanded = next
	}
	return s
}

type CollapseGroups struct{}

func (CollapseGroups) apply(s State) State {
	s.Expanded = NewLabelSet()
	return s
}

// SetSort flips the direction when Key is already active, else sorts
// ascending by Key.
type SetSort struct{ Key string }

func (a SetSort) apply(s State) State {
	key := strings.TrimSpace(a.Key)
	if key == "" {
		return s
	}
	if key == s.Sort.Key {
		if s.Sort.Direction == Desc {
			s.Sort.Direction = Asc
		} else {
			s.Sort.Direction = Desc
		}
		return s
	}
	s.Sort = SortConfig{Key: key, Direction: Asc}
	return s
}

// PageBackIfEmpty steps back one page when the current page would hold none
// of the Remaining filtered items.
type PageBackIfEmpty struct{ Remaining int }

func (a PageBackIfEmpty) apply(s State) State {
	if s.CurrentPage > 1 && a.Remaining <= (s.CurrentPage-1)*s.ItemsPerPage {
		s.CurrentPage--
	}
	return s
}

// NormalizeSort fills defaults for a possibly partial sort config.
func NormalizeSort(c SortConfig) SortConfig {
	if c.Key == "" {
		return DefaultSort
	}
	if c.Direction != Desc {
		c.Direction = Asc
	}
	return c
}
