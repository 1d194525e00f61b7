package viewmodel

import (
	"strings"
	"sync"

	"posadmin/internal/viewstate"
)

// Memo caches the last Result. Inputs with the same versions and view
// parameters return the identical Result, slices included.
type Memo struct {
	mu     sync.Mutex
	valid  bool
	key    memoKey
	result Result
}

type memoKey struct {
	kind     string
	itemsVer uint64
	catsVer  uint64
	term     string
	mode     viewstate.ViewMode
	expanded string
	sort     viewstate.SortConfig
	page     int
	perPage  int
}

// Compute returns the cached Result when itemsVersion, categoriesVersion and
// every view parameter of in match the previous call.
func (m *Memo) Compute(itemsVersion, categoriesVersion uint64, in Input) Result {
	k := memoKey{
		kind:     in.Kind.Slug,
		itemsVer: itemsVersion,
		catsVer:  categoriesVersion,
		term:     in.SearchTerm,
		mode:     in.Mode,
		expanded: strings.Join(in.Expanded.Sorted(), "\x00"),
		sort:     in.Sort,
		page:     in.Page,
		perPage:  in.PerPage,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.valid && m.key == k {
		return m.result
	}
	m.result = Compute(in)
	m.key = k
	m.valid = true
	return m.result
}

// Reset drops the cached Result.
func (m *Memo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = false
	m.result = Result{}
}
