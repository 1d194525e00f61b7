package viewmodel

// Nav is what a detail view needs to render "N of M" and step through the
// list in its rendered order.
type Nav struct {
	CurrentIndex int // 1-based
	TotalItems   int
	VisibleIDs   []string
}

// Navigation locates id among the visible ids of r.
func Navigation(r Result, id string) (Nav, bool) {
	for i, v := range r.VisibleIDs {
		if v == id {
			return Nav{CurrentIndex: i + 1, TotalItems: len(r.VisibleIDs), VisibleIDs: r.VisibleIDs}, true
		}
	}
	return Nav{TotalItems: len(r.VisibleIDs), VisibleIDs: r.VisibleIDs}, false
}

func (n Nav) Next() (string, bool) {
	if n.CurrentIndex < 1 || n.CurrentIndex >= len(n.VisibleIDs) {
		return "", false
	}
	return n.VisibleIDs[n.CurrentIndex], true
}

func (n Nav) Prev() (string, bool) {
	if n.CurrentIndex < 2 || n.CurrentIndex > len(n.VisibleIDs) {
		return "", false
	}
	return n.VisibleIDs[n.CurrentIndex-2], true
}
