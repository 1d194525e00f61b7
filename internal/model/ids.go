package model

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// CanonicalID coerces a wire id into the one id type used after ingestion.
//
// Numbers become their integer decimal form, numeric strings lose surrounding
// whitespace and leading zeros, and anything else is trimmed. The result is
// only ever compared with ==.
func CanonicalID(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return canonicalIDString(x)
	case float64:
		return formatNumber(x)
	case float32:
		return formatNumber(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return canonicalIDString(x.String())
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return canonicalIDString(strings.Trim(string(b), `"`))
	}
}

func canonicalIDString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return s
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CompareIDs orders ids numerically when both are integers, else lexically.
func CompareIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// IDSet is an immutable set of canonical ids. Mutating helpers return a new set.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	out := make(IDSet, len(ids))
	for _, id := range ids {
		if id = CanonicalID(id); id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

// Sorted returns the ids in CompareIDs order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

func (s IDSet) With(ids ...string) IDSet {
	out := make(IDSet, len(s)+len(ids))
	for id := range s {
		out[id] = struct{}{}
	}
	for _, id := range ids {
		if id = CanonicalID(id); id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s IDSet) Without(ids ...string) IDSet {
	drop := NewIDSet(ids...)
	out := make(IDSet, len(s))
	for id := range s {
		if !drop.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s IDSet) Equal(o IDSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return CompareIDs(ids[i], ids[j]) < 0 })
}
