package model

import (
	"encoding/json"
	"sort"
	"strings"
)

// Entity is one record of a managed collection (app, payment term, user, contact, ...).
//
// The list machinery only understands ID, Name, CategoryID, Description and URL.
// Every other wire field is carried through Fields untouched.
type Entity struct {
	ID          string
	Name        string
	CategoryID  string
	Description string
	URL         string

	Fields map[string]any
}

// Option is the canonical {id, label} pair used by pickers.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (e Entity) Option() Option {
	return Option{ID: e.ID, Label: e.Name}
}

// Field returns a field by wire name, including the well-known ones.
func (e Entity) Field(key string) (any, bool) {
	switch key {
	case "id":
		return e.ID, true
	case "name":
		return e.Name, true
	case "category_id", "categoryId":
		if e.CategoryID == "" {
			return nil, false
		}
		return e.CategoryID, true
	case "description":
		return e.Description, e.Description != ""
	case "url":
		return e.URL, e.URL != ""
	}
	v, ok := e.Fields[key]
	return v, ok
}

// StringField returns a field formatted as a string ("" when missing).
func (e Entity) StringField(key string) string {
	v, ok := e.Field(key)
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatNumber(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Clone returns a copy whose Fields map can be modified independently.
func (e Entity) Clone() Entity {
	out := e
	if e.Fields != nil {
		out.Fields = make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// FieldKeys returns the opaque field names in a stable order.
func (e Entity) FieldKeys() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Draft is the payload of a create call.
type Draft map[string]any

func (d Draft) Name() string {
	s, _ := d["name"].(string)
	return strings.TrimSpace(s)
}

// Patch is the payload of an update call.
type Patch map[string]any

func (p Patch) Name() (string, bool) {
	v, ok := p["name"]
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return strings.TrimSpace(s), true
}

// DraftFrom builds a create payload carrying every field of e except its id.
func DraftFrom(e Entity) Draft {
	d := Draft{}
	for k, v := range e.Fields {
		d[k] = v
	}
	d["name"] = e.Name
	if e.CategoryID != "" {
		d["category_id"] = e.CategoryID
	}
	if e.Description != "" {
		d["description"] = e.Description
	}
	if e.URL != "" {
		d["url"] = e.URL
	}
	return d
}
