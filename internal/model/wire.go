package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Wire aliases accepted on ingestion. The first present key wins.
var (
	idKeys       = []string{"id", "value"}
	nameKeys     = []string{"name", "label", "fullName", "full_name"}
	categoryKeys = []string{"category_id", "categoryId", "category"}
)

// UnmarshalJSON normalizes any of the heterogeneous backend shapes into an Entity once,
// so nothing downstream has to re-check optional aliases.
func (e *Entity) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("entity: null object")
	}
	out, err := EntityFromMap(raw)
	if err != nil {
		return err
	}
	*e = out
	return nil
}

// EntityFromMap normalizes a decoded wire object.
func EntityFromMap(raw map[string]any) (Entity, error) {
	var e Entity
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		fields[k] = plainJSON(v)
	}

	// Ids are taken from the undecoded value so large numeric ids keep their digits.
	if k, v, ok := firstPresent(raw, idKeys); ok {
		e.ID = CanonicalID(v)
		delete(fields, k)
	}
	if e.ID == "" {
		return Entity{}, errors.New("entity: missing id")
	}
	if k, v, ok := firstPresent(fields, nameKeys); ok {
		e.Name, _ = v.(string)
		delete(fields, k)
	}
	if k, v, ok := firstPresent(fields, categoryKeys); ok {
		// Some endpoints embed the category object instead of its id.
		if m, isMap := v.(map[string]any); isMap {
			if id, has := m["id"]; has {
				e.CategoryID = CanonicalID(id)
			}
		} else {
			e.CategoryID = CanonicalID(v)
		}
		delete(fields, k)
	}
	for _, k := range categoryKeys {
		delete(fields, k)
	}
	if v, ok := fields["description"].(string); ok {
		e.Description = v
		delete(fields, "description")
	}
	if v, ok := fields["url"].(string); ok {
		e.URL = strings.TrimSpace(v)
		delete(fields, "url")
	}
	if len(fields) > 0 {
		e.Fields = fields
	}
	return e, nil
}

func (e Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+5)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["id"] = e.ID
	out["name"] = e.Name
	if e.CategoryID != "" {
		out["category_id"] = e.CategoryID
	}
	if e.Description != "" {
		out["description"] = e.Description
	}
	if e.URL != "" {
		out["url"] = e.URL
	}
	return json.Marshal(out)
}

func firstPresent(m map[string]any, keys []string) (string, any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return k, v, true
		}
	}
	return "", nil, false
}

// plainJSON converts json.Number values (from UseNumber decoding) to float64 so
// opaque fields compare numerically without callers knowing about json.Number.
func plainJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = plainJSON(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = plainJSON(vv)
		}
		return out
	default:
		return v
	}
}
