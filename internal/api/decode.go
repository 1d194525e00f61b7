package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"posadmin/internal/model"
)

// Backends answer either with the bare value or wrapped in a single-key envelope
// ({"apps": [...]}, {"paymentTerm": {...}}). Both shapes are accepted here so the
// rest of the program only ever sees model.Entity.

func decodeList(body []byte) ([]model.Entity, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []model.Entity{}, nil
	}
	if body[0] == '{' {
		inner, err := unwrapEnvelope(body, '[')
		if err != nil {
			return nil, err
		}
		body = inner
	}
	var out []model.Entity
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if out == nil {
		out = []model.Entity{}
	}
	return out, nil
}

func decodeOne(body []byte) (model.Entity, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return model.Entity{}, errors.New("decode entity: empty response")
	}
	var e model.Entity
	if err := json.Unmarshal(body, &e); err == nil {
		return e, nil
	}
	inner, err := unwrapEnvelope(body, '{')
	if err != nil {
		return model.Entity{}, err
	}
	if err := json.Unmarshal(inner, &e); err != nil {
		return model.Entity{}, fmt.Errorf("decode entity: %w", err)
	}
	return e, nil
}

// unwrapEnvelope returns the only value in obj that starts with want ('[' or '{').
func unwrapEnvelope(obj []byte, want byte) ([]byte, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(obj, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	var found []byte
	for _, v := range env {
		v = bytes.TrimSpace(v)
		if len(v) == 0 || v[0] != want {
			continue
		}
		if found != nil {
			return nil, errors.New("decode envelope: ambiguous response (more than one candidate field)")
		}
		found = v
	}
	if found == nil {
		return nil, errors.New("decode envelope: no payload field")
	}
	return found, nil
}

// decodeDeleted treats an empty body as success and otherwise looks for
// {"deleted": <id or bool>}.
func decodeDeleted(body []byte) bool {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return true
	}
	var env map[string]any
	if err := json.Unmarshal(body, &env); err != nil {
		return true
	}
	v, ok := env["deleted"]
	if !ok {
		return true
	}
	switch x := v.(type) {
	case bool:
		return x
	case nil:
		return false
	default:
		return model.CanonicalID(x) != ""
	}
}
