// Package apitest provides an in-memory api.Client for tests and offline demos.
package apitest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"posadmin/internal/api"
	"posadmin/internal/model"
)

// Op names used for failure injection and call recording.
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Call is one recorded client call.
type Call struct {
	Op   string
	Kind string
	ID   string
}

// Server is a thread-safe in-memory backend. Ids are assigned from a numeric
// sequence, like the real backend's serial keys.
type Server struct {
	mu     sync.Mutex
	data   map[string][]model.Entity
	nextID int
	fail   map[string]error
	calls  []Call
	hook   func(Call)
}

var _ api.Client = (*Server)(nil)

func NewServer() *Server {
	return &Server{
		data:   map[string][]model.Entity{},
		nextID: 1000,
		fail:   map[string]error{},
	}
}

// Seed replaces the stored collection for kind.
func (s *Server) Seed(kind model.Kind, items ...model.Entity) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]model.Entity, len(items))
	for i, it := range items {
		cp[i] = it.Clone()
	}
	s.data[kind.Slug] = cp
	return s
}

// FailOn makes op on (kind, id) return err. An empty id matches every id.
// Creates have no id yet; they are matched by draft name.
func (s *Server) FailOn(kind model.Kind, op, id string, err error) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[failKey(kind.Slug, op, id)] = err
	return s
}

// ClearFailures removes every injected failure.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = map[string]error{}
}

// OnCall registers a hook invoked (outside the lock) before each call is served.
// Tests use it to block or reorder calls.
func (s *Server) OnCall(fn func(Call)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// Calls returns a copy of the recorded calls.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Items returns a copy of the stored collection for kind.
func (s *Server) Items(kind model.Kind) []model.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Entity, len(s.data[kind.Slug]))
	copy(out, s.data[kind.Slug])
	return out
}

func failKey(kind, op, id string) string {
	return kind + "|" + op + "|" + id
}

func (s *Server) begin(kind model.Kind, op, id string) error {
	s.mu.Lock()
	c := Call{Op: op, Kind: kind.Slug, ID: id}
	s.calls = append(s.calls, c)
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[failKey(kind.Slug, op, id)]; ok {
		return err
	}
	if err, ok := s.fail[failKey(kind.Slug, op, "")]; ok {
		return err
	}
	return nil
}

func (s *Server) ListAll(ctx context.Context, kind model.Kind) ([]model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.begin(kind, OpList, ""); err != nil {
		return nil, err
	}
	return s.Items(kind), nil
}

func (s *Server) Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return model.Entity{}, err
	}
	if err := s.begin(kind, OpGet, id); err != nil {
		return model.Entity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.data[kind.Slug] {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return model.Entity{}, fmt.Errorf("get %s %s: %w", kind.Slug, id, api.ErrNotFound)
}

func (s *Server) Create(ctx context.Context, kind model.Kind, draft model.Draft) (model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return model.Entity{}, err
	}
	if err := s.begin(kind, OpCreate, draft.Name()); err != nil {
		return model.Entity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	raw := map[string]any{}
	for k, v := range draft {
		raw[k] = v
	}
	raw["id"] = strconv.Itoa(s.nextID)
	e, err := model.EntityFromMap(raw)
	if err != nil {
		return model.Entity{}, err
	}
	s.data[kind.Slug] = append(s.data[kind.Slug], e)
	return e.Clone(), nil
}

func (s *Server) Update(ctx context.Context, kind model.Kind, id string, patch model.Patch) (model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return model.Entity{}, err
	}
	if err := s.begin(kind, OpUpdate, id); err != nil {
		return model.Entity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.data[kind.Slug]
	for i, e := range items {
		if e.ID != id {
			continue
		}
		raw := map[string]any(model.DraftFrom(e))
		for k, v := range patch {
			raw[k] = v
		}
		raw["id"] = id
		next, err := model.EntityFromMap(raw)
		if err != nil {
			return model.Entity{}, err
		}
		items[i] = next
		return next.Clone(), nil
	}
	return model.Entity{}, fmt.Errorf("update %s %s: %w", kind.Slug, id, api.ErrNotFound)
}

func (s *Server) Delete(ctx context.Context, kind model.Kind, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.begin(kind, OpDelete, id); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.data[kind.Slug]
	for i, e := range items {
		if e.ID == id {
			next := make([]model.Entity, 0, len(items)-1)
			next = append(next, items[:i]...)
			next = append(next, items[i+1:]...)
			s.data[kind.Slug] = next
			return true, nil
		}
	}
	return false, fmt.Errorf("delete %s %s: %w", kind.Slug, id, api.ErrNotFound)
}
