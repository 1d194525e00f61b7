// Package collection holds the authoritative in-memory collection for one
// entity kind and reconciles it with the backend.
package collection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"posadmin/internal/api"
	"posadmin/internal/logging"
	"posadmin/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Store is safe for concurrent use. The slice returned by Snapshot is never
// modified after it is published; every mutation publishes a new one.
type Store struct {
	kind   model.Kind
	client api.Client
	log    logrus.FieldLogger

	mu       sync.Mutex
	items    []model.Entity
	version  uint64
	gen      uint64
	collator *collate.Collator
	reserved map[string]int
}

func New(client api.Client, kind model.Kind, log logrus.FieldLogger) *Store {
	return &Store{
		kind:     kind,
		client:   client,
		log:      logging.OrDiscard(log).WithField("kind", kind.Slug),
		items:    []model.Entity{},
		collator: collate.New(language.Und, collate.IgnoreCase),
		reserved: map[string]int{},
	}
}

func (s *Store) Kind() model.Kind { return s.kind }

// Snapshot returns the current collection. Callers must treat it as read-only.
func (s *Store) Snapshot() []model.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

// Version increases by one on every published change.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Current returns Snapshot and Version read together.
func (s *Store) Current() ([]model.Entity, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items, s.version
}

func (s *Store) Lookup(id string) (model.Entity, bool) {
	id = model.CanonicalID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.items, id); i >= 0 {
		return s.items[i], true
	}
	return model.Entity{}, false
}

// Load replaces the collection wholesale with the backend's.
func (s *Store) Load(ctx context.Context) ([]model.Entity, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	items, err := s.client.ListAll(ctx, s.kind)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.log.WithField("generation", gen).Debug("discarding superseded load")
		return nil, ErrSuperseded
	}
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).Warn("load failed")
		return nil, FetchError{Kind: s.kind.Plural(), Err: err}
	}

	next := make([]model.Entity, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, e := range items {
		if _, dup := seen[e.ID]; dup {
			s.log.WithField("id", e.ID).Warn("dropping duplicate id from load")
			continue
		}
		seen[e.ID] = struct{}{}
		next = append(next, e)
	}
	s.publishLocked(next)
	s.mu.Unlock()
	return next, nil
}

// Create appends the backend's copy of draft and re-sorts by name.
func (s *Store) Create(ctx context.Context, draft model.Draft) (model.Entity, error) {
	name := draft.Name()
	if name == "" {
		return model.Entity{}, ValidationError{Field: "name", Message: "is required"}
	}
	payload := model.Draft{}
	for k, v := range draft {
		payload[k] = v
	}
	payload["name"] = name

	created, err := s.client.Create(ctx, s.kind, payload)
	if err != nil {
		s.log.WithError(err).WithField("name", name).Warn("create failed")
		return model.Entity{}, RemoteError{Op: "create", Kind: s.kind.Label, Err: err}
	}

	s.mu.Lock()
	next := make([]model.Entity, 0, len(s.items)+1)
	for _, e := range s.items {
		if e.ID != created.ID {
			next = append(next, e)
		}
	}
	next = append(next, created)
	s.sortByNameLocked(next)
	s.publishLocked(next)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"id": created.ID, "name": created.Name}).Info("created")
	return created, nil
}

// Update patches one entity. The id must be present locally before the call.
func (s *Store) Update(ctx context.Context, id string, patch model.Patch) (model.Entity, error) {
	id = model.CanonicalID(id)
	if _, ok := s.Lookup(id); !ok {
		return model.Entity{}, NotFoundError{Kind: s.kind.Label, ID: id}
	}
	if name, ok := patch.Name(); ok {
		if name == "" {
			return model.Entity{}, ValidationError{Field: "name", Message: "is required"}
		}
		p := model.Patch{}
		for k, v := range patch {
			p[k] = v
		}
		p["name"] = name
		patch = p
	}

	updated, err := s.client.Update(ctx, s.kind, id, patch)
	if err != nil {
		if api.IsNotFound(err) {
			return model.Entity{}, NotFoundError{Kind: s.kind.Label, ID: id}
		}
		s.log.WithError(err).WithField("id", id).Warn("update failed")
		return model.Entity{}, RemoteError{Op: "update", Kind: s.kind.Label, ID: id, Err: err}
	}
	if updated.ID == "" {
		updated.ID = id
	}

	s.mu.Lock()
	next := make([]model.Entity, 0, len(s.items))
	replaced := false
	for _, e := range s.items {
		if e.ID == id {
			next = append(next, updated)
			replaced = true
			continue
		}
		next = append(next, e)
	}
	if !replaced {
		// Removed while the call was in flight; the removal wins.
		s.mu.Unlock()
		return updated, nil
	}
	s.sortByNameLocked(next)
	s.publishLocked(next)
	s.mu.Unlock()
	return updated, nil
}

// Remove deletes one entity. A backend 404 counts as already deleted only
// when the id was in the collection; an id unknown on both sides is a
// NotFoundError.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	id = model.CanonicalID(id)
	_, known := s.Lookup(id)
	ok, err := s.client.Delete(ctx, s.kind, id)
	if err != nil {
		if !api.IsNotFound(err) {
			s.log.WithError(err).WithField("id", id).Warn("delete failed")
			return false, RemoteError{Op: "delete", Kind: s.kind.Label, ID: id, Err: err}
		}
		if !known {
			return false, NotFoundError{Kind: s.kind.Label, ID: id}
		}
		s.log.WithField("id", id).Debug("delete: already gone remotely")
		ok = true
	}
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	i := indexOf(s.items, id)
	if i < 0 {
		s.mu.Unlock()
		return true, nil
	}
	next := make([]model.Entity, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	s.publishLocked(next)
	s.mu.Unlock()
	return true, nil
}

// Duplicate creates a copy of id under the next free "(Copy N)" name.
func (s *Store) Duplicate(ctx context.Context, id string) (model.Entity, error) {
	id = model.CanonicalID(id)
	s.mu.Lock()
	i := indexOf(s.items, id)
	if i < 0 {
		s.mu.Unlock()
		return model.Entity{}, NotFoundError{Kind: s.kind.Label, ID: id}
	}
	src := s.items[i]
	name := s.uniqueCopyNameLocked(src.Name)
	key := strings.ToLower(name)
	s.reserved[key]++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.reserved[key]--; s.reserved[key] <= 0 {
			delete(s.reserved, key)
		}
		s.mu.Unlock()
	}()

	draft := model.DraftFrom(src)
	draft["name"] = name
	return s.Create(ctx, draft)
}

// UniqueCopyName returns the first of "S (Copy)", "S (Copy 2)", ... that no
// entity (or in-flight duplicate) uses, compared case-insensitively.
func (s *Store) UniqueCopyName(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uniqueCopyNameLocked(name)
}

func (s *Store) uniqueCopyNameLocked(name string) string {
	base := strings.TrimSpace(name)
	taken := make(map[string]struct{}, len(s.items)+len(s.reserved))
	for _, e := range s.items {
		taken[strings.ToLower(strings.TrimSpace(e.Name))] = struct{}{}
	}
	for k := range s.reserved {
		taken[k] = struct{}{}
	}
	candidate := base + " (Copy)"
	for n := 2; ; n++ {
		if _, used := taken[strings.ToLower(candidate)]; !used {
			return candidate
		}
		candidate = fmt.Sprintf("%s (Copy %d)", base, n)
	}
}

func (s *Store) sortByNameLocked(items []model.Entity) {
	sortEntities(items, func(a, b model.Entity) int {
		if c := s.collator.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return model.CompareIDs(a.ID, b.ID)
	})
}

// publishLocked installs next as a new version.
func (s *Store) publishLocked(next []model.Entity) {
	s.items = next
	s.version++
}

func indexOf(items []model.Entity, id string) int {
	for i, e := range items {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func sortEntities(items []model.Entity, cmp func(a, b model.Entity) int) {
	sort.SliceStable(items, func(i, j int) bool { return cmp(items[i], items[j]) < 0 })
}
