// Package entities holds the in-memory snapshot of candidate entities.
//
// The snapshot is replaced wholesale on refresh and never mutated in place.
// Lookups by id that miss the snapshot go to the entity service and are
// memoized for a short time.
package entities

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/abelbrown/civic/internal/model"
)

// DefaultLookupTTL is how long a service lookup stays memoized.
const DefaultLookupTTL = 5 * time.Minute

// Service is the entity service.
type Service interface {
	List(ctx context.Context) ([]model.Entity, error)
	Get(ctx context.Context, id string) (*model.Entity, error)
}

// Store is the entity snapshot. Safe for concurrent use.
type Store struct {
	svc    Service
	log    *zap.Logger
	lookup *gocache.Cache

	mu      sync.RWMutex
	all     []model.Entity
	byID    map[string]int
	updated time.Time
}

// New returns an empty Store over svc. A nil logger is replaced by a no-op.
func New(svc Service, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		svc: svc,
		log: log,
		// No janitor goroutine; expired entries are dropped on access and
		// on Replace.
		lookup: gocache.New(DefaultLookupTTL, 0),
		byID:   map[string]int{},
	}
}

// Fetch lists entities from the service without touching the snapshot.
func (s *Store) Fetch(ctx context.Context) ([]model.Entity, error) {
	list, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch entities: %w", err)
	}
	return list, nil
}

// Refresh re-fetches the snapshot. On failure the snapshot becomes empty and
// the error is returned.
func (s *Store) Refresh(ctx context.Context) error {
	list, err := s.Fetch(ctx)
	if err != nil {
		s.log.Warn("entity refresh failed", zap.Error(err))
		s.Replace(nil)
		return err
	}
	s.Replace(list)
	return nil
}

// Replace installs list as the snapshot. Entities with empty ids are dropped;
// for duplicate ids the first one wins.
func (s *Store) Replace(list []model.Entity) {
	all := make([]model.Entity, 0, len(list))
	byID := make(map[string]int, len(list))
	for _, e := range list {
		if e.ID == "" {
			continue
		}
		if _, dup := byID[e.ID]; dup {
			continue
		}
		byID[e.ID] = len(all)
		all = append(all, e)
	}

	s.mu.Lock()
	s.all = all
	s.byID = byID
	s.updated = time.Now()
	s.mu.Unlock()

	s.lookup.Flush()
	s.log.Debug("entity snapshot replaced", zap.Int("count", len(all)))
}

// All returns a copy of the snapshot in service order.
func (s *Store) All() []model.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Entity, len(s.all))
	copy(out, s.all)
	return out
}

// Len returns the snapshot size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.all)
}

// Updated returns when the snapshot was last replaced.
func (s *Store) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// Lookup returns the snapshot entity with id.
func (s *Store) Lookup(id string) (model.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return model.Entity{}, false
	}
	return s.all[i], true
}

// Get resolves id from the snapshot, then the memo, then the service.
func (s *Store) Get(ctx context.Context, id string) (*model.Entity, error) {
	if e, ok := s.Lookup(id); ok {
		return &e, nil
	}
	if v, ok := s.lookup.Get(id); ok {
		e := v.(model.Entity)
		return &e, nil
	}

	e, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get entity %s: %w", id, err)
	}
	s.lookup.SetDefault(id, *e)
	return e, nil
}
