package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pops/player-service/internal/domain"
)

// MemoryStore is an in-process Store for development and tests.
// WithKey holds a per-key mutex; writes inside it apply immediately and are
// rolled back if fn fails.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]domain.InstalledGame
	nextID int64

	locksMu sync.Mutex
	locks   map[domain.InstallKey]*sync.Mutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:  make(map[int64]domain.InstalledGame),
		locks: make(map[domain.InstallKey]*sync.Mutex),
	}
}

func (s *MemoryStore) FindAll(_ context.Context) ([]domain.InstalledGame, error) {
	return s.filter(func(domain.InstalledGame) bool { return true }), nil
}

func (s *MemoryStore) FindByPlayer(_ context.Context, playerID int64) ([]domain.InstalledGame, error) {
	return s.filter(func(g domain.InstalledGame) bool { return g.PlayerID == playerID }), nil
}

func (s *MemoryStore) FindMatching(_ context.Context, key domain.InstallKey) ([]domain.InstalledGame, error) {
	return s.filter(func(g domain.InstalledGame) bool { return g.Key() == key }), nil
}

func (s *MemoryStore) Insert(ctx context.Context, key domain.InstallKey, version string) (*domain.InstalledGame, error) {
	var out *domain.InstalledGame
	err := s.WithKey(ctx, key, func(ctx context.Context, ops KeyOps) error {
		g, err := ops.Insert(ctx, version)
		out = g
		return err
	})
	return out, err
}

func (s *MemoryStore) ReplaceVersion(ctx context.Context, existing domain.InstalledGame, version string) (*domain.InstalledGame, error) {
	var out *domain.InstalledGame
	err := s.WithKey(ctx, existing.Key(), func(ctx context.Context, ops KeyOps) error {
		g, err := ops.ReplaceVersion(ctx, existing, version)
		out = g
		return err
	})
	return out, err
}

func (s *MemoryStore) DeleteMatching(ctx context.Context, key domain.InstallKey) (int64, error) {
	var n int64
	err := s.WithKey(ctx, key, func(ctx context.Context, ops KeyOps) error {
		var err error
		n, err = ops.Delete(ctx)
		return err
	})
	return n, err
}

func (s *MemoryStore) WithKey(ctx context.Context, key domain.InstallKey, fn func(ctx context.Context, ops KeyOps) error) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	before := s.snapshot(key)
	if err := fn(ctx, &memoryKeyOps{store: s, key: key}); err != nil {
		s.restore(key, before)
		return err
	}
	return nil
}

func (s *MemoryStore) keyLock(key domain.InstallKey) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *MemoryStore) filter(match func(domain.InstalledGame) bool) []domain.InstalledGame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.InstalledGame
	for _, g := range s.rows {
		if match(g) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) snapshot(key domain.InstallKey) []domain.InstalledGame {
	return s.filter(func(g domain.InstalledGame) bool { return g.Key() == key })
}

func (s *MemoryStore) restore(key domain.InstallKey, rows []domain.InstalledGame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, g := range s.rows {
		if g.Key() == key {
			delete(s.rows, id)
		}
	}
	for _, g := range rows {
		s.rows[g.ID] = g
	}
}

type memoryKeyOps struct {
	store *MemoryStore
	key   domain.InstallKey
}

func (o *memoryKeyOps) Find(_ context.Context) ([]domain.InstalledGame, error) {
	return o.store.snapshot(o.key), nil
}

func (o *memoryKeyOps) Insert(_ context.Context, version string) (*domain.InstalledGame, error) {
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	g := domain.InstalledGame{
		ID:               s.nextID,
		PlayerID:         o.key.PlayerID,
		GameID:           o.key.GameID,
		Platform:         o.key.Platform,
		InstalledVersion: version,
	}
	s.rows[g.ID] = g
	return &g, nil
}

func (o *memoryKeyOps) ReplaceVersion(_ context.Context, existing domain.InstalledGame, version string) (*domain.InstalledGame, error) {
	if existing.Key() != o.key {
		return nil, fmt.Errorf("replace version: row %d belongs to %s, lock held for %s", existing.ID, existing.Key(), o.key)
	}

	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()

	g := existing.WithVersion(version)
	s.rows[g.ID] = g
	if g.ID > s.nextID {
		s.nextID = g.ID
	}
	return &g, nil
}

func (o *memoryKeyOps) Delete(_ context.Context) (int64, error) {
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, g := range s.rows {
		if g.Key() == o.key {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PgStore)(nil)
)
