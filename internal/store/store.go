// Package store owns the persisted installations and serializes
// read-modify-write sequences per (player, game, platform) key.
package store

import (
	"context"

	"github.com/pops/player-service/internal/domain"
)

// Store is the catalog of installations. Every method runs as one atomic unit.
type Store interface {
	FindAll(ctx context.Context) ([]domain.InstalledGame, error)
	FindByPlayer(ctx context.Context, playerID int64) ([]domain.InstalledGame, error)
	FindMatching(ctx context.Context, key domain.InstallKey) ([]domain.InstalledGame, error)
	Insert(ctx context.Context, key domain.InstallKey, version string) (*domain.InstalledGame, error)
	ReplaceVersion(ctx context.Context, existing domain.InstalledGame, version string) (*domain.InstalledGame, error)
	DeleteMatching(ctx context.Context, key domain.InstallKey) (int64, error)

	// WithKey runs fn while holding the key's write lock. Writes made through ops
	// are committed only if fn returns nil.
	WithKey(ctx context.Context, key domain.InstallKey, fn func(ctx context.Context, ops KeyOps) error) error
}

// KeyOps are the primitives available inside WithKey, bound to its key.
type KeyOps interface {
	Find(ctx context.Context) ([]domain.InstalledGame, error)
	Insert(ctx context.Context, version string) (*domain.InstalledGame, error)
	ReplaceVersion(ctx context.Context, existing domain.InstalledGame, version string) (*domain.InstalledGame, error)
	Delete(ctx context.Context) (int64, error)
}

// First returns the first row of a FindMatching result, or nil.
func First(games []domain.InstalledGame) *domain.InstalledGame {
	if len(games) == 0 {
		return nil
	}
	g := games[0]
	return &g
}
