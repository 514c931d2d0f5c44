package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pops/player-service/internal/domain"
	"github.com/pops/player-service/internal/store"
)

// AdminInsert writes an installation directly, bypassing the catalog. No event is published.
// The one-row-per-key rule still holds.
func (s *PlayerService) AdminInsert(ctx context.Context, playerID, gameID int64, platform, version string) (*domain.InstalledGame, error) {
	key, err := installKey(playerID, gameID, platform)
	if err != nil {
		return nil, err
	}
	if err := requireVersion(version); err != nil {
		return nil, err
	}

	var inserted *domain.InstalledGame
	err = s.store.WithKey(ctx, key, func(ctx context.Context, ops store.KeyOps) error {
		existing, err := ops.Find(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.ErrConflict(fmt.Sprintf("game already installed: %s (id %d)", key, existing[0].ID))
		}
		inserted, err = ops.Insert(ctx, version)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("installation added", "id", inserted.ID, "player_id", playerID, "game_id", gameID, "platform", key.Platform, "version", version)
	return inserted, nil
}

// AdminSetVersion overwrites the installed version without the monotonic check.
func (s *PlayerService) AdminSetVersion(ctx context.Context, playerID, gameID int64, platform, version string) (*domain.InstalledGame, error) {
	key, err := installKey(playerID, gameID, platform)
	if err != nil {
		return nil, err
	}
	if err := requireVersion(version); err != nil {
		return nil, err
	}

	var updated *domain.InstalledGame
	err = s.store.WithKey(ctx, key, func(ctx context.Context, ops store.KeyOps) error {
		rows, err := ops.Find(ctx)
		if err != nil {
			return err
		}
		current := store.First(rows)
		if current == nil {
			return domain.ErrNotFound("installed game", key.String())
		}
		updated, err = ops.ReplaceVersion(ctx, *current, version)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("installation version set", "id", updated.ID, "player_id", playerID, "game_id", gameID, "platform", key.Platform, "version", version)
	return updated, nil
}

// AdminDelete removes the rows for a key. Unlike Uninstall, absence is NotFound.
func (s *PlayerService) AdminDelete(ctx context.Context, playerID, gameID int64, platform string) (int64, error) {
	key, err := installKey(playerID, gameID, platform)
	if err != nil {
		return 0, err
	}
	removed, err := s.store.DeleteMatching(ctx, key)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, domain.ErrNotFound("installed game", key.String())
	}
	s.logger.Info("installation removed", "player_id", playerID, "game_id", gameID, "platform", key.Platform, "count", removed)
	return removed, nil
}

func requireVersion(version string) error {
	if strings.TrimSpace(version) == "" {
		return domain.ErrValidation("version is required")
	}
	return nil
}
