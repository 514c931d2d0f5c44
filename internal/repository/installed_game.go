package repository

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/pops/player-service/internal/domain"
)

const installedGameColumns = `id, player_id, game_id, platform, installed_version`

type installedGameRepo struct{}

// NewInstalledGameRepository returns a pgx-backed InstalledGameRepository.
func NewInstalledGameRepository() InstalledGameRepository {
	return &installedGameRepo{}
}

func (r *installedGameRepo) FindAll(ctx context.Context, db DBTX) ([]domain.InstalledGame, error) {
	rows, err := db.Query(ctx, `SELECT `+installedGameColumns+` FROM installed_game`)
	if err != nil {
		return nil, fmt.Errorf("query installed games: %w", err)
	}
	return scanInstalledGames(rows)
}

func (r *installedGameRepo) FindByPlayer(ctx context.Context, db DBTX, playerID int64) ([]domain.InstalledGame, error) {
	rows, err := db.Query(ctx, `
		SELECT `+installedGameColumns+` FROM installed_game
		WHERE player_id = $1
		ORDER BY id`, playerID)
	if err != nil {
		return nil, fmt.Errorf("query player installed games: %w", err)
	}
	return scanInstalledGames(rows)
}

func (r *installedGameRepo) FindMatching(ctx context.Context, db DBTX, key domain.InstallKey) ([]domain.InstalledGame, error) {
	rows, err := db.Query(ctx, `
		SELECT `+installedGameColumns+` FROM installed_game
		WHERE player_id = $1 AND game_id = $2 AND platform = $3
		ORDER BY id`, key.PlayerID, key.GameID, string(key.Platform))
	if err != nil {
		return nil, fmt.Errorf("query installed game: %w", err)
	}
	return scanInstalledGames(rows)
}

func (r *installedGameRepo) Insert(ctx context.Context, db DBTX, key domain.InstallKey, version string) (*domain.InstalledGame, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO installed_game (player_id, game_id, platform, installed_version)
		VALUES ($1, $2, $3, $4)
		RETURNING `+installedGameColumns,
		key.PlayerID, key.GameID, string(key.Platform), version)
	g, err := scanInstalledGame(row)
	if err != nil {
		return nil, fmt.Errorf("insert installed game: %w", err)
	}
	return g, nil
}

func (r *installedGameRepo) Save(ctx context.Context, db DBTX, game domain.InstalledGame) (*domain.InstalledGame, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO installed_game (id, player_id, game_id, platform, installed_version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET installed_version = EXCLUDED.installed_version
		RETURNING `+installedGameColumns,
		game.ID, game.PlayerID, game.GameID, string(game.Platform), game.InstalledVersion)
	g, err := scanInstalledGame(row)
	if err != nil {
		return nil, fmt.Errorf("save installed game %d: %w", game.ID, err)
	}
	return g, nil
}

func (r *installedGameRepo) DeleteMatching(ctx context.Context, db DBTX, key domain.InstallKey) (int64, error) {
	tag, err := db.Exec(ctx, `
		DELETE FROM installed_game
		WHERE player_id = $1 AND game_id = $2 AND platform = $3`,
		key.PlayerID, key.GameID, string(key.Platform))
	if err != nil {
		return 0, fmt.Errorf("delete installed game: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *installedGameRepo) LockKey(ctx context.Context, tx pgx.Tx, key domain.InstallKey) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, AdvisoryLockID(key)); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	return nil
}

// AdvisoryLockID maps a key to the 64-bit id used with pg_advisory_xact_lock.
// Collisions only serialize unrelated keys, they never break correctness.
func AdvisoryLockID(key domain.InstallKey) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "installed_game/%d/%d/%s", key.PlayerID, key.GameID, key.Platform)
	return int64(h.Sum64())
}

func scanInstalledGames(rows pgx.Rows) ([]domain.InstalledGame, error) {
	defer rows.Close()

	var games []domain.InstalledGame
	for rows.Next() {
		var g domain.InstalledGame
		var platform string
		if err := rows.Scan(&g.ID, &g.PlayerID, &g.GameID, &platform, &g.InstalledVersion); err != nil {
			return nil, fmt.Errorf("scan installed game: %w", err)
		}
		g.Platform = domain.Platform(platform)
		games = append(games, g)
	}
	return games, rows.Err()
}

func scanInstalledGame(row pgx.Row) (*domain.InstalledGame, error) {
	var g domain.InstalledGame
	var platform string
	if err := row.Scan(&g.ID, &g.PlayerID, &g.GameID, &platform, &g.InstalledVersion); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	g.Platform = domain.Platform(platform)
	return &g, nil
}
