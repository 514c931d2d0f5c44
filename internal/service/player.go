package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pops/player-service/internal/catalog"
	"github.com/pops/player-service/internal/domain"
	"github.com/pops/player-service/internal/eventbus"
	"github.com/pops/player-service/internal/store"
)

// PlayerService is the player command layer. It validates input, applies
// install/update/uninstall rules to the store and publishes the matching event.
// Publishing is fire-and-forget: a bus failure is logged and never undoes a store write.
type PlayerService struct {
	store   store.Store
	catalog catalog.Lookup
	bus     eventbus.Publisher
	logger  *slog.Logger
	now     func() time.Time
}

// NewPlayerService creates a PlayerService.
func NewPlayerService(st store.Store, lookup catalog.Lookup, bus eventbus.Publisher, logger *slog.Logger) *PlayerService {
	return &PlayerService{
		store:   st,
		catalog: lookup,
		bus:     bus,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the time source used by the playtime timer.
func (s *PlayerService) WithClock(now func() time.Time) *PlayerService {
	s.now = now
	return s
}

// Registration is the input of Register.
type Registration struct {
	DistributorID int64
	Pseudo        string
	FirstName     string
	LastName      string
	BirthDate     time.Time
}

// CrashReport is the input of ReportCrash.
type CrashReport struct {
	PlayerID         int64
	GameID           int64
	Platform         string
	InstalledVersion string
	ErrorCode        int64
	Message          string
}

func (s *PlayerService) Register(ctx context.Context, r Registration) error {
	if strings.TrimSpace(r.Pseudo) == "" {
		return domain.ErrValidation("pseudo is required")
	}
	s.publish(ctx, domain.RegisterPlayer{
		DistributorID: r.DistributorID,
		Pseudo:        r.Pseudo,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		BirthDate:     r.BirthDate,
	})
	return nil
}

func (s *PlayerService) Purchase(ctx context.Context, playerID, gameID int64) error {
	s.publish(ctx, domain.PurchaseGame{PlayerID: playerID, GameID: gameID})
	return nil
}

// Review publishes a review. The rating must be within [MinRating, MaxRating].
func (s *PlayerService) Review(ctx context.Context, playerID, gameID int64, rating int, comment *string) error {
	if err := domain.ValidateRating(rating); err != nil {
		return err
	}
	s.publish(ctx, domain.ReviewGame{PlayerID: playerID, GameID: gameID, Rating: rating, Comment: comment})
	return nil
}

// Install records the published version of a game for a player and platform.
// It fails with NotFound when the game is not in the catalog and with Conflict
// when the key is already installed.
func (s *PlayerService) Install(ctx context.Context, playerID, gameID int64, platform string) (*domain.InstalledGame, error) {
	key, err := installKey(playerID, gameID, platform)
	if err != nil {
		return nil, err
	}

	published, err := s.published(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var installed *domain.InstalledGame
	err = s.store.WithKey(ctx, key, func(ctx context.Context, ops store.KeyOps) error {
		existing, err := ops.Find(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.ErrConflict(fmt.Sprintf("game already installed: %s at version %s", key, existing[0].InstalledVersion))
		}
		installed, err = ops.Insert(ctx, published.Version)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("game installed", "player_id", playerID, "game_id", gameID, "platform", key.Platform, "version", installed.InstalledVersion)
	s.publish(ctx, domain.InstallGame{PlayerID: playerID, GameID: gameID, Platform: key.Platform})
	return installed, nil
}

// Update moves an installation to the catalog's published version. The catalog
// version must be strictly newer than the installed one.
func (s *PlayerService) Update(ctx context.Context, playerID, gameID int64, platform string) (*domain.InstalledGame, error) {
	key, err := installKey(playerID, gameID, platform)
	if err != nil {
		return nil, err
	}

	published, err := s.published(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var updated *domain.InstalledGame
	err = s.store.WithKey(ctx, key, func(ctx context.Context, ops store.KeyOps) error {
		rows, err := ops.Find(ctx)
		if err != nil {
			return err
		}
		if len(rows) > 1 {
			s.logger.Warn("duplicate installations for key", "player_id", playerID, "game_id", gameID, "platform", key.Platform, "count", len(rows))
		}
		current := store.First(rows)
		if current == nil {
			return domain.ErrNotFound("installed game", key.String())
		}
		if !domain.IsNewerVersion(published.Version, current.InstalledVersion) {
			return domain.ErrConflict(fmt.Sprintf("version %s is not higher than installed %s", published.Version, current.InstalledVersion))
		}
		updated, err = ops.ReplaceVersion(ctx, *current, published.Version)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("game updated", "player_id", playerID, "game_id", gameID, "platform", key.Platform, "version", updated.InstalledVersion)
	s.publish(ctx, domain.UpdateGame{PlayerID: playerID, GameID: gameID, Platform: key.Platform, InstalledVersion: updated.InstalledVersion})
	return updated, nil
}

// Uninstall removes every row for the key and returns how many were removed.
// Uninstalling something that is not installed is only a warning.
func (s *PlayerService) Uninstall(ctx context.Context, playerID, gameID int64, platform string, comment *string) (int64, error) {
	key, err := installKey(playerID, gameID, platform)
	if err != nil {
		return 0, err
	}

	removed, err := s.store.DeleteMatching(ctx, key)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		s.logger.Warn("uninstall of a game that is not installed", "player_id", playerID, "game_id", gameID, "platform", key.Platform)
	}

	s.publish(ctx, domain.UninstallGame{PlayerID: playerID, GameID: gameID, Platform: key.Platform, Comment: comment})
	return removed, nil
}

// StartPlaytime starts the caller's timer. Nothing is published until it is stopped.
func (s *PlayerService) StartPlaytime(timer domain.PlaytimeTimer, playerID, gameID int64) (domain.PlaytimeTimer, error) {
	return timer.Start(playerID, gameID, s.now())
}

// StopPlaytime stops the caller's timer and publishes the exact elapsed milliseconds.
func (s *PlayerService) StopPlaytime(ctx context.Context, timer domain.PlaytimeTimer) (domain.PlaytimeTimer, domain.PlaySession, error) {
	next, session, err := timer.Stop(s.now())
	if err != nil {
		return timer, domain.PlaySession{}, err
	}
	s.publish(ctx, domain.AddPlayTime{PlayerID: session.PlayerID, GameID: session.GameID, Time: session.ElapsedMillis()})
	return next, session, nil
}

func (s *PlayerService) ReportCrash(ctx context.Context, r CrashReport) error {
	platform, err := domain.ParsePlatform(r.Platform)
	if err != nil {
		return err
	}
	s.publish(ctx, domain.ReportCrash{
		PlayerID:         r.PlayerID,
		GameID:           r.GameID,
		Platform:         platform,
		InstalledVersion: r.InstalledVersion,
		ErrorCode:        r.ErrorCode,
		Message:          r.Message,
	})
	return nil
}

func (s *PlayerService) AddWishedGame(ctx context.Context, playerID, gameID int64) error {
	s.publish(ctx, domain.AddWishedGame{PlayerID: playerID, GameID: gameID})
	return nil
}

func (s *PlayerService) RemoveWishedGame(ctx context.Context, playerID, gameID int64) error {
	s.publish(ctx, domain.RemoveWishedGame{PlayerID: playerID, GameID: gameID})
	return nil
}

// ReactReview publishes a reaction. reactType must be 0, 1 or 2.
func (s *PlayerService) ReactReview(ctx context.Context, playerID, reviewID int64, reactType int) error {
	rt, err := domain.ValidateReactType(reactType)
	if err != nil {
		return err
	}
	s.publish(ctx, domain.ReactReview{PlayerID: playerID, ReviewID: reviewID, ReactType: rt})
	return nil
}

func (s *PlayerService) AskPlayerPage(ctx context.Context, playerID int64) error {
	s.publish(ctx, domain.AskPlayerPage{PlayerID: playerID})
	return nil
}

func (s *PlayerService) AskGamesPage(ctx context.Context, playerID int64, page int) error {
	if page < 0 {
		return domain.ErrValidation("page must not be negative, got " + strconv.Itoa(page))
	}
	s.publish(ctx, domain.AskGamesPage{PlayerID: playerID, Page: page})
	return nil
}

func (s *PlayerService) AskGameReviews(ctx context.Context, playerID, gameID int64) error {
	s.publish(ctx, domain.AskGameReviews{PlayerID: playerID, GameID: gameID})
	return nil
}

// ListInstalled returns every installation.
func (s *PlayerService) ListInstalled(ctx context.Context) ([]domain.InstalledGame, error) {
	return s.store.FindAll(ctx)
}

// ListByPlayer returns the installations of one player.
func (s *PlayerService) ListByPlayer(ctx context.Context, playerID int64) ([]domain.InstalledGame, error) {
	return s.store.FindByPlayer(ctx, playerID)
}

func (s *PlayerService) published(ctx context.Context, gameID int64) (*domain.PublishedVersion, error) {
	published, err := s.catalog.Lookup(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if published == nil {
		return nil, domain.ErrNotFound("game in catalog", strconv.FormatInt(gameID, 10))
	}
	return published, nil
}

// publish hands the event to the bus and only logs a failure.
func (s *PlayerService) publish(ctx context.Context, ev domain.Event) {
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.logger.Error("publish failed", "topic", ev.Topic(), "error", err)
	}
}

func installKey(playerID, gameID int64, platform string) (domain.InstallKey, error) {
	p, err := domain.ParsePlatform(platform)
	if err != nil {
		return domain.InstallKey{}, err
	}
	return domain.InstallKey{PlayerID: playerID, GameID: gameID, Platform: p}, nil
}
