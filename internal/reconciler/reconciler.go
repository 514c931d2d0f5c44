// Package reconciler applies distributor events to the installation store and
// records every received event in the consume log.
package reconciler

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/pops/player-service/internal/domain"
	"github.com/pops/player-service/internal/eventbus"
	"github.com/pops/player-service/internal/store"
)

// CatalogInvalidator drops a cached published version.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, gameID int64) error
}

// Reconciler handles deliveries from every inbound topic.
type Reconciler struct {
	store  store.Store
	audit  AuditLog
	logger *slog.Logger

	invalidator CatalogInvalidator
}

// New creates a Reconciler.
func New(st store.Store, audit AuditLog, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: st, audit: audit, logger: logger}
}

// WithCatalogInvalidator makes PatchDistributed drop the patched game's cached version.
func (r *Reconciler) WithCatalogInvalidator(inv CatalogInvalidator) *Reconciler {
	r.invalidator = inv
	return r
}

// Listeners returns one stopped listener per inbound topic, all handled by r.
func (r *Reconciler) Listeners(open eventbus.ReaderFactory, logger *slog.Logger) []*eventbus.Listener {
	out := make([]*eventbus.Listener, 0, len(domain.InboundTopics))
	for _, topic := range domain.InboundTopics {
		out = append(out, eventbus.NewListener(topic, open, r.Handle, logger))
	}
	return out
}

// Handle records the delivery in the audit log, then processes it.
// The audit entry is written whatever the processing outcome.
func (r *Reconciler) Handle(ctx context.Context, d eventbus.Delivery) error {
	r.record(ctx, d)

	switch d.Topic {
	case domain.TopicSendGameFile:
		var ev domain.SendGameFile
		if err := decode(d, &ev); err != nil {
			return err
		}
		_, err := r.ApplyGameFile(ctx, ev)
		return err

	case domain.TopicPatchDistributed:
		var ev domain.PatchDistributed
		if err := decode(d, &ev); err != nil {
			return err
		}
		r.logger.Info("patch distributed", "game_id", ev.GameID, "version", ev.NewVersion, "game_name", ev.GameName)
		if r.invalidator != nil {
			if err := r.invalidator.Invalidate(ctx, ev.GameID); err != nil {
				r.logger.Warn("catalog cache invalidation failed", "game_id", ev.GameID, "error", err)
			}
		}
		return nil
	}

	ev, ok := informational(d.Topic)
	if !ok {
		return domain.ErrMalformedEvent(d.Topic, "no handler for topic", nil)
	}
	if err := decode(d, ev); err != nil {
		return err
	}
	r.logger.Info("distributor event", "topic", d.Topic, "routing_key", d.RoutingKey, "event", ev)
	return nil
}

// ApplyGameFile installs the delivered version for the target player, replacing
// any version already recorded for the key. Redelivery converges on the same row.
func (r *Reconciler) ApplyGameFile(ctx context.Context, ev domain.SendGameFile) (*domain.InstalledGame, error) {
	platform, err := domain.ParsePlatform(ev.Platform)
	if err != nil {
		r.logger.Error("game file with invalid platform", "player_id", ev.TargetID, "game_id", ev.GameID, "platform", ev.Platform, "error", err)
		return nil, err
	}
	if strings.TrimSpace(ev.Version) == "" {
		return nil, domain.ErrMalformedEvent(domain.TopicSendGameFile, "version is required", nil)
	}

	key := domain.InstallKey{PlayerID: ev.TargetID, GameID: ev.GameID, Platform: platform}
	var result *domain.InstalledGame
	err = r.store.WithKey(ctx, key, func(ctx context.Context, ops store.KeyOps) error {
		rows, err := ops.Find(ctx)
		if err != nil {
			return err
		}
		current := store.First(rows)
		switch {
		case current == nil:
			result, err = ops.Insert(ctx, ev.Version)
		case current.InstalledVersion == ev.Version:
			result = current
		default:
			result, err = ops.ReplaceVersion(ctx, *current, ev.Version)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("game file applied", "id", result.ID, "player_id", ev.TargetID, "game_id", ev.GameID, "platform", platform, "version", ev.Version)
	return result, nil
}

// AuditLog returns the consume log the reconciler appends to.
func (r *Reconciler) AuditLog() AuditLog {
	return r.audit
}

func (r *Reconciler) record(ctx context.Context, d eventbus.Delivery) {
	at := d.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	entry := domain.ConsumeLog{
		Listener:   d.Listener,
		ConsumedAt: at,
		RoutingKey: d.RoutingKey,
		Event:      auditPayload(d.Payload),
	}
	if _, err := r.audit.Append(ctx, entry); err != nil {
		r.logger.Error("consume log append failed", "listener", d.Listener, "routing_key", d.RoutingKey, "error", err)
	}
}

// auditPayload keeps valid JSON as is and quotes anything else so the entry stays encodable.
func auditPayload(payload []byte) json.RawMessage {
	if json.Valid(payload) {
		return json.RawMessage(payload)
	}
	quoted, _ := json.Marshal(string(payload))
	return quoted
}

func decode(d eventbus.Delivery, into any) error {
	if err := json.Unmarshal(d.Payload, into); err != nil {
		return domain.ErrMalformedEvent(d.Topic, "undecodable payload", err)
	}
	return nil
}

func informational(topic string) (domain.Event, bool) {
	switch topic {
	case domain.TopicGameDistributed:
		return &domain.GameDistributed{}, true
	case domain.TopicSaleStarted:
		return &domain.SaleStarted{}, true
	case domain.TopicReviewRefused:
		return &domain.ReviewRefused{}, true
	case domain.TopicSendPlayerPage:
		return &domain.SendPlayerPage{}, true
	case domain.TopicSendGamesPage:
		return &domain.SendGamesPage{}, true
	case domain.TopicSendGameReviews:
		return &domain.SendGameReviews{}, true
	}
	return nil, false
}
