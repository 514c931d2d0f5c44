package catalog

import (
	"context"

	"github.com/pops/player-service/internal/domain"
	"github.com/pops/player-service/internal/guard"
)

const breakerKey = "catalog"

// GuardedLookup stops calling the publisher database while it keeps failing.
// A missing game is a successful lookup.
type GuardedLookup struct {
	next    Lookup
	breaker *guard.CircuitBreaker
}

// NewGuardedLookup wraps next with breaker.
func NewGuardedLookup(next Lookup, breaker *guard.CircuitBreaker) *GuardedLookup {
	return &GuardedLookup{next: next, breaker: breaker}
}

func (l *GuardedLookup) Lookup(ctx context.Context, gameID int64) (*domain.PublishedVersion, error) {
	if err := l.breaker.Allow(breakerKey); err != nil {
		return nil, err
	}
	v, err := l.next.Lookup(ctx, gameID)
	if err != nil {
		l.breaker.RecordFailure(breakerKey)
		return nil, err
	}
	l.breaker.RecordSuccess(breakerKey)
	return v, nil
}
