package reconciler

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pops/player-service/internal/domain"
	"github.com/pops/player-service/internal/repository"
)

// AuditLog is the append-only consume log. List returns entries in arrival order.
type AuditLog interface {
	Append(ctx context.Context, entry domain.ConsumeLog) (domain.ConsumeLog, error)
	List(ctx context.Context, limit int) ([]domain.ConsumeLog, error)
}

// MemoryAuditLog keeps the log for the lifetime of the process.
type MemoryAuditLog struct {
	mu      sync.RWMutex
	entries []domain.ConsumeLog
}

// NewMemoryAuditLog creates an empty MemoryAuditLog.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

func (l *MemoryAuditLog) Append(_ context.Context, entry domain.ConsumeLog) (domain.ConsumeLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.Seq = int64(len(l.entries)) + 1
	l.entries = append(l.entries, entry)
	return entry, nil
}

func (l *MemoryAuditLog) List(_ context.Context, limit int) ([]domain.ConsumeLog, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.ConsumeLog, n)
	copy(out, l.entries[:n])
	return out, nil
}

// PgAuditLog persists the log in consume_log.
type PgAuditLog struct {
	pool    *pgxpool.Pool
	entries repository.ConsumeLogRepository
}

// NewPgAuditLog creates a PgAuditLog.
func NewPgAuditLog(pool *pgxpool.Pool, entries repository.ConsumeLogRepository) *PgAuditLog {
	return &PgAuditLog{pool: pool, entries: entries}
}

func (l *PgAuditLog) Append(ctx context.Context, entry domain.ConsumeLog) (domain.ConsumeLog, error) {
	seq, err := l.entries.Append(ctx, l.pool, entry)
	if err != nil {
		return entry, domain.ErrInternal("append consume log", err)
	}
	entry.Seq = seq
	return entry, nil
}

func (l *PgAuditLog) List(ctx context.Context, limit int) ([]domain.ConsumeLog, error) {
	entries, err := l.entries.List(ctx, l.pool, limit)
	if err != nil {
		return nil, domain.ErrInternal("list consume log", err)
	}
	return entries, nil
}

var (
	_ AuditLog = (*MemoryAuditLog)(nil)
	_ AuditLog = (*PgAuditLog)(nil)
)
