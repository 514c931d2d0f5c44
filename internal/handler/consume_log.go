package handler

import (
	"context"
	"net/http"

	"github.com/pops/player-service/internal/domain"
)

// AuditReader reads the consume log in arrival order.
type AuditReader interface {
	List(ctx context.Context, limit int) ([]domain.ConsumeLog, error)
}

// ConsumeLogHandler serves GET /consume-log?limit=N.
type ConsumeLogHandler struct {
	audit AuditReader
}

func NewConsumeLogHandler(audit AuditReader) *ConsumeLogHandler {
	return &ConsumeLogHandler{audit: audit}
}

func (h *ConsumeLogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		RespondError(w, err)
		return
	}
	entries, err := h.audit.List(r.Context(), limit)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"entries": nonNil(entries)})
}
