package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/legisearch/legisearch/internal/api"
	"github.com/legisearch/legisearch/internal/pagination"
	"github.com/legisearch/legisearch/internal/service"
)

const defaultHistoryLimit = 20

type StatsService interface {
	Stats() service.IndexStats
	History() []service.ConversationEntry
}

type StatsHandler struct {
	svc StatsService
}

func NewStatsHandler(svc StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.svc.Stats())
}

// History returns answered questions newest first, paginated by cursor.
func (h *StatsHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	entries := h.svc.History()

	// Newest first.
	items := make([]service.ConversationEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		items = append(items, entries[i])
	}

	if cursor != nil {
		start := len(items)
		for i, e := range items {
			if e.ID == cursor.LastID {
				start = i + 1
				break
			}
		}
		items = items[start:]
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	next := ""
	if hasMore {
		next = pagination.CreateNextCursor(items, limit,
			func(e service.ConversationEntry) string { return e.ID },
			func(e service.ConversationEntry) time.Time { return e.AskedAt },
		)
	}

	api.Success(w, http.StatusOK, pagination.PageResult[service.ConversationEntry]{
		Items:   items,
		Cursor:  next,
		HasMore: hasMore,
	})
}
