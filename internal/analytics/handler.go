package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// StatsProvider is satisfied by *Aggregator.
type StatsProvider interface {
	Stats() Stats
}

// Handler serves GET /analytics.
type Handler struct {
	stats  StatsProvider
	logger *slog.Logger
}

func NewHandler(stats StatsProvider) *Handler {
	return &Handler{
		stats:  stats,
		logger: slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(h.stats.Stats()); err != nil {
		h.logger.Error("writing analytics response", "error", err)
	}
}
