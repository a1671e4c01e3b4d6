package api

import (
	"net/http"
)

// StatsProvider exposes the service runtime figures.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Service states reported by /stats.
const (
	statusStopped  = "stopped"
	statusDegraded = "degraded"
	statusOK       = "ok"
)

// StatsHandler serves GET /stats.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats returns the service figures plus a summary status. The
// service is degraded while it recommends from the fallback catalog.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.statsProvider.GetStats()
	stats["status"] = serviceStatus(stats)
	writeJSON(w, http.StatusOK, stats)
}

func serviceStatus(stats map[string]interface{}) string {
	if started, _ := stats["started"].(bool); !started {
		return statusStopped
	}
	if fallback, _ := stats["catalogFallback"].(bool); fallback {
		return statusDegraded
	}
	return statusOK
}
