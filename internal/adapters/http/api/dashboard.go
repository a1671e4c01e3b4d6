package api

import (
	"context"
	"net/http"

	service "github.com/startupforworld/coach/internal/app"
)

// DashboardDependencies defines the interface for dashboard figures.
type DashboardDependencies interface {
	DashboardStats(ctx context.Context, userID, referrerID string) (service.Dashboard, error)
}

// dashboardHandler handles dashboard requests
type dashboardHandler struct {
	deps DashboardDependencies
}

func newDashboardHandler(deps DashboardDependencies) *dashboardHandler {
	return &dashboardHandler{deps: deps}
}

// HandleDashboard handles GET /dashboard requests.
// The page polls /dashboard/stats and scrapes /healthz for runtime charts.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, dashboardFS, "dashboard.html")
}

// HandleDashboardStats handles GET /dashboard/stats?user_id=&referrer_id= requests.
func (h *dashboardHandler) HandleDashboardStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_dashboard_stats"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	dash, err := h.deps.DashboardStats(r.Context(), q.Get("user_id"), q.Get("referrer_id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
