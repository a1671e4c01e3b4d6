// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/startupforworld/coach/internal/app"
	"github.com/startupforworld/coach/internal/adapters/genai"
	"github.com/startupforworld/coach/internal/adapters/repository"
	"github.com/startupforworld/coach/internal/domain/recommend"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SponsorDependencies
	RecommendationDependencies
	LeadDependencies
	DashboardDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	sponsorHandler   *SponsorHandler
	recommendHandler *RecommendationHandler
	leadHandler      *LeadHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		sponsorHandler:   NewSponsorHandler(deps, opts...),
		recommendHandler: NewRecommendationHandler(deps, opts...),
		leadHandler:      NewLeadHandler(deps, opts...),
		dashboardHandler: newDashboardHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/dashboard/stats", MetricsMiddleware(s.dashboardHandler.HandleDashboardStats, "dashboard_stats"))

	mux.HandleFunc("/sponsor", MetricsMiddleware(s.sponsorHandler.HandleGetSponsor, "sponsor"))
	mux.HandleFunc("/share-links", MetricsMiddleware(s.sponsorHandler.HandlePostShareLink, "share_links"))
	mux.HandleFunc("/prospect-links", MetricsMiddleware(s.sponsorHandler.HandlePostProspectLink, "prospect_links"))
	mux.HandleFunc("/referrers/validate", MetricsMiddleware(s.sponsorHandler.HandleValidateReferrer, "referrers_validate"))
	mux.HandleFunc("/assistant/prompt", MetricsMiddleware(s.sponsorHandler.HandleGetPrompt, "assistant_prompt"))

	mux.HandleFunc("/recommendations", MetricsMiddleware(s.recommendHandler.HandlePostRecommendations, "recommendations"))
	mux.HandleFunc("/analyses", MetricsMiddleware(s.recommendHandler.HandlePostAnalysis, "analyses"))
	mux.HandleFunc("/clinical-records", MetricsMiddleware(s.recommendHandler.HandleGetClinicalRecords, "clinical_records"))
	mux.HandleFunc("/clinical-records/{id}/protocol", MetricsMiddleware(s.recommendHandler.HandlePutProtocol, "clinical_record_protocol"))

	mux.HandleFunc("/leads", MetricsMiddleware(s.leadHandler.HandleLeads, "leads"))
	mux.HandleFunc("/leads/", MetricsMiddleware(s.leadHandler.HandlePatchLead, "lead_status"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and adapter sentinels to a status and code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, recommend.ErrInvalidBiomarkers),
		errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, service.ErrExtractionUnavailable):
		writeError(w, http.StatusNotImplemented, "extraction_unavailable", Wrap(op, err))
	case errors.Is(err, genai.ErrUnparseable), errors.Is(err, genai.ErrEmptyResponse):
		writeError(w, http.StatusBadGateway, "extraction_failed", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
