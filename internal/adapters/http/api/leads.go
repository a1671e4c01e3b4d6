package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/startupforworld/coach/internal/app"
	"github.com/startupforworld/coach/internal/domain/model"
)

// LeadDependencies defines the interface for lead operations.
type LeadDependencies interface {
	CaptureLead(ctx context.Context, req service.LeadRequest) (model.ProspectLead, bool, error)
	ListLeads(ctx context.Context, referrerID string, limit int) ([]model.ProspectLead, error)
	UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) (model.ProspectLead, error)
}

// LeadHandler handles lead requests.
type LeadHandler struct {
	deps LeadDependencies
	opts options
}

// NewLeadHandler creates a new lead handler.
func NewLeadHandler(deps LeadDependencies, opts ...Option) *LeadHandler {
	return &LeadHandler{deps: deps, opts: applyOptions(opts)}
}

type leadResponse struct {
	Lead      model.ProspectLead `json:"lead"`
	Duplicate bool               `json:"duplicate"`
}

type statusRequest struct {
	Status model.LeadStatus `json:"status"`
}

// HandleLeads handles POST /leads and GET /leads?referrer_id= requests.
func (h *LeadHandler) HandleLeads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePostLead(w, r)
	case http.MethodGet:
		h.handleListLeads(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *LeadHandler) handlePostLead(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_lead"
	var req service.LeadRequest
	if err := decodeJSON(w, r, h.opts.maxBodyBytes, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	lead, duplicate, err := h.deps.CaptureLead(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, leadResponse{Lead: lead, Duplicate: duplicate})
}

func (h *LeadHandler) handleListLeads(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_leads"
	limit, err := parseLimit(r, h.opts.maxLimit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	leads, err := h.deps.ListLeads(r.Context(), r.URL.Query().Get("referrer_id"), limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

// HandlePatchLead handles PATCH /leads/{id} requests.
func (h *LeadHandler) HandlePatchLead(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_lead"
	if r.Method != http.MethodPatch {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/leads/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, h.opts.maxBodyBytes, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	lead, err := h.deps.UpdateLeadStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}
