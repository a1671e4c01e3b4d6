package api

import (
	"context"
	"net/http"

	service "github.com/startupforworld/coach/internal/app"
	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/recommend"
)

// RecommendationDependencies defines the interface for recommendation and
// clinical record operations.
type RecommendationDependencies interface {
	Recommend(ctx context.Context, b recommend.Biomarkers, sellerID string) service.RecommendResult
	SubmitAnalysis(ctx context.Context, req service.AnalysisRequest) (service.AnalysisResult, error)
	ClinicalRecords(ctx context.Context, userID string, limit int) ([]model.ClinicalRecord, error)
	RefreshProtocol(ctx context.Context, recordID string, b recommend.Biomarkers, sellerID string) (service.RecommendResult, error)
}

// RecommendationHandler handles recommendation requests.
type RecommendationHandler struct {
	deps RecommendationDependencies
	opts options
}

// NewRecommendationHandler creates a new recommendation handler.
func NewRecommendationHandler(deps RecommendationDependencies, opts ...Option) *RecommendationHandler {
	return &RecommendationHandler{deps: deps, opts: applyOptions(opts)}
}

type recommendRequest struct {
	Biomarkers recommend.Biomarkers `json:"biomarkers"`
	SellerID   string               `json:"seller_id"`
}

// HandlePostRecommendations handles POST /recommendations requests.
func (h *RecommendationHandler) HandlePostRecommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_recommendations"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req recommendRequest
	if err := decodeJSON(w, r, h.opts.maxBodyBytes, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Recommend(r.Context(), req.Biomarkers, req.SellerID))
}

// HandlePostAnalysis handles POST /analyses requests. The record is persisted
// asynchronously, so success is 202.
func (h *RecommendationHandler) HandlePostAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_analysis"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req service.AnalysisRequest
	if err := decodeJSON(w, r, h.opts.maxBodyBytes, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	res, err := h.deps.SubmitAnalysis(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// HandleGetClinicalRecords handles GET /clinical-records?user_id=&limit= requests.
func (h *RecommendationHandler) HandleGetClinicalRecords(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_clinical_records"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, err := parseLimit(r, h.opts.maxLimit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	records, err := h.deps.ClinicalRecords(r.Context(), r.URL.Query().Get("user_id"), limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HandlePutProtocol handles PUT /clinical-records/{id}/protocol requests. The
// new protocol is persisted asynchronously, so success is 202.
func (h *RecommendationHandler) HandlePutProtocol(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_protocol"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	var req recommendRequest
	if err := decodeJSON(w, r, h.opts.maxBodyBytes, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	res, err := h.deps.RefreshProtocol(r.Context(), r.PathValue("id"), req.Biomarkers, req.SellerID)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}
