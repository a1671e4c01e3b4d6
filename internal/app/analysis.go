package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/recommend"
	"github.com/startupforworld/coach/pkg/logger"
	"github.com/startupforworld/coach/pkg/metrics"
)

// RecommendResult is a ranked recommendation list with its order links.
type RecommendResult struct {
	Recommendations []recommend.Recommendation `json:"recommendations"`
	OrderURL        string                     `json:"order_url"`
	SellerID        string                     `json:"seller_id"`
}

// Recommend ranks products for b against the current catalog and attaches
// order links attributed to sellerID, or to the founder when it is empty.
func (s *Service) Recommend(ctx context.Context, b recommend.Biomarkers, sellerID string) RecommendResult {
	sellerID = strings.TrimSpace(sellerID)
	if sellerID == "" {
		sellerID = s.resolver.FounderID()
	}

	recs := s.engine.Recommend(b, s.catalog.Catalog(ctx))
	for _, r := range recs {
		metrics.RecordRecommendation(r.Rule)
		if r.Fallback {
			s.logger.Warn(ctx, "no catalog product for category, using fallback",
				logger.String("category", string(r.Category)),
				logger.String("sku", r.Product.SKU),
			)
			metrics.RecordCatalogFallback(string(r.Category))
		}
	}
	metrics.RecordRecommendationListSize(len(recs))

	orderURL, linked := s.orderLinks.Attach(recs, sellerID)
	return RecommendResult{Recommendations: linked, OrderURL: orderURL, SellerID: sellerID}
}

// AnalysisRequest is one clinical analysis submission. Either Biomarkers or
// Report is expected; with neither, only the baseline is recommended.
type AnalysisRequest struct {
	UserID     string               `json:"user_id"`
	SellerID   string               `json:"seller_id,omitempty"`
	Patient    model.Patient        `json:"patient"`
	Biomarkers recommend.Biomarkers `json:"biomarkers"`
	// Report is lab report text, used when Biomarkers is empty.
	Report string `json:"report,omitempty"`
}

// AnalysisResult is returned once the submission is queued for persistence.
type AnalysisResult struct {
	RecordID   string               `json:"record_id"`
	Status     string               `json:"status"`
	Extracted  bool                 `json:"extracted"`
	Patient    model.Patient        `json:"patient"`
	Biomarkers recommend.Biomarkers `json:"biomarkers"`
	Analysis   string               `json:"analysis,omitempty"`
	RiskFlags  []string             `json:"risk_flags,omitempty"`
	RecommendResult
}

// SubmitAnalysis recommends for the submitted panel and queues the clinical
// record, protocol included, as a single persistence job. Report text is
// sent through the extractor when no biomarker was given.
func (s *Service) SubmitAnalysis(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return AnalysisResult{}, invalid("user_id is required")
	}

	res := AnalysisResult{Patient: req.Patient, Biomarkers: req.Biomarkers}
	if req.Biomarkers.Empty() && strings.TrimSpace(req.Report) != "" {
		if s.extractor == nil {
			return AnalysisResult{}, ErrExtractionUnavailable
		}
		ex, err := s.extractor.Extract(ctx, req.Report)
		if err != nil {
			metrics.RecordExtraction("error")
			s.logger.Error(ctx, "biomarker extraction failed", logger.Error(err))
			return AnalysisResult{}, err
		}
		metrics.RecordExtraction("ok")
		res.Extracted = true
		res.Biomarkers = ex.Biomarkers
		res.Analysis = ex.Analysis
		res.RiskFlags = ex.RiskFlags
		if req.Patient.Age == nil {
			res.Patient.Age = ex.Patient.Age
		}
		if req.Patient.Sex == "" {
			res.Patient.Sex = ex.Patient.Sex
		}
	}

	res.RecommendResult = s.Recommend(ctx, res.Biomarkers, req.SellerID)

	now := s.now()
	rec := model.ClinicalRecord{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		SellerID:   res.SellerID,
		Patient:    res.Patient,
		Biomarkers: res.Biomarkers,
		Analysis:   res.Analysis,
		RiskFlags:  res.RiskFlags,
		Protocol:   recommend.ToProtocol(res.Recommendations),
		CreatedAt:  now,
	}
	res.RecordID = rec.ID

	if err := s.enqueue(ctx, model.Job{
		ID:         uuid.NewString(),
		Kind:       model.JobSaveClinicalRecord,
		Record:     &rec,
		EnqueuedAt: now,
	}); err != nil {
		return AnalysisResult{}, err
	}

	res.Status = "accepted"
	s.logger.Debug(ctx, "analysis queued",
		logger.String("record_id", rec.ID),
		logger.Int("recommendations", len(res.Recommendations)),
		logger.Bool("extracted", res.Extracted),
	)
	return res, nil
}

// RefreshProtocol re-ranks products for an existing record and queues the
// replacement protocol. The record is looked up when the job runs, so an
// unknown id surfaces as a failed job rather than an error here.
func (s *Service) RefreshProtocol(ctx context.Context, recordID string, b recommend.Biomarkers, sellerID string) (RecommendResult, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return RecommendResult{}, invalid("record id is required")
	}
	res := s.Recommend(ctx, b, sellerID)
	if err := s.enqueue(ctx, model.Job{
		ID:         uuid.NewString(),
		Kind:       model.JobSaveProtocol,
		RecordID:   recordID,
		Protocol:   recommend.ToProtocol(res.Recommendations),
		EnqueuedAt: s.now(),
	}); err != nil {
		return RecommendResult{}, err
	}
	return res, nil
}

// ClinicalRecords returns a user's history, newest first.
func (s *Service) ClinicalRecords(ctx context.Context, userID string, limit int) ([]model.ClinicalRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("user_id is required")
	}
	return s.store.ListClinicalRecords(ctx, userID, limit)
}
