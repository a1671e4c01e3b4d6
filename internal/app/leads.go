package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/startupforworld/coach/internal/adapters/repository"
	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/stats"
	"github.com/startupforworld/coach/pkg/logger"
	"github.com/startupforworld/coach/pkg/metrics"
)

// statsWindow bounds the rows read for dashboard figures.
const statsWindow = 1000

// LeadRequest is a prospect captured through a share link.
type LeadRequest struct {
	// SubmissionID is generated by the client; resubmitting it returns the
	// lead created the first time.
	SubmissionID string `json:"submission_id,omitempty"`
	ReferrerID   string `json:"referrer_id,omitempty"`
	// LinkID is the prospect link the visitor came through. It names the
	// referrer when ReferrerID is empty.
	LinkID           string          `json:"link_id,omitempty"`
	Email            string          `json:"prospect_email,omitempty"`
	Phone            string          `json:"prospect_phone,omitempty"`
	Name             string          `json:"prospect_name,omitempty"`
	Conversation     json.RawMessage `json:"conversation_data,omitempty"`
	ClinicalAnalysis json.RawMessage `json:"clinical_analysis,omitempty"`
}

// CaptureLead stores a new lead. The second result is true when the
// submission was seen before, in which case only the lead id is known.
func (s *Service) CaptureLead(ctx context.Context, req LeadRequest) (model.ProspectLead, bool, error) {
	referrerID := strings.TrimSpace(req.ReferrerID)
	if referrerID == "" && req.LinkID != "" {
		referrerID, _ = model.ReferrerFromLinkID(strings.TrimSpace(req.LinkID))
	}
	if referrerID == "" {
		return model.ProspectLead{}, false, invalid("referrer_id or a valid link_id is required")
	}
	if strings.TrimSpace(req.Email) == "" && strings.TrimSpace(req.Phone) == "" {
		return model.ProspectLead{}, false, invalid("prospect_email or prospect_phone is required")
	}

	id := uuid.NewString()
	submission := strings.TrimSpace(req.SubmissionID)
	if submission != "" {
		if existing, seen := s.deduper.Claim(ctx, submission, id); seen {
			metrics.RecordLeadDuplicate()
			s.logger.Debug(ctx, "duplicate lead submission",
				logger.String("submission_id", submission),
				logger.String("lead_id", existing),
			)
			return model.ProspectLead{ID: existing, ReferrerID: referrerID}, true, nil
		}
	}

	now := s.now()
	lead := model.ProspectLead{
		ID:               id,
		ReferrerID:       referrerID,
		Email:            strings.TrimSpace(req.Email),
		Phone:            strings.TrimSpace(req.Phone),
		Name:             strings.TrimSpace(req.Name),
		Conversation:     req.Conversation,
		ClinicalAnalysis: req.ClinicalAnalysis,
		Status:           model.LeadNew,
		CreatedAt:        now,
		LastActivity:     now,
	}
	if err := s.store.SaveLead(ctx, lead); err != nil {
		if submission != "" {
			s.deduper.Release(ctx, submission)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.RecordLeadDuplicate()
			return lead, true, nil
		}
		metrics.RecordErrorByComponent("repository", "save_lead_failed")
		s.logger.Error(ctx, "saving lead failed", logger.Error(err))
		return model.ProspectLead{}, false, err
	}

	metrics.RecordLeadCaptured()
	s.logger.Info(ctx, "lead captured",
		logger.String("lead_id", lead.ID),
		logger.String("referrer_id", referrerID),
	)
	return lead, false, nil
}

// ListLeads returns a referrer's leads, newest first.
func (s *Service) ListLeads(ctx context.Context, referrerID string, limit int) ([]model.ProspectLead, error) {
	referrerID = strings.TrimSpace(referrerID)
	if referrerID == "" {
		return nil, invalid("referrer_id is required")
	}
	return s.store.ListLeads(ctx, referrerID, limit)
}

// UpdateLeadStatus moves a lead to status and bumps its activity time.
func (s *Service) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) (model.ProspectLead, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.ProspectLead{}, invalid("lead id is required")
	}
	if !status.Valid() {
		return model.ProspectLead{}, invalid("unknown status " + string(status))
	}
	lead, err := s.store.UpdateLeadStatus(ctx, id, status, s.now())
	if err != nil {
		return model.ProspectLead{}, err
	}
	metrics.RecordLeadStatusUpdate(string(status))
	return lead, nil
}

// Dashboard is what the dashboard page shows.
type Dashboard struct {
	Summary stats.Summary       `json:"summary"`
	Weekly  []stats.DayActivity `json:"weekly"`
}

// DashboardStats combines a user's diagnostics with a referrer's lead funnel.
// Either id may be empty, not both.
func (s *Service) DashboardStats(ctx context.Context, userID, referrerID string) (Dashboard, error) {
	userID, referrerID = strings.TrimSpace(userID), strings.TrimSpace(referrerID)
	if userID == "" && referrerID == "" {
		return Dashboard{}, invalid("user_id or referrer_id is required")
	}

	var (
		records []model.ClinicalRecord
		leads   []model.ProspectLead
		err     error
	)
	if userID != "" {
		if records, err = s.store.ListClinicalRecords(ctx, userID, statsWindow); err != nil {
			return Dashboard{}, err
		}
	}
	if referrerID != "" {
		if leads, err = s.store.ListLeads(ctx, referrerID, statsWindow); err != nil {
			return Dashboard{}, err
		}
	}

	return Dashboard{
		Summary: stats.Summarize(records, leads),
		Weekly:  stats.Weekly(records, leads, s.now()),
	}, nil
}
