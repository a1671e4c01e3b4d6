// Package repository persists clinical records and prospect leads.
package repository

import (
	"context"
	"time"

	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/recommend"
)

// DefaultListLimit caps list queries when the caller passes zero.
const DefaultListLimit = 100

// Store provides read/write access to records and leads.
type Store interface {
	// SaveClinicalRecord inserts a record. Saving an existing id returns ErrDuplicate.
	SaveClinicalRecord(ctx context.Context, rec model.ClinicalRecord) error
	// UpdateProtocol replaces the protocol of a stored record.
	// Returns ErrNotFound if the record is unknown.
	UpdateProtocol(ctx context.Context, recordID string, protocol []recommend.ProtocolEntry) error
	// ListClinicalRecords returns the records of a user, newest first.
	ListClinicalRecords(ctx context.Context, userID string, limit int) ([]model.ClinicalRecord, error)

	// SaveLead inserts a lead. Saving an existing id returns ErrDuplicate.
	SaveLead(ctx context.Context, lead model.ProspectLead) error
	// ListLeads returns the leads of a referrer, newest first.
	ListLeads(ctx context.Context, referrerID string, limit int) ([]model.ProspectLead, error)
	// UpdateLeadStatus sets the status and activity time of a lead and returns it.
	// Returns ErrNotFound if the lead is unknown.
	UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus, at time.Time) (model.ProspectLead, error)

	Migrate(ctx context.Context) error
	Close() error
}

func normalizeLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, ErrInvalidLimit
	case limit == 0:
		return DefaultListLimit, nil
	}
	return limit, nil
}
