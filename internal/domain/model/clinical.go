// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/startupforworld/coach/internal/domain/recommend"
)

// Patient holds the demographic fields of a clinical record.
type Patient struct {
	Age *int   `json:"age,omitempty"`
	Sex string `json:"sex,omitempty"`
}

// ClinicalRecord is one analysed lab panel and the protocol recommended for it.
type ClinicalRecord struct {
	ID         string                    `json:"id"`
	UserID     string                    `json:"user_id"`
	SellerID   string                    `json:"seller_id,omitempty"`
	Patient    Patient                   `json:"patient"`
	Biomarkers recommend.Biomarkers      `json:"biomarkers"`
	Analysis   string                    `json:"analysis,omitempty"`
	Protocol   []recommend.ProtocolEntry `json:"protocol"`
	RiskFlags  []string                  `json:"risk_flags,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
}
