package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the funnel position of a prospect.
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadConverted LeadStatus = "converted"
	LeadLost      LeadStatus = "lost"
)

// Valid reports whether s is a known status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNew, LeadContacted, LeadConverted, LeadLost:
		return true
	}
	return false
}

// ProspectLead is a contact collected on behalf of a referrer.
type ProspectLead struct {
	ID               string          `json:"id"`
	ReferrerID       string          `json:"referrer_id"`
	Email            string          `json:"prospect_email,omitempty"`
	Phone            string          `json:"prospect_phone,omitempty"`
	Name             string          `json:"prospect_name,omitempty"`
	Conversation     json.RawMessage `json:"conversation_data,omitempty"`
	ClinicalAnalysis json.RawMessage `json:"clinical_analysis,omitempty"`
	Status           LeadStatus      `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	LastActivity     time.Time       `json:"last_activity"`
}

// Share link limits.
const (
	ShareLinkTTL     = 30 * 24 * time.Hour
	ShareLinkMaxUses = 100
)

// ShareableLink identifies a prospect invitation issued by a referrer.
type ShareableLink struct {
	LinkID       string    `json:"link_id"`
	ReferrerID   string    `json:"referrer_id"`
	ReferrerName string    `json:"referrer_name"`
	ExpiresAt    time.Time `json:"expires_at"`
	MaxUses      int       `json:"max_uses"`
	CurrentUses  int       `json:"current_uses"`
}

// NewShareableLink issues a link id of the form <referrer>-<unix millis>-<random>.
func NewShareableLink(referrerID, referrerName string, now time.Time) ShareableLink {
	random := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return ShareableLink{
		LinkID:       referrerID + "-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + random,
		ReferrerID:   referrerID,
		ReferrerName: referrerName,
		ExpiresAt:    now.Add(ShareLinkTTL),
		MaxUses:      ShareLinkMaxUses,
	}
}

// Expired reports whether the link can no longer be used at now.
func (l ShareableLink) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt) || (l.MaxUses > 0 && l.CurrentUses >= l.MaxUses)
}

// ReferrerFromLinkID recovers the referrer id from a link id. The last two
// dash separated segments are the timestamp and the random suffix; the
// referrer id itself may contain dashes.
func ReferrerFromLinkID(linkID string) (string, bool) {
	rest, random, ok := cutLast(linkID)
	if !ok || random == "" {
		return "", false
	}
	referrer, ts, ok := cutLast(rest)
	if !ok || referrer == "" {
		return "", false
	}
	if _, err := strconv.ParseInt(ts, 10, 64); err != nil {
		return "", false
	}
	return referrer, true
}

func cutLast(s string) (before, after string, ok bool) {
	i := strings.LastIndexByte(s, '-')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}
