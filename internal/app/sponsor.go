package service

import (
	"context"
	"strings"

	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/prompt"
	"github.com/startupforworld/coach/internal/domain/referral"
	"github.com/startupforworld/coach/pkg/logger"
	"github.com/startupforworld/coach/pkg/metrics"
)

// SponsorRequest carries the raw signals of one page load.
type SponsorRequest struct {
	// SessionKey identifies the browser session; empty disables stickiness.
	SessionKey string
	Query      string
	Fragment   string
}

// ResolveSponsor resolves the sponsor of a session. A referral found in the
// URL is remembered for the session so later visits keep it. Session store
// failures degrade to URL-only resolution.
func (s *Service) ResolveSponsor(ctx context.Context, req SponsorRequest) referral.SponsorContext {
	var stored string
	if req.SessionKey != "" {
		var err error
		if stored, err = s.sessions.Get(ctx, req.SessionKey); err != nil {
			s.logger.Warn(ctx, "session lookup failed", logger.Error(err))
			metrics.RecordErrorByComponent("session", "get_failed")
		}
	}

	sponsor := s.resolver.ResolveSignals(referral.Signals{
		Query:    req.Query,
		Fragment: req.Fragment,
		Session:  stored,
	})
	metrics.RecordSponsorResolution(string(sponsor.Source))

	if req.SessionKey != "" && sponsor.IsReferral && sponsor.Source != referral.SourceSession {
		if err := s.sessions.Set(ctx, req.SessionKey, sponsor.ID, s.sessionTTL); err != nil {
			s.logger.Warn(ctx, "session store failed", logger.Error(err))
			metrics.RecordErrorByComponent("session", "set_failed")
		}
	}
	return sponsor
}

// ShareLink builds the link a sponsor hands out. With an empty shopURL the
// sponsor's default storefront is not embedded and the simple form is used.
func (s *Service) ShareLink(origin, sponsorID, shopURL string) (string, error) {
	sponsorID = strings.TrimSpace(sponsorID)
	if sponsorID == "" {
		return "", invalid("ref_id is required")
	}
	if strings.TrimSpace(origin) == "" {
		return "", invalid("origin is required")
	}
	metrics.RecordShareLink(referral.ShareLinkForm(shopURL))
	return referral.BuildShareLink(origin, sponsorID, shopURL), nil
}

// ProspectLink issues a trackable prospect link for a referrer.
func (s *Service) ProspectLink(origin, referrerID, referrerName string) (model.ShareableLink, string, error) {
	referrerID = strings.TrimSpace(referrerID)
	if referrerID == "" {
		return model.ShareableLink{}, "", invalid("referrer_id is required")
	}
	if strings.TrimSpace(origin) == "" {
		return model.ShareableLink{}, "", invalid("origin is required")
	}
	link := model.NewShareableLink(referrerID, strings.TrimSpace(referrerName), s.now())
	metrics.RecordShareLink(referral.FormProspect)
	return link, referral.BuildProspectLink(origin, referrerID, link.LinkID), nil
}

// ValidateReferrer reports whether id has the distributor id format.
func (s *Service) ValidateReferrer(id string) bool {
	return referral.ValidateID(strings.TrimSpace(id))
}

// AssistantPrompt resolves the sponsor of the request and returns the
// assistant's system instruction with that sponsor's shop as destination.
// A visitor id, when given, adds the visitor's own share link for leader mode.
func (s *Service) AssistantPrompt(ctx context.Context, req SponsorRequest, visitorID, origin string) (string, referral.SponsorContext) {
	sponsor := s.ResolveSponsor(ctx, req)

	var share string
	if visitorID = strings.TrimSpace(visitorID); visitorID != "" && strings.TrimSpace(origin) != "" {
		share = referral.BuildShareLink(origin, visitorID, s.resolver.ShopURL(visitorID))
	}

	return prompt.Build(prompt.Params{
		Sponsor:   sponsor,
		Persona:   s.persona,
		ShareLink: share,
	}), sponsor
}
