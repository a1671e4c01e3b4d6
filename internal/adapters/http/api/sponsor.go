package api

import (
	"context"
	"net/http"

	service "github.com/startupforworld/coach/internal/app"
	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/referral"
)

// SponsorDependencies defines the interface for sponsor and link operations.
type SponsorDependencies interface {
	ResolveSponsor(ctx context.Context, req service.SponsorRequest) referral.SponsorContext
	ShareLink(origin, sponsorID, shopURL string) (string, error)
	ProspectLink(origin, referrerID, referrerName string) (model.ShareableLink, string, error)
	ValidateReferrer(id string) bool
	AssistantPrompt(ctx context.Context, req service.SponsorRequest, visitorID, origin string) (string, referral.SponsorContext)
}

// SponsorHandler handles sponsor resolution and link requests.
type SponsorHandler struct {
	deps SponsorDependencies
	opts options
}

// NewSponsorHandler creates a new sponsor handler.
func NewSponsorHandler(deps SponsorDependencies, opts ...Option) *SponsorHandler {
	return &SponsorHandler{deps: deps, opts: applyOptions(opts)}
}

// sponsorRequest reads the page's location.search and location.hash as the
// search and hash query parameters.
func (h *SponsorHandler) sponsorRequest(w http.ResponseWriter, r *http.Request) service.SponsorRequest {
	q := r.URL.Query()
	return service.SponsorRequest{
		SessionKey: sessionKey(w, r, h.opts.secureCookie),
		Query:      q.Get("search"),
		Fragment:   q.Get("hash"),
	}
}

// HandleGetSponsor handles GET /sponsor?search=&hash= requests.
func (h *SponsorHandler) HandleGetSponsor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ResolveSponsor(r.Context(), h.sponsorRequest(w, r)))
}

type shareLinkRequest struct {
	RefID   string `json:"ref_id"`
	ShopURL string `json:"shop_url"`
	Origin  string `json:"origin,omitempty"`
}

type shareLinkResponse struct {
	Link string `json:"link"`
	Form string `json:"form"`
}

// HandlePostShareLink handles POST /share-links requests.
func (h *SponsorHandler) HandlePostShareLink(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_share_link"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req shareLinkRequest
	if err := decodeJSON(w, r, h.opts.maxBodyBytes, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	link, err := h.deps.ShareLink(originOf(r, req.Origin, h.opts.publicOrigin), req.RefID, req.ShopURL)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, shareLinkResponse{Link: link, Form: referral.ShareLinkForm(req.ShopURL)})
}

type prospectLinkRequest struct {
	ReferrerID   string `json:"referrer_id"`
	ReferrerName string `json:"referrer_name"`
	Origin       string `json:"origin,omitempty"`
}

type prospectLinkResponse struct {
	URL  string              `json:"url"`
	Link model.ShareableLink `json:"link"`
}

// HandlePostProspectLink handles POST /prospect-links requests.
func (h *SponsorHandler) HandlePostProspectLink(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_prospect_link"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req prospectLinkRequest
	if err := decodeJSON(w, r, h.opts.maxBodyBytes, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	link, url, err := h.deps.ProspectLink(originOf(r, req.Origin, h.opts.publicOrigin), req.ReferrerID, req.ReferrerName)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, prospectLinkResponse{URL: url, Link: link})
}

type validateResponse struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
}

// HandleValidateReferrer handles GET /referrers/validate?id= requests.
func (h *SponsorHandler) HandleValidateReferrer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := r.URL.Query().Get("id")
	writeJSON(w, http.StatusOK, validateResponse{ID: id, Valid: h.deps.ValidateReferrer(id)})
}

type promptResponse struct {
	Prompt  string                  `json:"prompt"`
	Sponsor referral.SponsorContext `json:"sponsor"`
}

// HandleGetPrompt handles GET /assistant/prompt?visitor=&search=&hash= requests.
func (h *SponsorHandler) HandleGetPrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	text, sponsor := h.deps.AssistantPrompt(r.Context(), h.sponsorRequest(w, r),
		q.Get("visitor"), originOf(r, q.Get("origin"), h.opts.publicOrigin))
	writeJSON(w, http.StatusOK, promptResponse{Prompt: text, Sponsor: sponsor})
}
