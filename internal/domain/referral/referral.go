// Package referral resolves which sponsor a visitor is attributed to and
// builds the links sponsors hand out.
//
// Resolution is pure: the same query string, fragment and session value always
// yield the same SponsorContext. Callers that want stickiness persist the
// resolved id themselves and feed it back through Signals.Session.
package referral

// Defaults for the founder account that owns every unattributed visit.
const (
	DefaultFounderID      = "067-2922111"
	DefaultFounderName    = "ABADA M. José Gaétan"
	DefaultShopBase       = "https://shopneolife.com/startupforworld/shop/atoz"
	DefaultCommerceDomain = "neolife.com"

	displayNamePrefix = "Leader "
)

// Source names the signal a SponsorContext was derived from.
type Source string

const (
	SourceCompound Source = "compound"
	SourceQuery    Source = "query"
	SourceFragment Source = "fragment"
	SourceSession  Source = "session"
	SourceDefault  Source = "default"
)

// SponsorContext is the sponsor attribution for one session.
type SponsorContext struct {
	ID          string `json:"id"`
	ShopURL     string `json:"shop_url"`
	DisplayName string `json:"display_name"`
	IsReferral  bool   `json:"is_referral"`
	Source      Source `json:"source"`
}

// Signals carries the raw inputs of a resolution.
type Signals struct {
	// Query is the raw URL query string, with or without the leading '?'.
	Query string
	// Fragment is the raw URL fragment, with or without the leading '#'.
	Fragment string
	// Session is a sponsor id persisted by an earlier resolution, if any.
	Session string
}
