package referral

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"
)

// Share link forms, as reported to metrics.
const (
	FormSimple   = "simple"
	FormShop     = "shop"
	FormProspect = "prospect"
)

var idPattern = regexp.MustCompile(`^\d{3}-\d{7}$`)

// ValidateID reports whether id has the DDD-DDDDDDD distributor format.
// Resolution never calls it; ids are opaque there.
func ValidateID(id string) bool {
	return idPattern.MatchString(id)
}

// BuildShareLink returns the link a sponsor hands out. Without a shop it is
// <origin>?ref=<id>; with one, the shop is base64 encoded byte for byte and
// the link opens the welcome flow: <origin>?ref=<id>&shop=<b64>&mode=welcome.
// A blank shop counts as none. Resolve recovers id and shop unchanged.
func BuildShareLink(origin, id, shopURL string) string {
	link := strings.TrimSpace(origin) + "?ref=" + url.QueryEscape(id)

	if strings.TrimSpace(shopURL) == "" {
		return link
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(shopURL))
	return link + "&shop=" + url.QueryEscape(encoded) + "&mode=welcome"
}

// ShareLinkForm names the form BuildShareLink produces for shopURL.
func ShareLinkForm(shopURL string) string {
	if strings.TrimSpace(shopURL) == "" {
		return FormSimple
	}
	return FormShop
}

// BuildProspectLink returns <origin>?prospect=<linkID>&ref=<sellerID>.
func BuildProspectLink(origin, sellerID, linkID string) string {
	return strings.TrimSpace(origin) +
		"?prospect=" + url.QueryEscape(linkID) +
		"&ref=" + url.QueryEscape(sellerID)
}
