package referral

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Resolver derives a SponsorContext from URL and session signals.
// It holds configuration only and is safe for concurrent use.
type Resolver struct {
	founderID      string
	founderName    string
	shopBase       string
	commerceDomain string
}

// NewResolver creates a Resolver with the founder defaults.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		founderID:      DefaultFounderID,
		founderName:    DefaultFounderName,
		shopBase:       DefaultShopBase,
		commerceDomain: DefaultCommerceDomain,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FounderID returns the id that never counts as a referral.
func (r *Resolver) FounderID() string { return r.founderID }

// Resolve is ResolveSignals without a persisted session value.
func (r *Resolver) Resolve(rawQuery, fragment string) SponsorContext {
	return r.ResolveSignals(Signals{Query: rawQuery, Fragment: fragment})
}

// ResolveSignals applies the signals in priority order, first match wins:
//  1. ref + base64 shop whose decoded value names the commerce domain
//  2. ref query parameter
//  3. ref=<value> token in the fragment
//  4. persisted session id
//  5. founder
//
// The founder id never produces a referral, whatever signal carries it.
func (r *Resolver) ResolveSignals(s Signals) SponsorContext {
	params := parseQuery(s.Query)
	ref := strings.TrimSpace(params.Get("ref"))
	shop := strings.TrimSpace(params.Get("shop"))

	if ref != "" && shop != "" && ref != r.founderID {
		if decoded, err := DecodeShop(shop, r.commerceDomain); err == nil {
			return r.referral(ref, decoded, SourceCompound)
		}
	}

	if ref != "" && ref != r.founderID {
		return r.referral(ref, r.ShopURL(ref), SourceQuery)
	}

	if ref := fragmentRef(s.Fragment); ref != "" && ref != r.founderID {
		return r.referral(ref, r.ShopURL(ref), SourceFragment)
	}

	if id := strings.TrimSpace(s.Session); id != "" && id != r.founderID {
		return r.referral(id, r.ShopURL(id), SourceSession)
	}

	return r.Founder()
}

// Founder returns the default, non-referral context.
func (r *Resolver) Founder() SponsorContext {
	return SponsorContext{
		ID:          r.founderID,
		ShopURL:     r.shopBase,
		DisplayName: r.founderName,
		IsReferral:  false,
		Source:      SourceDefault,
	}
}

// ShopURL returns the storefront URL attributed to id.
func (r *Resolver) ShopURL(id string) string {
	sep := "?"
	if strings.Contains(r.shopBase, "?") {
		sep = "&"
	}
	return r.shopBase + sep + "id=" + url.QueryEscape(id)
}

func (r *Resolver) referral(id, shop string, src Source) SponsorContext {
	return SponsorContext{
		ID:          id,
		ShopURL:     shop,
		DisplayName: displayNamePrefix + id,
		IsReferral:  true,
		Source:      src,
	}
}

// DecodeShop decodes a compound shop parameter and checks it against domain.
// Standard and URL-safe alphabets are accepted, padded or not, and spaces are
// read back as '+' since form decoding turns an unescaped '+' into a space.
func DecodeShop(encoded, domain string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(encoded), " ", "+")
	if s == "" {
		return "", ErrShopEncoding
	}

	var (
		raw []byte
		err error
	)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if raw, err = enc.DecodeString(s); err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrShopEncoding, err)
	}
	if !utf8.Valid(raw) {
		return "", ErrShopEncoding
	}

	shop := string(raw)
	if domain != "" && !strings.Contains(shop, domain) {
		return "", ErrShopDomain
	}
	return shop, nil
}

// parseQuery keeps whatever pairs parse; a malformed pair only drops itself.
func parseQuery(raw string) url.Values {
	values, _ := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(raw), "?"))
	if values == nil {
		return url.Values{}
	}
	return values
}

// fragmentRef finds the first non-empty ref=<value> token in a fragment such
// as "#ref=123", "#/welcome?ref=123&x=1" or "#a=1&ref=123". The value runs to
// the next '&' or the end; '?' only separates a router path from its query.
func fragmentRef(fragment string) string {
	fragment = strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	tokens := strings.FieldsFunc(fragment, func(c rune) bool {
		return c == '&' || c == '?'
	})
	for _, tok := range tokens {
		v, ok := strings.CutPrefix(tok, "ref=")
		if !ok {
			continue
		}
		if unescaped, err := url.QueryUnescape(v); err == nil {
			v = unescaped
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
