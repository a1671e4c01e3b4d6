package referral

import "strings"

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithFounder overrides the default founder identity.
func WithFounder(id, name string) Option {
	return func(r *Resolver) {
		if id = strings.TrimSpace(id); id != "" {
			r.founderID = id
		}
		if name = strings.TrimSpace(name); name != "" {
			r.founderName = name
		}
	}
}

// WithShopBase sets the storefront prefix used for simple referrals.
func WithShopBase(base string) Option {
	return func(r *Resolver) {
		if base = strings.TrimSpace(base); base != "" {
			r.shopBase = base
		}
	}
}

// WithCommerceDomain sets the substring a decoded compound shop must contain.
func WithCommerceDomain(domain string) Option {
	return func(r *Resolver) {
		if domain = strings.TrimSpace(domain); domain != "" {
			r.commerceDomain = domain
		}
	}
}
