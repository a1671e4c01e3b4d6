package recommend

import (
	"net/url"
	"strings"
)

// Order link defaults.
const (
	DefaultOrderBase   = "https://shopneolife.com/startupforworld/shop/atoz"
	DefaultOrderSource = "axioma-ai"
)

// OrderLinks builds seller-attributed order URLs.
type OrderLinks struct {
	base   string
	source string
}

// NewOrderLinks returns a builder; empty arguments keep the defaults.
func NewOrderLinks(base, source string) OrderLinks {
	o := OrderLinks{base: DefaultOrderBase, source: DefaultOrderSource}
	if base = strings.TrimSpace(base); base != "" {
		o.base = base
	}
	if source = strings.TrimSpace(source); source != "" {
		o.source = source
	}
	return o
}

// Aggregate returns one URL ordering every recommended sku for sellerID:
// <base>?id=<seller>&products=<sku,sku,...>&source=<source>.
func (o OrderLinks) Aggregate(recs []Recommendation, sellerID string) string {
	skus := make([]string, len(recs))
	for i, r := range recs {
		skus[i] = r.Product.SKU
	}

	params := url.Values{}
	params.Set("id", sellerID)
	params.Set("products", strings.Join(skus, ","))
	params.Set("source", o.source)

	sep := "?"
	if strings.Contains(o.base, "?") {
		sep = "&"
	}
	return o.base + sep + params.Encode()
}

// Attach returns the aggregate URL and a copy of recs where each entry links
// to the aggregate URL focused on its own sku.
func (o OrderLinks) Attach(recs []Recommendation, sellerID string) (string, []Recommendation) {
	aggregate := o.Aggregate(recs, sellerID)
	out := make([]Recommendation, len(recs))
	for i, r := range recs {
		r.OrderURL = aggregate + "&focus=" + url.QueryEscape(r.Product.SKU)
		out[i] = r
	}
	return aggregate, out
}
