package recommend

import (
	"cmp"
	"slices"
)

// Recommendation is one product suggestion. OrderURL is empty until the
// recommendation passes through OrderLinks.Attach.
type Recommendation struct {
	Product  Product  `json:"product"`
	Reason   string   `json:"reason"`
	Dosage   string   `json:"dosage"`
	Priority int      `json:"priority"`
	Rule     string   `json:"rule"`
	Category Category `json:"category"`
	// Fallback is set when the catalog had no product for Category.
	Fallback bool   `json:"fallback"`
	OrderURL string `json:"order_url,omitempty"`
}

// Engine evaluates the rule table. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	rules    []Rule
	fallback Product
}

// NewEngine creates an Engine with the default rule table.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rules:    DefaultRules(DefaultCholesterolThreshold, DefaultGlycemiaThreshold),
		fallback: FallbackCatalog()[1],
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend returns the recommendations whose rules fire for b, ordered by
// ascending priority. Rules of equal priority keep table order. Exactly one
// baseline recommendation is always present, whatever the rule table says.
func (e *Engine) Recommend(b Biomarkers, catalog Catalog) []Recommendation {
	out := make([]Recommendation, 0, len(e.rules)+1)
	baseline := false
	for _, rule := range e.rules {
		if rule.Name == RuleBaseline {
			if baseline {
				continue
			}
			if rule.Applies == nil {
				rule.Applies = func(Biomarkers) bool { return true }
			}
		}
		if rule.Applies == nil || !rule.Applies(b) {
			continue
		}
		baseline = baseline || rule.Name == RuleBaseline
		out = append(out, e.build(rule, catalog))
	}
	if !baseline {
		out = append(out, e.build(baselineRule(), catalog))
	}

	slices.SortStableFunc(out, func(a, b Recommendation) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return out
}

func (e *Engine) build(rule Rule, catalog Catalog) Recommendation {
	product, fallback := e.pick(rule.Category, catalog)
	return Recommendation{
		Product:  product,
		Reason:   rule.Reason,
		Dosage:   rule.Dosage,
		Priority: rule.Priority,
		Rule:     rule.Name,
		Category: rule.Category,
		Fallback: fallback,
	}
}

// pick resolves a category to a product: exact tag, then the catalog's first
// baseline product, then its first product, then the built-in fallback.
func (e *Engine) pick(cat Category, catalog Catalog) (Product, bool) {
	if p, ok := catalog.Lookup(cat); ok {
		return p, false
	}
	if p, ok := catalog.Lookup(CategoryBaseline); ok {
		return p, true
	}
	if len(catalog) > 0 {
		return catalog[0], true
	}
	return e.fallback, true
}

// ProtocolEntry is the persisted projection of a recommendation.
type ProtocolEntry struct {
	Product     string  `json:"product"`
	SKU         string  `json:"sku"`
	Dosage      string  `json:"dosage"`
	Reason      string  `json:"reason"`
	Priority    int     `json:"priority"`
	PriceMember float64 `json:"price_member"`
}

// ToProtocol projects recommendations for storage with a clinical record.
func ToProtocol(recs []Recommendation) []ProtocolEntry {
	out := make([]ProtocolEntry, len(recs))
	for i, r := range recs {
		out[i] = ProtocolEntry{
			Product:     r.Product.Title,
			SKU:         r.Product.SKU,
			Dosage:      r.Dosage,
			Reason:      r.Reason,
			Priority:    r.Priority,
			PriceMember: r.Product.Member.Singles,
		}
	}
	return out
}
