package recommend

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithThresholds rebuilds the default rule table with custom thresholds.
// Non-positive values keep the defaults.
func WithThresholds(cholesterol, glycemia float64) Option {
	return func(e *Engine) {
		if cholesterol <= 0 {
			cholesterol = DefaultCholesterolThreshold
		}
		if glycemia <= 0 {
			glycemia = DefaultGlycemiaThreshold
		}
		e.rules = DefaultRules(cholesterol, glycemia)
	}
}

// WithRules replaces the rule table. A table without a rule named
// RuleBaseline still gets the default baseline recommendation.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) {
		if len(rules) > 0 {
			e.rules = append([]Rule(nil), rules...)
		}
	}
}

// WithFallbackProduct sets the product used when the catalog is empty.
func WithFallbackProduct(p Product) Option {
	return func(e *Engine) {
		if p.SKU != "" {
			e.fallback = p
		}
	}
}
