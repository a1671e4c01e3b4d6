// Package recommend turns a sparse biomarker panel into a ranked list of
// product recommendations and the order links that go with them.
package recommend

// Default clinical thresholds, mmol/L.
const (
	DefaultCholesterolThreshold = 5.2
	DefaultGlycemiaThreshold    = 6.1
)

// Rule names.
const (
	RuleCardiovascular = "cardiovascular"
	RuleMetabolic      = "metabolic"
	RuleBaseline       = "baseline"
)

// Rule maps a biomarker condition to a product category.
// Rules are independent; every rule whose condition holds contributes.
type Rule struct {
	Name     string
	Category Category
	Priority int
	Reason   string
	Dosage   string
	Applies  func(Biomarkers) bool
}

// DefaultRules returns the standard rule table for the given thresholds.
// A threshold compares strictly: a value equal to it does not fire.
func DefaultRules(cholesterol, glycemia float64) []Rule {
	return []Rule{
		{
			Name:     RuleCardiovascular,
			Category: CategoryCardio,
			Priority: 1,
			Reason:   "Cholestérol élevé - Omega-3 pour la santé cardiovasculaire",
			Dosage:   "2 capsules par jour",
			Applies: func(b Biomarkers) bool {
				return b.CholesterolTotal != nil && *b.CholesterolTotal > cholesterol
			},
		},
		{
			Name:     RuleMetabolic,
			Category: CategoryMetabolic,
			Priority: 2,
			Reason:   "Glycémie élevée - Antioxydants pour la régulation métabolique",
			Dosage:   "1 packet par jour",
			Applies: func(b Biomarkers) bool {
				return b.Glycemia != nil && *b.Glycemia > glycemia
			},
		},
		baselineRule(),
	}
}

func baselineRule() Rule {
	return Rule{
		Name:     RuleBaseline,
		Category: CategoryBaseline,
		Priority: 3,
		Reason:   "Base nutritionnelle - Fluidité membranaire optimale",
		Dosage:   "1 capsule matin et soir",
		Applies:  func(Biomarkers) bool { return true },
	}
}
