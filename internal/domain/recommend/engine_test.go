package recommend

import (
	"math"
	"math/rand"
	"net/url"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func rulesOf(recs []Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Rule
	}
	return out
}

func TestEngineRules(t *testing.T) {
	Convey("Given the default engine and the built-in catalog", t, func() {
		e := NewEngine()
		catalog := FallbackCatalog()

		Convey("When no biomarker is present", func() {
			recs := e.Recommend(Biomarkers{}, catalog)

			Convey("Then only the baseline recommendation is returned", func() {
				So(rulesOf(recs), ShouldResemble, []string{RuleBaseline})
				So(recs[0].Product.SKU, ShouldEqual, "TRE001")
				So(recs[0].Priority, ShouldEqual, 3)
				So(recs[0].Dosage, ShouldEqual, "1 capsule matin et soir")
				So(recs[0].Fallback, ShouldBeFalse)
			})
		})

		Convey("When cholesterol is elevated", func() {
			recs := e.Recommend(Biomarkers{CholesterolTotal: Value(6.0)}, catalog)

			Convey("Then the cardio recommendation leads", func() {
				So(rulesOf(recs), ShouldResemble, []string{RuleCardiovascular, RuleBaseline})
				So(recs[0].Priority, ShouldEqual, 1)
				So(recs[0].Category, ShouldEqual, CategoryCardio)
				So(recs[0].Product.SKU, ShouldEqual, "3143")
				So(recs[0].Dosage, ShouldEqual, "2 capsules par jour")
			})
		})

		Convey("When glycemia is elevated", func() {
			recs := e.Recommend(Biomarkers{Glycemia: Value(7.2)}, catalog)

			Convey("Then the metabolic recommendation comes before baseline", func() {
				So(rulesOf(recs), ShouldResemble, []string{RuleMetabolic, RuleBaseline})
				So(recs[0].Dosage, ShouldEqual, "1 packet par jour")
			})
		})

		Convey("When both markers are elevated", func() {
			recs := e.Recommend(Biomarkers{CholesterolTotal: Value(5.3), Glycemia: Value(6.2)}, catalog)

			Convey("Then all three fire in priority order", func() {
				So(rulesOf(recs), ShouldResemble, []string{RuleCardiovascular, RuleMetabolic, RuleBaseline})
			})
		})

		Convey("When values sit exactly on the thresholds", func() {
			recs := e.Recommend(Biomarkers{CholesterolTotal: Value(5.2), Glycemia: Value(6.1)}, catalog)

			Convey("Then the comparison is strict", func() {
				So(rulesOf(recs), ShouldResemble, []string{RuleBaseline})
			})
		})

		Convey("When only unrelated markers are present", func() {
			recs := e.Recommend(Biomarkers{HDL: Value(0), BMI: Value(31)}, catalog)

			Convey("Then absent cholesterol and glycemia never fire", func() {
				So(rulesOf(recs), ShouldResemble, []string{RuleBaseline})
			})
		})
	})
}

func TestEngineCatalogFallback(t *testing.T) {
	Convey("Given an engine", t, func() {
		e := NewEngine()

		Convey("When the catalog has no cardio product", func() {
			catalog := Catalog{
				{SKU: "B1", Title: "Base One", Tags: []Category{CategoryBaseline}},
				{SKU: "B2", Title: "Base Two", Tags: []Category{CategoryBaseline}},
			}
			recs := e.Recommend(Biomarkers{CholesterolTotal: Value(9)}, catalog)

			Convey("Then the first baseline product stands in and is flagged", func() {
				So(recs[0].Rule, ShouldEqual, RuleCardiovascular)
				So(recs[0].Product.SKU, ShouldEqual, "B1")
				So(recs[0].Fallback, ShouldBeTrue)
				So(recs[1].Product.SKU, ShouldEqual, "B1")
				So(recs[1].Fallback, ShouldBeFalse)
			})
		})

		Convey("When the catalog has no tagged product at all", func() {
			catalog := Catalog{{SKU: "X1", Title: "Untagged"}}
			recs := e.Recommend(Biomarkers{}, catalog)

			Convey("Then the first product stands in", func() {
				So(recs[0].Product.SKU, ShouldEqual, "X1")
				So(recs[0].Fallback, ShouldBeTrue)
			})
		})

		Convey("When the catalog is empty", func() {
			recs := e.Recommend(Biomarkers{Glycemia: Value(8)}, nil)

			Convey("Then the built-in fallback product is used", func() {
				So(len(recs), ShouldEqual, 2)
				for _, r := range recs {
					So(r.Product.SKU, ShouldEqual, "TRE001")
					So(r.Fallback, ShouldBeTrue)
				}
			})
		})

		Convey("When a custom fallback is configured", func() {
			e := NewEngine(WithFallbackProduct(Product{SKU: "F1", Title: "Custom"}))
			recs := e.Recommend(Biomarkers{}, Catalog{})
			So(recs[0].Product.SKU, ShouldEqual, "F1")
		})
	})
}

func TestEngineOptions(t *testing.T) {
	Convey("Given custom thresholds", t, func() {
		e := NewEngine(WithThresholds(6.0, 0))

		Convey("Then cholesterol uses the new threshold and glycemia keeps the default", func() {
			recs := e.Recommend(Biomarkers{CholesterolTotal: Value(5.5), Glycemia: Value(6.5)}, FallbackCatalog())
			So(rulesOf(recs), ShouldResemble, []string{RuleMetabolic, RuleBaseline})
		})
	})

	Convey("Given a custom rule table without a baseline", t, func() {
		e := NewEngine(WithRules(
			Rule{Name: "b", Category: CategoryMetabolic, Priority: 2, Applies: func(Biomarkers) bool { return true }},
			Rule{Name: "a", Category: CategoryCardio, Priority: 2, Applies: func(Biomarkers) bool { return true }},
			Rule{Name: "first", Category: CategoryCardio, Priority: 1, Applies: func(Biomarkers) bool { return true }},
			Rule{Name: "never", Category: CategoryCardio, Priority: 0, Applies: func(Biomarkers) bool { return false }},
			Rule{Name: "nil", Category: CategoryCardio, Priority: 0},
		))

		Convey("Then ties keep table order and the baseline is added", func() {
			recs := e.Recommend(Biomarkers{}, FallbackCatalog())
			So(rulesOf(recs), ShouldResemble, []string{"first", "b", "a", RuleBaseline})
		})

		Convey("Then an empty outcome still yields the baseline", func() {
			e := NewEngine(WithRules(Rule{Name: "never", Applies: func(Biomarkers) bool { return false }}))
			recs := e.Recommend(Biomarkers{}, FallbackCatalog())
			So(rulesOf(recs), ShouldResemble, []string{RuleBaseline})
		})
	})

	Convey("Given custom tables that misdeclare the baseline", t, func() {
		always := func(Biomarkers) bool { return true }

		Convey("When the baseline rule is conditional", func() {
			e := NewEngine(WithRules(
				Rule{Name: "first", Category: CategoryCardio, Priority: 1, Applies: always},
				Rule{Name: RuleBaseline, Category: CategoryBaseline, Priority: 3, Applies: func(Biomarkers) bool { return false }},
			))

			Convey("Then the default baseline still closes the list", func() {
				recs := e.Recommend(Biomarkers{}, FallbackCatalog())
				So(rulesOf(recs), ShouldResemble, []string{"first", RuleBaseline})
			})
		})

		Convey("When the baseline is declared twice", func() {
			e := NewEngine(WithRules(
				Rule{Name: RuleBaseline, Category: CategoryBaseline, Priority: 3, Reason: "one", Applies: always},
				Rule{Name: RuleBaseline, Category: CategoryBaseline, Priority: 4, Reason: "two", Applies: always},
			))

			Convey("Then only the first contributes", func() {
				recs := e.Recommend(Biomarkers{}, FallbackCatalog())
				So(recs, ShouldHaveLength, 1)
				So(recs[0].Reason, ShouldEqual, "one")
			})
		})

		Convey("When priorities sit at the ends of the int range", func() {
			e := NewEngine(WithRules(
				Rule{Name: "high", Category: CategoryCardio, Priority: math.MaxInt, Applies: always},
				Rule{Name: "low", Category: CategoryCardio, Priority: math.MinInt, Applies: always},
			))

			Convey("Then ordering does not overflow", func() {
				recs := e.Recommend(Biomarkers{}, FallbackCatalog())
				So(rulesOf(recs), ShouldResemble, []string{"low", RuleBaseline, "high"})
			})
		})
	})
}

func TestEngineProperties(t *testing.T) {
	Convey("Given random sparse panels", t, func() {
		e := NewEngine()
		rnd := rand.New(rand.NewSource(42))
		links := NewOrderLinks("", "")

		for i := 0; i < 500; i++ {
			var b Biomarkers
			if rnd.Intn(2) == 0 {
				b.CholesterolTotal = Value(3 + rnd.Float64()*5)
			}
			if rnd.Intn(2) == 0 {
				b.Glycemia = Value(4 + rnd.Float64()*5)
			}
			recs := e.Recommend(b, FallbackCatalog())

			So(recs, ShouldNotBeEmpty)
			So(recs[len(recs)-1].Rule, ShouldEqual, RuleBaseline)
			for j := 1; j < len(recs); j++ {
				So(recs[j-1].Priority, ShouldBeLessThanOrEqualTo, recs[j].Priority)
			}

			hasCardio := recs[0].Rule == RuleCardiovascular
			So(hasCardio, ShouldEqual, b.CholesterolTotal != nil && *b.CholesterolTotal > 5.2)

			hasMetabolic := false
			for _, r := range recs {
				if r.Rule == RuleMetabolic {
					hasMetabolic = true
				}
			}
			So(hasMetabolic, ShouldEqual, b.Glycemia != nil && *b.Glycemia > 6.1)

			aggregate, _ := links.Attach(recs, "123-4567890")
			u, err := url.Parse(aggregate)
			So(err, ShouldBeNil)
			So(strings.Split(u.Query().Get("products"), ","), ShouldHaveLength, len(recs))
			So(strings.Count(aggregate, "123-4567890"), ShouldEqual, 1)
		}
	})
}

func TestToProtocol(t *testing.T) {
	Convey("Given recommendations", t, func() {
		recs := NewEngine().Recommend(Biomarkers{CholesterolTotal: Value(7)}, FallbackCatalog())
		protocol := ToProtocol(recs)

		Convey("Then each entry keeps product, dosage, reason and member price", func() {
			So(protocol, ShouldHaveLength, 2)
			So(protocol[0], ShouldResemble, ProtocolEntry{
				Product:     "Pro Vitality Plus",
				SKU:         "3143",
				Dosage:      "2 capsules par jour",
				Reason:      "Cholestérol élevé - Omega-3 pour la santé cardiovasculaire",
				Priority:    1,
				PriceMember: 43.5,
			})
			So(protocol[1].SKU, ShouldEqual, "TRE001")
		})
	})
}
