package recommend

import "slices"

// Category is the tag rules use to pick a product. Matching is exact; titles
// are never searched at recommendation time.
type Category string

const (
	CategoryCardio    Category = "omega-cardio"
	CategoryMetabolic Category = "antioxidant-metabolic"
	CategoryBaseline  Category = "membrane-baseline"
)

// Price holds single-unit and case prices.
type Price struct {
	Singles float64 `json:"singles"`
	Cases   float64 `json:"cases"`
}

// Product is read-only catalog reference data.
type Product struct {
	SKU      string     `json:"sku"`
	Title    string     `json:"title"`
	Subtitle string     `json:"subtitle,omitempty"`
	Image    string     `json:"image,omitempty"`
	GUID     string     `json:"guid,omitempty"`
	Group    string     `json:"group,omitempty"`
	PV       float64    `json:"pv"`
	BV       float64    `json:"bv"`
	Member   Price      `json:"member_price"`
	Retail   Price      `json:"retail_price"`
	Benefits []string   `json:"benefits,omitempty"`
	Tags     []Category `json:"tags"`
}

// HasTag reports whether p carries category c.
func (p Product) HasTag(c Category) bool {
	return slices.Contains(p.Tags, c)
}

// Catalog is an ordered product list. Order matters for lookups: the first
// tagged product wins.
type Catalog []Product

// Lookup returns the first product tagged c.
func (c Catalog) Lookup(cat Category) (Product, bool) {
	for _, p := range c {
		if p.HasTag(cat) {
			return p, true
		}
	}
	return Product{}, false
}

// BySKU returns the product with the given sku.
func (c Catalog) BySKU(sku string) (Product, bool) {
	for _, p := range c {
		if p.SKU == sku {
			return p, true
		}
	}
	return Product{}, false
}

// FallbackCatalog is the built-in catalog used when no remote catalog is
// available. Pro Vitality Plus covers the cardio and metabolic rules, Tré the
// membrane baseline.
func FallbackCatalog() Catalog {
	return Catalog{
		{
			SKU:      "3143",
			Title:    "Pro Vitality Plus",
			Subtitle: "30 packets",
			Image:    "https://s3.amazonaws.com/static.gnld.com/us/category/neolifeclubapp/bestsellers/provitalityplus/landingpage_m.png",
			GUID:     "NeoLifeClubApp/BestSellers/ProVitalityPlus",
			Group:    "Best Sellers",
			PV:       34,
			BV:       43,
			Member:   Price{Singles: 43.5, Cases: 261},
			Retail:   Price{Singles: 50.95, Cases: 305.7},
			Benefits: []string{"Santé cardiaque et cérébrale", "Énergie cellulaire", "Force immunitaire"},
			Tags:     []Category{CategoryCardio, CategoryMetabolic},
		},
		{
			SKU:      "TRE001",
			Title:    "Tré - Nutritional Essence",
			Subtitle: "Fluidité membranaire",
			Image:    "https://s3.amazonaws.com/static.gnld.com/us/category/neolifeclubapp/bestsellers/tre/landingpage_m.png",
			GUID:     "NeoLifeClubApp/BestSellers/Tre",
			Group:    "Best Sellers",
			PV:       28,
			BV:       35,
			Member:   Price{Singles: 36.5, Cases: 219},
			Retail:   Price{Singles: 42.95, Cases: 257.7},
			Benefits: []string{"Restaure la fluidité membranaire", "Optimise la nutrition cellulaire"},
			Tags:     []Category{CategoryBaseline},
		},
	}
}
