package smoke

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/startupforworld/coach/internal/domain/recommend"
	"github.com/startupforworld/coach/internal/domain/referral"
)

// verifySponsor checks that a share link resolved back to the sponsor that
// produced it.
func verifySponsor(id, shop string, got referral.SponsorContext) error {
	if got.ID != id {
		return fmt.Errorf("sponsor id %q resolved as %q", id, got.ID)
	}
	if !got.IsReferral {
		return fmt.Errorf("sponsor %q not marked as referral", id)
	}
	if shop != "" {
		if got.Source != referral.SourceCompound {
			return fmt.Errorf("sponsor %q with shop resolved from %q", id, got.Source)
		}
		if got.ShopURL != shop {
			return fmt.Errorf("sponsor %q shop %q resolved as %q", id, shop, got.ShopURL)
		}
		return nil
	}
	if got.Source != referral.SourceQuery {
		return fmt.Errorf("sponsor %q resolved from %q", id, got.Source)
	}
	if !strings.Contains(got.ShopURL, "id="+url.QueryEscape(id)) {
		return fmt.Errorf("sponsor %q shop %q is not attributed", id, got.ShopURL)
	}
	return nil
}

// verifyRecommendations checks the rule table invariants: the list is never
// empty, priorities never decrease, each threshold rule fires exactly when
// its biomarker exceeds the threshold, and every entry links to the seller.
func verifyRecommendations(b recommend.Biomarkers, recs []recommend.Recommendation, sellerID string, cholesterol, glycemia float64) error {
	if len(recs) == 0 {
		return fmt.Errorf("empty recommendation list")
	}
	if !slices.IsSortedFunc(recs, func(a, b recommend.Recommendation) int { return a.Priority - b.Priority }) {
		return fmt.Errorf("recommendations out of priority order")
	}

	rules := make([]string, len(recs))
	for i, r := range recs {
		rules[i] = r.Rule
		if !strings.Contains(r.OrderURL, "id="+url.QueryEscape(sellerID)) {
			return fmt.Errorf("recommendation %s order url %q misses seller %s", r.Rule, r.OrderURL, sellerID)
		}
	}

	wantCardio := b.CholesterolTotal != nil && *b.CholesterolTotal > cholesterol
	if got := slices.Contains(rules, recommend.RuleCardiovascular); got != wantCardio {
		return fmt.Errorf("cardiovascular rule fired=%t, want %t", got, wantCardio)
	}
	wantMetabolic := b.Glycemia != nil && *b.Glycemia > glycemia
	if got := slices.Contains(rules, recommend.RuleMetabolic); got != wantMetabolic {
		return fmt.Errorf("metabolic rule fired=%t, want %t", got, wantMetabolic)
	}
	if !slices.Contains(rules, recommend.RuleBaseline) {
		return fmt.Errorf("baseline recommendation missing")
	}
	return nil
}
