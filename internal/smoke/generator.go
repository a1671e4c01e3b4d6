package smoke

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"github.com/startupforworld/coach/internal/domain/recommend"
)

// Biomarker ranges, in mmol/L, wide enough to land on both sides of the
// default thresholds.
const (
	cholesterolMin   = 3.5
	cholesterolRange = 4.5
	glycemiaMin      = 4.0
	glycemiaRange    = 5.0
	randomDivisor    = 1_000_000
	presenceChance   = 0.8
)

// randomFloat returns a value in [0, 1) from crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomDivisor))
	return float64(n.Int64()) / randomDivisor
}

func randomDigits(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		d, _ := rand.Int(rand.Reader, big.NewInt(10))
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String()
}

// distributorID returns a random id in the DDD-DDDDDDD format.
func distributorID() string {
	return randomDigits(3) + "-" + randomDigits(7)
}

// generateSellers returns n distinct distributor ids, none equal to skip.
func generateSellers(n int, skip string) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		id := distributorID()
		if _, dup := seen[id]; dup || id == skip {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// randomBiomarkers returns a panel where each value is present most of the time.
func randomBiomarkers() recommend.Biomarkers {
	var b recommend.Biomarkers
	if randomFloat() < presenceChance {
		v := cholesterolMin + randomFloat()*cholesterolRange
		b.CholesterolTotal = &v
	}
	if randomFloat() < presenceChance {
		v := glycemiaMin + randomFloat()*glycemiaRange
		b.Glycemia = &v
	}
	return b
}

// generateLeads spreads n submissions over sellers.
func generateLeads(n int, sellers []string) []LeadSubmission {
	out := make([]LeadSubmission, n)
	for i := range out {
		id := uuid.NewString()
		out[i] = LeadSubmission{
			SubmissionID: id,
			ReferrerID:   sellers[i%len(sellers)],
			Email:        "smoke+" + id[:8] + "@example.com",
			Name:         "Smoke " + id[:8],
		}
	}
	return out
}
