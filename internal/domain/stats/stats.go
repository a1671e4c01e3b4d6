// Package stats derives dashboard figures from stored records and leads.
package stats

import (
	"math"
	"time"

	"github.com/startupforworld/coach/internal/domain/model"
)

// Window is the span covered by Weekly.
const Window = 7 * 24 * time.Hour

var weekdayNames = [7]string{"Dim", "Lun", "Mar", "Mer", "Jeu", "Ven", "Sam"}

// Summary is the funnel of one referrer plus the diagnostics of one user.
type Summary struct {
	Diagnostics    int     `json:"diagnostics"`
	Prospects      int     `json:"prospects"`
	Contacted      int     `json:"contacted"`
	Conversions    int     `json:"conversions"`
	Lost           int     `json:"lost"`
	ConversionRate float64 `json:"conversion_rate"`
}

// DayActivity is one bar of the weekly chart.
type DayActivity struct {
	Name        string `json:"name"`
	Diagnostics int    `json:"diagnostics"`
	Leads       int    `json:"leads"`
}

// Summarize counts records and leads by status. ConversionRate is a
// percentage with one decimal, zero when there are no prospects.
func Summarize(records []model.ClinicalRecord, leads []model.ProspectLead) Summary {
	s := Summary{Diagnostics: len(records), Prospects: len(leads)}
	for _, l := range leads {
		switch l.Status {
		case model.LeadContacted:
			s.Contacted++
		case model.LeadConverted:
			s.Conversions++
		case model.LeadLost:
			s.Lost++
		}
	}
	if s.Prospects > 0 {
		s.ConversionRate = math.Round(float64(s.Conversions)*1000/float64(s.Prospects)) / 10
	}
	return s
}

// Weekly buckets activity of the last seven days by weekday, Sunday first.
// Timestamps are bucketed in now's location.
func Weekly(records []model.ClinicalRecord, leads []model.ProspectLead, now time.Time) []DayActivity {
	days := make([]DayActivity, len(weekdayNames))
	for i, name := range weekdayNames {
		days[i].Name = name
	}
	since := now.Add(-Window)
	within := func(t time.Time) bool { return t.After(since) && !t.After(now) }

	for _, r := range records {
		if within(r.CreatedAt) {
			days[r.CreatedAt.In(now.Location()).Weekday()].Diagnostics++
		}
	}
	for _, l := range leads {
		if within(l.CreatedAt) {
			days[l.CreatedAt.In(now.Location()).Weekday()].Leads++
		}
	}
	return days
}
