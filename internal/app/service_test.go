package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/startupforworld/coach/internal/app"
	"github.com/startupforworld/coach/internal/adapters/genai"
	"github.com/startupforworld/coach/internal/adapters/repository"
	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/recommend"
	"github.com/startupforworld/coach/internal/domain/referral"
	"github.com/startupforworld/coach/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type emptyCatalog struct{}

func (emptyCatalog) Catalog(context.Context) recommend.Catalog { return nil }

type fakeExtractor struct {
	out genai.Extraction
	err error
}

func (f fakeExtractor) Extract(context.Context, string) (genai.Extraction, error) {
	return f.out, f.err
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["catalogProducts"], ShouldEqual, 2)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithSessionTTL(time.Hour),
		)

		Convey("Then the options are reported", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 50_000)
			So(stats["dedupeSize"], ShouldEqual, 25_000)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		defer svc.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			Convey("And stopping marks it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(func() { svc.Stop() }, ShouldNotPanic)
			})
		})
	})
}

func TestService_ResolveSponsor(t *testing.T) {
	Convey("Given a service with the in-memory session store", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When a visit carries a referral", func() {
			first := svc.ResolveSponsor(ctx, service.SponsorRequest{SessionKey: "s1", Query: "?ref=123-4567890"})

			Convey("Then the query wins", func() {
				So(first.IsReferral, ShouldBeTrue)
				So(first.Source, ShouldEqual, referral.SourceQuery)
			})

			Convey("Then a later visit of the same session keeps the sponsor", func() {
				again := svc.ResolveSponsor(ctx, service.SponsorRequest{SessionKey: "s1"})
				So(again.ID, ShouldEqual, "123-4567890")
				So(again.Source, ShouldEqual, referral.SourceSession)
			})

			Convey("Then another session is unaffected", func() {
				other := svc.ResolveSponsor(ctx, service.SponsorRequest{SessionKey: "s2"})
				So(other.IsReferral, ShouldBeFalse)
				So(other.ID, ShouldEqual, referral.DefaultFounderID)
			})
		})

		Convey("When there is no session key", func() {
			svc.ResolveSponsor(ctx, service.SponsorRequest{Query: "ref=999-0000000"})
			sponsor := svc.ResolveSponsor(ctx, service.SponsorRequest{})

			Convey("Then nothing is remembered", func() {
				So(sponsor.Source, ShouldEqual, referral.SourceDefault)
			})
		})
	})
}

func TestService_Links(t *testing.T) {
	Convey("Given a service with a fixed clock", t, func() {
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		svc := service.New(service.WithClock(func() time.Time { return now }))

		Convey("When building a share link", func() {
			link, err := svc.ShareLink("https://coach.example", "123-4567890", "https://shopneolife.com/jane")
			So(err, ShouldBeNil)

			Convey("Then it resolves back to the sponsor", func() {
				ctx := referral.NewResolver().Resolve(link[strings.Index(link, "?"):], "")
				So(ctx.ID, ShouldEqual, "123-4567890")
				So(ctx.ShopURL, ShouldEqual, "https://shopneolife.com/jane")
				So(ctx.Source, ShouldEqual, referral.SourceCompound)
			})
		})

		Convey("When the sponsor id is missing", func() {
			_, err := svc.ShareLink("https://coach.example", " ", "")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When issuing a prospect link", func() {
			link, url, err := svc.ProspectLink("https://coach.example", "123-4567890", "Jane")
			So(err, ShouldBeNil)

			Convey("Then the link id names the referrer and the clock", func() {
				So(strings.HasPrefix(link.LinkID, "123-4567890-1772359200000-"), ShouldBeTrue)
				So(url, ShouldEqual, "https://coach.example?prospect="+link.LinkID+"&ref=123-4567890")
				So(link.ExpiresAt.Equal(now.Add(model.ShareLinkTTL)), ShouldBeTrue)
			})
		})

		Convey("When validating referrer ids", func() {
			So(svc.ValidateReferrer(" 123-4567890 "), ShouldBeTrue)
			So(svc.ValidateReferrer("12-34"), ShouldBeFalse)
		})
	})
}

func TestService_Recommend(t *testing.T) {
	Convey("Given a service with the built-in catalog", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When cholesterol is elevated", func() {
			res := svc.Recommend(ctx, recommend.Biomarkers{CholesterolTotal: recommend.Value(6)}, "123-4567890")

			Convey("Then cardio leads and links carry the seller", func() {
				So(res.Recommendations, ShouldHaveLength, 2)
				So(res.Recommendations[0].Rule, ShouldEqual, recommend.RuleCardiovascular)
				So(res.OrderURL, ShouldContainSubstring, "id=123-4567890")
				So(res.Recommendations[0].OrderURL, ShouldStartWith, res.OrderURL+"&focus=")
			})
		})

		Convey("When no seller is given", func() {
			res := svc.Recommend(ctx, recommend.Biomarkers{}, "")

			Convey("Then the founder is attributed", func() {
				So(res.SellerID, ShouldEqual, referral.DefaultFounderID)
				So(res.Recommendations, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a service whose catalog is empty", t, func() {
		svc := service.New(service.WithCatalog(emptyCatalog{}))
		res := svc.Recommend(context.Background(), recommend.Biomarkers{Glycemia: recommend.Value(8)}, "S1")

		Convey("Then every recommendation falls back", func() {
			So(res.Recommendations, ShouldHaveLength, 2)
			for _, r := range res.Recommendations {
				So(r.Fallback, ShouldBeTrue)
			}
		})
	})
}

func TestService_SubmitAnalysis(t *testing.T) {
	Convey("Given a service that is not started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When the user id is missing", func() {
			_, err := svc.SubmitAnalysis(ctx, service.AnalysisRequest{})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When only a report is sent without an extractor", func() {
			_, err := svc.SubmitAnalysis(ctx, service.AnalysisRequest{UserID: "u1", Report: "Cholestérol 6.4"})
			So(errors.Is(err, service.ErrExtractionUnavailable), ShouldBeTrue)
		})

		Convey("When a valid submission is sent", func() {
			_, err := svc.SubmitAnalysis(ctx, service.AnalysisRequest{UserID: "u1"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a started service with an extractor", t, func() {
		age := 52
		store := repository.NewMemoryStore()
		svc := service.New(
			service.WithStore(store),
			service.WithWorkerCount(2),
			service.WithWorkerRetry(5, 10*time.Millisecond),
			service.WithExtractor(fakeExtractor{out: genai.Extraction{
				Patient:    model.Patient{Age: &age, Sex: "F"},
				Biomarkers: recommend.Biomarkers{CholesterolTotal: recommend.Value(6.4)},
				Analysis:   "Cholestérol élevé",
			}}),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a report is submitted", func() {
			res, err := svc.SubmitAnalysis(ctx, service.AnalysisRequest{UserID: "u1", Report: "bilan", SellerID: "123-4567890"})
			So(err, ShouldBeNil)

			Convey("Then the extraction drives the recommendations", func() {
				So(res.Status, ShouldEqual, "accepted")
				So(res.Extracted, ShouldBeTrue)
				So(*res.Patient.Age, ShouldEqual, 52)
				So(res.Recommendations[0].Rule, ShouldEqual, recommend.RuleCardiovascular)
			})

			Convey("Then the record and its protocol are persisted", func() {
				var records []model.ClinicalRecord
				for i := 0; i < 200; i++ {
					records, err = svc.ClinicalRecords(ctx, "u1", 0)
					So(err, ShouldBeNil)
					if len(records) == 1 && len(records[0].Protocol) == 2 {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(records, ShouldHaveLength, 1)
				So(records[0].ID, ShouldEqual, res.RecordID)
				So(records[0].SellerID, ShouldEqual, "123-4567890")
				So(records[0].Protocol, ShouldHaveLength, 2)
				So(records[0].Protocol[0].SKU, ShouldEqual, "3143")
			})
		})

		Convey("When the extractor fails", func() {
			failing := service.New(service.WithExtractor(fakeExtractor{err: genai.ErrUnparseable}))
			_, err := failing.SubmitAnalysis(ctx, service.AnalysisRequest{UserID: "u1", Report: "bilan"})
			So(errors.Is(err, genai.ErrUnparseable), ShouldBeTrue)
		})
	})
}

// slowStore delays record writes so jobs pile up in the queue.
type slowStore struct {
	*repository.MemoryStore
	delay time.Duration
}

func (s slowStore) SaveClinicalRecord(ctx context.Context, rec model.ClinicalRecord) error {
	time.Sleep(s.delay)
	return s.MemoryStore.SaveClinicalRecord(ctx, rec)
}

func TestService_Persistence(t *testing.T) {
	panel := recommend.Biomarkers{CholesterolTotal: recommend.Value(6.4)}

	Convey("Given a started service behind a slow store", t, func() {
		store := repository.NewMemoryStore()
		svc := service.New(
			service.WithStore(slowStore{MemoryStore: store, delay: 20 * time.Millisecond}),
			service.WithWorkerCount(1),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the start context is cancelled with analyses still queued", func() {
			for range 10 {
				_, err := svc.SubmitAnalysis(ctx, service.AnalysisRequest{UserID: "u1", Biomarkers: panel})
				So(err, ShouldBeNil)
			}
			cancel()
			svc.Stop()

			Convey("Then stopping persists every accepted analysis with its protocol", func() {
				records, err := store.ListClinicalRecords(context.Background(), "u1", 0)
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 10)
				for _, r := range records {
					So(r.Protocol, ShouldHaveLength, 2)
				}
			})
		})
	})

	Convey("Given a started service with a single queue slot", t, func() {
		store := repository.NewMemoryStore()
		svc := service.New(
			service.WithStore(slowStore{MemoryStore: store, delay: 5 * time.Millisecond}),
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When analyses arrive faster than they are written", func() {
			accepted := map[string]bool{}
			for range 30 {
				res, err := svc.SubmitAnalysis(ctx, service.AnalysisRequest{UserID: "u1", Biomarkers: panel})
				if err != nil {
					So(errors.Is(err, service.ErrQueueFull), ShouldBeTrue)
					continue
				}
				accepted[res.RecordID] = true
			}
			svc.Stop()

			Convey("Then exactly the accepted analyses are stored, each complete", func() {
				So(len(accepted), ShouldBeGreaterThan, 0)
				records, err := store.ListClinicalRecords(ctx, "u1", 0)
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, len(accepted))
				for _, r := range records {
					So(accepted[r.ID], ShouldBeTrue)
					So(r.Protocol, ShouldHaveLength, 2)
				}
			})
		})
	})

	Convey("Given a stored analysis", t, func() {
		store := repository.NewMemoryStore()
		svc := service.New(service.WithStore(store), service.WithWorkerCount(1))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		res, err := svc.SubmitAnalysis(ctx, service.AnalysisRequest{UserID: "u1", Biomarkers: panel})
		So(err, ShouldBeNil)

		Convey("When its protocol is refreshed from a new panel", func() {
			next := recommend.Biomarkers{CholesterolTotal: recommend.Value(6.4), Glycemia: recommend.Value(7)}
			refreshed, err := svc.RefreshProtocol(ctx, res.RecordID, next, "123-4567890")
			So(err, ShouldBeNil)
			So(refreshed.Recommendations, ShouldHaveLength, 3)
			svc.Stop()

			Convey("Then the stored protocol is replaced", func() {
				records, err := store.ListClinicalRecords(ctx, "u1", 0)
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 1)
				So(records[0].Protocol, ShouldHaveLength, 3)
			})
		})

		Convey("When the record id is blank", func() {
			_, err := svc.RefreshProtocol(ctx, " ", panel, "")
			svc.Stop()
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestService_Leads(t *testing.T) {
	Convey("Given a service", t, func() {
		now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
		svc := service.New(service.WithClock(func() time.Time { return now }))
		ctx := context.Background()

		Convey("When a lead is captured twice with one submission id", func() {
			req := service.LeadRequest{SubmissionID: "sub-1", ReferrerID: "123-4567890", Email: "a@b.c"}
			first, dup, err := svc.CaptureLead(ctx, req)
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			second, dup, err := svc.CaptureLead(ctx, req)
			So(err, ShouldBeNil)

			Convey("Then the second returns the first lead id", func() {
				So(dup, ShouldBeTrue)
				So(second.ID, ShouldEqual, first.ID)
				leads, err := svc.ListLeads(ctx, "123-4567890", 0)
				So(err, ShouldBeNil)
				So(leads, ShouldHaveLength, 1)
				So(leads[0].Status, ShouldEqual, model.LeadNew)
			})
		})

		Convey("When only a link id names the referrer", func() {
			lead, _, err := svc.CaptureLead(ctx, service.LeadRequest{LinkID: "123-4567890-1772359200000-abcd", Phone: "+229 00"})
			So(err, ShouldBeNil)
			So(lead.ReferrerID, ShouldEqual, "123-4567890")
		})

		Convey("When the lead has no contact", func() {
			_, _, err := svc.CaptureLead(ctx, service.LeadRequest{ReferrerID: "123-4567890"})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When a lead moves through the funnel", func() {
			lead, _, err := svc.CaptureLead(ctx, service.LeadRequest{ReferrerID: "R1", Email: "x@y.z"})
			So(err, ShouldBeNil)

			updated, err := svc.UpdateLeadStatus(ctx, lead.ID, model.LeadConverted)
			So(err, ShouldBeNil)
			So(updated.Status, ShouldEqual, model.LeadConverted)

			_, err = svc.UpdateLeadStatus(ctx, lead.ID, "archived")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)

			_, err = svc.UpdateLeadStatus(ctx, "missing", model.LeadLost)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			Convey("Then the dashboard reflects it", func() {
				dash, err := svc.DashboardStats(ctx, "", "R1")
				So(err, ShouldBeNil)
				So(dash.Summary.Prospects, ShouldEqual, 1)
				So(dash.Summary.Conversions, ShouldEqual, 1)
				So(dash.Summary.ConversionRate, ShouldEqual, 100.0)
				So(dash.Weekly, ShouldHaveLength, 7)
			})
		})

		Convey("When the dashboard has no ids", func() {
			_, err := svc.DashboardStats(ctx, " ", "")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestService_AssistantPrompt(t *testing.T) {
	Convey("Given a referred visit", t, func() {
		svc := service.New()
		text, sponsor := svc.AssistantPrompt(context.Background(),
			service.SponsorRequest{Query: "ref=123-4567890"}, "", "https://coach.example")

		Convey("Then the sponsor shop is the destination", func() {
			So(sponsor.IsReferral, ShouldBeTrue)
			So(text, ShouldContainSubstring, "Shop : "+sponsor.ShopURL)
		})
	})

	Convey("Given a leader visit with a visitor id", t, func() {
		svc := service.New()
		text, sponsor := svc.AssistantPrompt(context.Background(),
			service.SponsorRequest{}, "555-1234567", "https://coach.example")

		Convey("Then the visitor's share link is included", func() {
			So(sponsor.IsReferral, ShouldBeFalse)
			So(text, ShouldContainSubstring, "Partage : https://coach.example?ref=555-1234567")
		})
	})
}
