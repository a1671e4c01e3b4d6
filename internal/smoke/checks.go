package smoke

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/recommend"
	"github.com/startupforworld/coach/internal/domain/referral"
	"github.com/startupforworld/coach/pkg/logger"
)

type runner struct {
	cfg   *Config
	c     *client
	stats *Stats
	log   logger.Logger
}

// violation records a broken invariant without stopping the run.
func (r *runner) violation(ctx context.Context, check string, err error) {
	r.stats.Violations.Add(1)
	r.log.Warn(ctx, "invariant violated", logger.String("check", check), logger.Error(err))
}

// fanOut runs fn for 0..n-1 with at most cfg.Workers in flight.
func (r *runner) fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i := range n {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

type shareLinkResponse struct {
	Link string `json:"link"`
	Form string `json:"form"`
}

// checkSponsors builds a share link per seller, alternating the simple and
// shop forms, and resolves it back as a fresh visitor.
func (r *runner) checkSponsors(ctx context.Context, sellers []string) error {
	r.log.Info(ctx, "checking share link round trips", logger.Int("sellers", len(sellers)))
	return r.fanOut(ctx, len(sellers), func(ctx context.Context, i int) {
		id := sellers[i]
		shop := ""
		if i%2 == 0 {
			shop = "https://shopneolife.com/smoke/" + id
		}

		var link shareLinkResponse
		body := map[string]string{"ref_id": id, "shop_url": shop, "origin": r.cfg.Origin}
		if _, err := r.c.post(ctx, "/share-links", body, &link); err != nil {
			r.violation(ctx, "share_link", err)
			return
		}
		u, err := url.Parse(link.Link)
		if err != nil {
			r.violation(ctx, "share_link", fmt.Errorf("unparseable link %q: %w", link.Link, err))
			return
		}

		var sponsor referral.SponsorContext
		if _, err := r.c.get(ctx, "/sponsor?search="+url.QueryEscape("?"+u.RawQuery), &sponsor); err != nil {
			r.violation(ctx, "sponsor", err)
			return
		}
		if err := verifySponsor(id, shop, sponsor); err != nil {
			r.violation(ctx, "sponsor", err)
			return
		}
		r.stats.SponsorChecks.Add(1)
	})
}

type recommendResponse struct {
	Recommendations []recommend.Recommendation `json:"recommendations"`
	OrderURL        string                     `json:"order_url"`
	SellerID        string                     `json:"seller_id"`
}

// checkRecommendations sends one random panel per seller.
func (r *runner) checkRecommendations(ctx context.Context, sellers []string) error {
	r.log.Info(ctx, "checking recommendations", logger.Int("panels", len(sellers)))
	return r.fanOut(ctx, len(sellers), func(ctx context.Context, i int) {
		b := randomBiomarkers()
		var res recommendResponse
		body := map[string]any{"biomarkers": b, "seller_id": sellers[i]}
		if _, err := r.c.post(ctx, "/recommendations", body, &res); err != nil {
			r.violation(ctx, "recommendations", err)
			return
		}
		if err := verifyRecommendations(b, res.Recommendations, sellers[i], r.cfg.CholesterolThreshold, r.cfg.GlycemiaThreshold); err != nil {
			r.violation(ctx, "recommendations", err)
			return
		}
		r.stats.Recommendations.Add(1)
	})
}

type leadResponse struct {
	Lead      model.ProspectLead `json:"lead"`
	Duplicate bool               `json:"duplicate"`
}

// checkLeads posts every submission twice at once. Exactly one post may
// create the lead and both must name the same lead.
func (r *runner) checkLeads(ctx context.Context, leads []LeadSubmission) error {
	r.log.Info(ctx, "checking lead deduplication", logger.Int("leads", len(leads)))
	return r.fanOut(ctx, len(leads), func(ctx context.Context, i int) {
		var (
			wg       sync.WaitGroup
			statuses [2]int
			results  [2]leadResponse
			errs     [2]error
		)
		for k := range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				statuses[k], errs[k] = r.c.post(ctx, "/leads", leads[i], &results[k])
			}()
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				r.violation(ctx, "leads", err)
				return
			}
		}
		created := 0
		for k := range 2 {
			if statuses[k] == http.StatusCreated {
				created++
			}
		}
		if created != 1 {
			r.violation(ctx, "leads", fmt.Errorf("submission %s created %d leads", leads[i].SubmissionID, created))
			return
		}
		if results[0].Lead.ID != results[1].Lead.ID {
			r.violation(ctx, "leads", fmt.Errorf("submission %s answered with leads %s and %s",
				leads[i].SubmissionID, results[0].Lead.ID, results[1].Lead.ID))
			return
		}
		r.stats.LeadsCreated.Add(1)
		r.stats.LeadDuplicates.Add(1)
	})
}

type analysisResponse struct {
	RecordID        string                     `json:"record_id"`
	Status          string                     `json:"status"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
}

// checkAnalyses submits analyses and waits for each record and its protocol
// to be persisted.
func (r *runner) checkAnalyses(ctx context.Context, sellers []string) error {
	r.log.Info(ctx, "checking analysis persistence", logger.Int("analyses", r.cfg.Analyses))
	return r.fanOut(ctx, r.cfg.Analyses, func(ctx context.Context, i int) {
		user := "smoke-" + uuid.NewString()
		body := map[string]any{
			"user_id":    user,
			"seller_id":  sellers[i%len(sellers)],
			"biomarkers": randomBiomarkers(),
		}
		var res analysisResponse
		status, err := r.c.post(ctx, "/analyses", body, &res)
		if err != nil {
			r.violation(ctx, "analyses", err)
			return
		}
		if status != http.StatusAccepted {
			r.violation(ctx, "analyses", fmt.Errorf("analysis answered %d, want 202", status))
			return
		}
		r.stats.AnalysesSubmitted.Add(1)

		if err := r.awaitRecord(ctx, user, res.RecordID, len(res.Recommendations)); err != nil {
			r.violation(ctx, "analyses", err)
			return
		}
		r.stats.RecordsPersisted.Add(1)
	})
}

// awaitRecord polls the user's history until recordID carries a protocol of
// protocolLen entries.
func (r *runner) awaitRecord(ctx context.Context, user, recordID string, protocolLen int) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.SettleTimeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		var records []model.ClinicalRecord
		if _, err := r.c.get(ctx, "/clinical-records?user_id="+url.QueryEscape(user), &records); err == nil {
			for _, rec := range records {
				if rec.ID == recordID && len(rec.Protocol) == protocolLen {
					return nil
				}
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("record %s for %s not persisted: %w", recordID, user, ctx.Err())
		case <-ticker.C:
		}
	}
}
