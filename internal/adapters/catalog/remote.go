package catalog

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/startupforworld/coach/internal/domain/recommend"
	"github.com/startupforworld/coach/pkg/logger"
)

// Remote fetches the NeoLife shopping catalog.
type Remote struct {
	baseURL      string
	category     string
	localization string
	username     string
	password     string
	client       *http.Client
	limiter      *rate.Limiter
	log          logger.Logger

	mu       sync.Mutex
	uid      string
	usession string
}

// NewRemote creates a remote source.
func NewRemote(opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL:      DefaultBaseURL,
		category:     DefaultCategory,
		localization: DefaultLocalization,
		client:       &http.Client{Timeout: defaultTimeout},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRate), 1),
		log:          logger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.baseURL = strings.TrimRight(r.baseURL, "/")
	return r
}

type apiPrice struct {
	Singles float64 `json:"Singles"`
	Cases   float64 `json:"Cases"`
}

type apiProduct struct {
	SKU      string    `json:"SKU"`
	Title    string    `json:"Title"`
	Subtitle string    `json:"Subtitle"`
	Image    string    `json:"Image"`
	Pv       float64   `json:"Pv"`
	Bv       float64   `json:"Bv"`
	Retail   *apiPrice `json:"Retail"`
	Member   *apiPrice `json:"Member"`
}

type apiDetail struct {
	Key      string `json:"Key"`
	HTML     string `json:"Html"`
	Expanded *struct {
		Body string `json:"Body"`
	} `json:"Expanded"`
}

type apiCategory struct {
	Title         string       `json:"Title"`
	GUID          string       `json:"Guid"`
	Details       []apiDetail  `json:"Details"`
	Products      []apiProduct `json:"Products"`
	SubCategories []struct {
		Title string `json:"Title"`
		URL   string `json:"Url"`
	} `json:"SubCategories"`
}

type loginResponse struct {
	UID      string `json:"uid"`
	USession string `json:"usession"`
}

// Fetch logs in when credentials are configured, loads the root category
// and its subcategories, and returns every product tagged by title. A failed
// subcategory is skipped; a failed root category fails the fetch.
func (r *Remote) Fetch(ctx context.Context) (recommend.Catalog, error) {
	if err := r.ensureSession(ctx); err != nil {
		return nil, err
	}

	root, err := r.fetchCategory(ctx, r.baseURL+"/shopping/catalog/"+url.PathEscape(r.category)+".json")
	if err != nil {
		return nil, err
	}

	products := mapProducts(root)

	subs := make([][]recommend.Product, len(root.SubCategories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultSubcategoryFanout)
	for i, sub := range root.SubCategories {
		target, err := r.resolve(sub.URL)
		if err != nil {
			r.log.Warn(ctx, "skipping subcategory", logger.String("title", sub.Title), logger.Error(err))
			continue
		}
		g.Go(func() error {
			cat, err := r.fetchCategory(gctx, target)
			if err != nil {
				r.log.Warn(gctx, "skipping subcategory", logger.String("title", sub.Title), logger.Error(err))
				return nil
			}
			subs[i] = mapProducts(cat)
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range subs {
		products = append(products, s...)
	}
	products = dedupeBySKU(products)
	if len(products) == 0 {
		return nil, ErrEmptyCatalog
	}
	return products, nil
}

func (r *Remote) ensureSession(ctx context.Context) error {
	if r.username == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.uid != "" && r.usession != "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{"username": r.username, "password": r.password})
	if err != nil {
		return eris.Wrap(err, "catalog: marshal login")
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "catalog: rate limit")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/auth/login/", bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "catalog: build login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "catalog: login")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return eris.Wrapf(ErrLogin, "catalog: login status %d", resp.StatusCode)
	}
	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return eris.Wrap(err, "catalog: decode login")
	}
	if lr.UID == "" || lr.USession == "" {
		return eris.Wrap(ErrLogin, "catalog: login returned no session")
	}
	r.uid, r.usession = lr.UID, lr.USession
	return nil
}

func (r *Remote) authorization() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.authorizationLocked()
}

func (r *Remote) authorizationLocked() string {
	if r.uid == "" || r.usession == "" {
		return ""
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(r.uid+":"+r.usession))
}

// dropSession forgets the session behind auth unless another request has
// already replaced it.
func (r *Remote) dropSession(auth string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.authorizationLocked() == auth {
		r.uid, r.usession = "", ""
	}
}

// fetchCategory gets target, logging in again once when the upstream
// rejects the cached session.
func (r *Remote) fetchCategory(ctx context.Context, target string) (apiCategory, error) {
	auth := r.authorization()
	cat, err := r.getCategory(ctx, target, auth)
	if r.username == "" || !errors.Is(err, ErrUnauthorized) {
		return cat, err
	}
	r.log.Info(ctx, "catalog session rejected, logging in again")
	r.dropSession(auth)
	if err := r.ensureSession(ctx); err != nil {
		return cat, err
	}
	return r.getCategory(ctx, target, r.authorization())
}

// resolve turns a subcategory path like /v1/shopping/... into an absolute URL
// on the API host.
func (r *Remote) resolve(ref string) (string, error) {
	base, err := url.Parse(r.baseURL)
	if err != nil {
		return "", eris.Wrap(err, "catalog: parse base url")
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", eris.Wrapf(err, "catalog: parse subcategory url %q", ref)
	}
	return base.ResolveReference(rel).String(), nil
}

func (r *Remote) getCategory(ctx context.Context, target, auth string) (apiCategory, error) {
	var cat apiCategory
	if err := r.limiter.Wait(ctx); err != nil {
		return cat, eris.Wrap(err, "catalog: rate limit")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return cat, eris.Wrap(err, "catalog: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("localization", r.localization)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return cat, eris.Wrapf(err, "catalog: get %s", target)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return cat, eris.Wrapf(ErrUnauthorized, "catalog: get %s", target)
	}
	if resp.StatusCode != http.StatusOK {
		return cat, eris.Wrapf(ErrStatus, "catalog: get %s: status %d", target, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&cat); err != nil {
		return cat, eris.Wrapf(err, "catalog: decode %s", target)
	}
	return cat, nil
}

func mapProducts(cat apiCategory) []recommend.Product {
	benefits := extractBenefits(cat.Details)
	out := make([]recommend.Product, 0, len(cat.Products))
	for _, p := range cat.Products {
		if strings.TrimSpace(p.SKU) == "" {
			continue
		}
		prod := recommend.Product{
			SKU:      p.SKU,
			Title:    p.Title,
			Subtitle: p.Subtitle,
			Image:    p.Image,
			GUID:     cat.GUID,
			Group:    cat.Title,
			PV:       p.Pv,
			BV:       p.Bv,
			Benefits: benefits,
			Tags:     TagsForTitle(p.Title),
		}
		if p.Retail != nil {
			prod.Retail = recommend.Price{Singles: p.Retail.Singles, Cases: p.Retail.Cases}
		}
		if p.Member != nil {
			prod.Member = recommend.Price{Singles: p.Member.Singles, Cases: p.Member.Cases}
		}
		out = append(out, prod)
	}
	return out
}

// extractBenefits keeps the details whose key mentions Health or Benefits.
func extractBenefits(details []apiDetail) []string {
	var out []string
	for _, d := range details {
		if !strings.Contains(d.Key, "Health") && !strings.Contains(d.Key, "Benefits") {
			continue
		}
		text := d.HTML
		if d.Expanded != nil && d.Expanded.Body != "" {
			text = d.Expanded.Body
		}
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

func dedupeBySKU(products []recommend.Product) recommend.Catalog {
	seen := make(map[string]struct{}, len(products))
	out := make(recommend.Catalog, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.SKU]; ok {
			continue
		}
		seen[p.SKU] = struct{}{}
		out = append(out, p)
	}
	return out
}
