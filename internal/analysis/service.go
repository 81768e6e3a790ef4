// Package analysis computes brand density heatmaps and target proximity metrics
// from cached POIs, and refreshes the cache from the external provider.
package analysis

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/site-scout/internal/apperr"
	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/internal/provider"
	"github.com/sells-group/site-scout/internal/resilience"
	"github.com/sells-group/site-scout/internal/store"
)

const (
	defaultAnalysisTTL = time.Hour
	defaultStatsTTL    = 24 * time.Hour

	// MaxSamples caps the POI samples returned per bucket by AnalyzeTarget.
	MaxSamples = 20
)

// Service is the read and refresh surface over the POI cache.
type Service struct {
	provider provider.Provider
	pois     store.PoiStore
	analyses store.AnalysisStore

	poiAge       store.MaxAge
	analysisTTL  time.Duration
	statsTTL     time.Duration
	networkFetch bool
	pageSize     int
	retry        resilience.RetryConfig
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPOITTL bounds POI reads used by density and target analysis. Default Unbounded.
func WithPOITTL(age store.MaxAge) Option {
	return func(s *Service) { s.poiAge = age }
}

// WithAnalysisTTL sets how long memoized density results stay valid.
func WithAnalysisTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.analysisTTL = d
		}
	}
}

// WithStatsTTL sets the freshness window the statistics views compare against.
func WithStatsTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.statsTTL = d
		}
	}
}

// WithNetworkFetch lets density and target analysis fetch keywords that have no
// cached rows.
func WithNetworkFetch(enabled bool) Option {
	return func(s *Service) { s.networkFetch = enabled }
}

// WithPageSize sets the provider page size. 0 uses the provider default.
func WithPageSize(n int) Option {
	return func(s *Service) { s.pageSize = n }
}

// WithRateLimitRetry retries rate-limited keywords during refresh.
func WithRateLimitRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) { s.retry = cfg }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. prov may be nil for cache-only use.
func New(prov provider.Provider, pois store.PoiStore, analyses store.AnalysisStore, opts ...Option) *Service {
	s := &Service{
		provider:    prov,
		pois:        pois,
		analyses:    analyses,
		poiAge:      store.Unbounded,
		analysisTTL: defaultAnalysisTTL,
		statsTTL:    defaultStatsTTL,
		retry:       resilience.RetryConfig{MaxAttempts: 1},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) providerReady() bool {
	return s.provider != nil && s.provider.Ready()
}

// fetchKeyword pulls every page for keyword in city and stamps the records for the cache.
func (s *Service) fetchKeyword(ctx context.Context, city, keyword string) ([]model.CachedPOI, error) {
	pois, err := s.provider.SearchByKeyword(ctx, keyword, city, s.pageSize)
	if err != nil {
		return nil, apperr.FromProvider(err)
	}

	fetchedAt := s.now()
	out := make([]model.CachedPOI, 0, len(pois))
	for _, p := range pois {
		p.City = city
		out = append(out, model.CachedPOI{
			POI:         p,
			Keyword:     keyword,
			FetchSource: model.FetchSourceGaode,
			FetchedAt:   fetchedAt,
		})
	}
	return out, nil
}

// loadBuckets reads cached rows for keywords grouped by keyword. With network
// fetch enabled, keywords that have no cached rows are fetched and upserted.
func (s *Service) loadBuckets(ctx context.Context, city string, keywords []string) (map[string][]model.CachedPOI, model.Source, error) {
	rows, err := s.pois.POIsByKeywords(ctx, city, keywords, s.poiAge.AsOf(s.now()))
	if err != nil {
		return nil, "", apperr.Storage(err, "read cached pois")
	}

	buckets := make(map[string][]model.CachedPOI, len(keywords))
	for _, r := range rows {
		buckets[r.Keyword] = append(buckets[r.Keyword], r)
	}

	var cached, fetched int
	for _, kw := range keywords {
		if len(buckets[kw]) > 0 || !s.networkFetch {
			cached++
			continue
		}
		if !s.providerReady() {
			return nil, "", apperr.New(apperr.CodeProviderKeyMissing, "provider is not configured")
		}

		zap.L().Info("analysis: fetching uncached keyword", zap.String("city", city), zap.String("keyword", kw))
		recs, err := s.fetchKeyword(ctx, city, kw)
		if err != nil {
			return nil, "", err
		}
		if _, err := s.pois.UpsertPOIs(ctx, recs); err != nil {
			return nil, "", apperr.Storage(err, "cache fetched pois")
		}
		buckets[kw] = recs
		fetched++
	}

	return buckets, model.SourceOf(cached, fetched), nil
}

// splitBrands normalizes the main brand and competitor list. The main brand is
// removed from the competitors.
func splitBrands(mainBrand string, competitors []string) (string, []string) {
	main := model.NormalizeKeyword(mainBrand)
	comps := make([]string, 0, len(competitors))
	for _, c := range model.NormalizeKeywords(competitors) {
		if c != main {
			comps = append(comps, c)
		}
	}
	return main, comps
}

func requireCity(city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", apperr.Validationf("city is required")
	}
	return city, nil
}
