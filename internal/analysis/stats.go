package analysis

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/site-scout/internal/apperr"
	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/internal/store"
)

// Distribution thresholds.
const (
	ageBucketHours    = 24
	ageBucketCount    = 7
	sparseKeywordRows = 10
	staleRatioWarning = 0.5
)

// StatsReport groups cached rows by keyword and city.
type StatsReport struct {
	City        string              `json:"city,omitempty"`
	TotalPOIs   int                 `json:"total_pois"`
	Keywords    []model.KeywordStat `json:"keywords"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// Stats returns per-keyword counts over every cached row. city "" covers all cities.
func (s *Service) Stats(ctx context.Context, city string) (*StatsReport, error) {
	city = strings.TrimSpace(city)
	stats, err := s.pois.KeywordStats(ctx, city, store.Unbounded)
	if err != nil {
		return nil, apperr.Storage(err, "keyword stats")
	}

	report := &StatsReport{City: city, Keywords: stats, GeneratedAt: s.now()}
	if report.Keywords == nil {
		report.Keywords = []model.KeywordStat{}
	}
	for _, st := range stats {
		report.TotalPOIs += st.Count
	}
	return report, nil
}

// KeywordDistribution splits one keyword's rows by freshness.
type KeywordDistribution struct {
	Keyword    string    `json:"keyword"`
	City       string    `json:"city"`
	Total      int       `json:"total"`
	Valid      int       `json:"valid"`
	Expired    int       `json:"expired"`
	ValidRatio float64   `json:"valid_ratio"`
	Oldest     time.Time `json:"oldest"`
	Newest     time.Time `json:"newest"`
}

// AgeBucket counts rows whose age falls in [MinHours, MaxHours). MaxHours 0 is open ended.
type AgeBucket struct {
	Label    string `json:"label"`
	MinHours int    `json:"min_hours"`
	MaxHours int    `json:"max_hours,omitempty"`
	Count    int    `json:"count"`
}

// DistributionReport describes cache freshness against the stats TTL.
type DistributionReport struct {
	City            string                `json:"city,omitempty"`
	TTLHours        float64               `json:"ttl_hours"`
	Total           int                   `json:"total"`
	Valid           int                   `json:"valid"`
	Expired         int                   `json:"expired"`
	Keywords        []KeywordDistribution `json:"keywords"`
	AgeBuckets      []AgeBucket           `json:"age_buckets"`
	Recommendations []string              `json:"recommendations"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// Distribution reports per-keyword valid and expired counts, an age histogram in
// 24 hour buckets and refresh recommendations.
func (s *Service) Distribution(ctx context.Context, city string) (*DistributionReport, error) {
	city = strings.TrimSpace(city)
	rows, err := s.pois.AllPOIs(ctx, city, store.Unbounded)
	if err != nil {
		return nil, apperr.Storage(err, "read cached pois")
	}

	now := s.now()
	ttl := store.Within(s.statsTTL).AsOf(now)
	report := &DistributionReport{
		City:        city,
		TTLHours:    s.statsTTL.Hours(),
		AgeBuckets:  newAgeBuckets(),
		GeneratedAt: now,
	}

	byKey := make(map[string]*KeywordDistribution)
	for _, r := range rows {
		k := r.Keyword + "\x00" + r.City
		kd, ok := byKey[k]
		if !ok {
			kd = &KeywordDistribution{Keyword: r.Keyword, City: r.City, Oldest: r.FetchedAt, Newest: r.FetchedAt}
			byKey[k] = kd
		}
		kd.Total++
		if ttl.Fresh(r.FetchedAt, now) {
			kd.Valid++
		} else {
			kd.Expired++
		}
		if r.FetchedAt.Before(kd.Oldest) {
			kd.Oldest = r.FetchedAt
		}
		if r.FetchedAt.After(kd.Newest) {
			kd.Newest = r.FetchedAt
		}

		idx := int(now.Sub(r.FetchedAt).Hours()) / ageBucketHours
		report.AgeBuckets[min(max(idx, 0), ageBucketCount)].Count++
	}

	report.Keywords = make([]KeywordDistribution, 0, len(byKey))
	for _, kd := range byKey {
		kd.ValidRatio = float64(kd.Valid) / float64(kd.Total)
		report.Total += kd.Total
		report.Valid += kd.Valid
		report.Expired += kd.Expired
		report.Keywords = append(report.Keywords, *kd)
	}
	slices.SortFunc(report.Keywords, func(a, b KeywordDistribution) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Or(cmp.Compare(a.Keyword, b.Keyword), cmp.Compare(a.City, b.City))
	})
	report.Recommendations = recommend(report)
	return report, nil
}

func newAgeBuckets() []AgeBucket {
	buckets := make([]AgeBucket, 0, ageBucketCount+1)
	for i := range ageBucketCount {
		lo, hi := i*ageBucketHours, (i+1)*ageBucketHours
		buckets = append(buckets, AgeBucket{Label: fmt.Sprintf("%d-%dh", lo, hi), MinHours: lo, MaxHours: hi})
	}
	lo := ageBucketCount * ageBucketHours
	return append(buckets, AgeBucket{Label: fmt.Sprintf("%dh+", lo), MinHours: lo})
}

func recommend(r *DistributionReport) []string {
	recs := []string{}
	if r.Total == 0 {
		return append(recs, "cache is empty; run refresh for the keywords you analyze")
	}
	if ratio := float64(r.Expired) / float64(r.Total); ratio > staleRatioWarning {
		recs = append(recs, fmt.Sprintf("%.0f%% of cached POIs are older than %.0fh; schedule a refresh", ratio*100, r.TTLHours))
	}
	var stale, sparse []string
	for _, kd := range r.Keywords {
		if kd.Valid == 0 {
			stale = append(stale, kd.Keyword)
		}
		if kd.Total < sparseKeywordRows {
			sparse = append(sparse, kd.Keyword)
		}
	}
	if len(stale) > 0 {
		recs = append(recs, "no fresh rows for: "+strings.Join(stale, ", "))
	}
	if len(sparse) > 0 {
		recs = append(recs, "few rows cached for: "+strings.Join(sparse, ", ")+"; check the keyword spelling and city")
	}
	return recs
}

// KeywordConsistency compares unbounded and TTL-bounded counts for one keyword.
type KeywordConsistency struct {
	Keyword string `json:"keyword"`
	City    string `json:"city"`
	All     int    `json:"all"`
	Fresh   int    `json:"fresh"`
	Expired int    `json:"expired"`
}

// ConsistencyReport cross-checks the bounded and unbounded cache views.
type ConsistencyReport struct {
	City          string               `json:"city,omitempty"`
	TTLHours      float64              `json:"ttl_hours"`
	AllRows       int                  `json:"all_rows"`
	FreshRows     int                  `json:"fresh_rows"`
	Keywords      []KeywordConsistency `json:"keywords"`
	StaleKeywords []string             `json:"stale_keywords"`
	// Consistent is false when the grouped counts disagree with the raw row count.
	Consistent  bool      `json:"consistent"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ConsistencyCheck reads the unbounded stats, the TTL-bounded stats and the raw
// rows concurrently and reports keywords with expired rows.
func (s *Service) ConsistencyCheck(ctx context.Context, city string) (*ConsistencyReport, error) {
	city = strings.TrimSpace(city)
	now := s.now()

	var (
		all, fresh []model.KeywordStat
		rows       []model.CachedPOI
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.pois.KeywordStats(gctx, city, store.Unbounded)
		return err
	})
	g.Go(func() error {
		var err error
		fresh, err = s.pois.KeywordStats(gctx, city, store.Within(s.statsTTL).AsOf(now))
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.pois.AllPOIs(gctx, city, store.Unbounded)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Storage(err, "consistency check")
	}

	freshByKey := make(map[string]int, len(fresh))
	report := &ConsistencyReport{
		City:          city,
		TTLHours:      s.statsTTL.Hours(),
		Keywords:      make([]KeywordConsistency, 0, len(all)),
		StaleKeywords: []string{},
		GeneratedAt:   now,
	}
	for _, st := range fresh {
		freshByKey[st.Keyword+"\x00"+st.City] = st.Count
		report.FreshRows += st.Count
	}
	for _, st := range all {
		kc := KeywordConsistency{
			Keyword: st.Keyword,
			City:    st.City,
			All:     st.Count,
			Fresh:   freshByKey[st.Keyword+"\x00"+st.City],
		}
		kc.Expired = kc.All - kc.Fresh
		report.AllRows += st.Count
		report.Keywords = append(report.Keywords, kc)
		if kc.Expired > 0 {
			report.StaleKeywords = append(report.StaleKeywords, st.Keyword)
		}
	}
	report.Consistent = report.AllRows == len(rows) && report.FreshRows <= report.AllRows
	return report, nil
}
