package store

import (
	"context"
	"time"

	"github.com/sells-group/site-scout/internal/model"
)

// MaxAge is a read-time freshness policy. Rows older than the window are
// excluded from bounded reads but never deleted.
type MaxAge struct {
	window time.Duration
	asOf   time.Time
}

// Unbounded reads every row regardless of age.
var Unbounded = MaxAge{}

// Within bounds reads to rows no older than d. d <= 0 is Unbounded.
func Within(d time.Duration) MaxAge {
	if d <= 0 {
		return Unbounded
	}
	return MaxAge{window: d}
}

// Bounded reports whether the policy excludes old rows.
func (m MaxAge) Bounded() bool {
	return m.window > 0
}

// Window returns the freshness window, 0 when unbounded.
func (m MaxAge) Window() time.Duration {
	return m.window
}

// AsOf pins the reference time the window is measured from, so a caller with
// its own clock and the store agree on which rows are fresh. Unbounded
// policies are returned unchanged.
func (m MaxAge) AsOf(t time.Time) MaxAge {
	if !m.Bounded() {
		return m
	}
	m.asOf = t
	return m
}

// Cutoff returns the oldest acceptable timestamp. It is measured from the
// pinned reference time when one is set and from now otherwise.
func (m MaxAge) Cutoff(now time.Time) (time.Time, bool) {
	if !m.Bounded() {
		return time.Time{}, false
	}
	if !m.asOf.IsZero() {
		now = m.asOf
	}
	return now.Add(-m.window), true
}

// Fresh reports whether a row stamped at t passes the policy.
func (m MaxAge) Fresh(t, now time.Time) bool {
	cutoff, ok := m.Cutoff(now)
	return !ok || !t.Before(cutoff)
}

func (m MaxAge) String() string {
	if !m.Bounded() {
		return "unbounded"
	}
	return m.window.String()
}

// PoiStore persists POIs keyed by (keyword, city, poi id).
type PoiStore interface {
	// UpsertPOIs writes records in one transaction. Later records win over
	// earlier ones with the same key. Returns the number of distinct rows written.
	UpsertPOIs(ctx context.Context, records []model.CachedPOI) (int, error)
	// POIsByKeywords returns the city's rows for the given keywords.
	POIsByKeywords(ctx context.Context, city string, keywords []string, age MaxAge) ([]model.CachedPOI, error)
	// AllPOIs returns every row, optionally restricted to one city ("" = all).
	AllPOIs(ctx context.Context, city string, age MaxAge) ([]model.CachedPOI, error)
	// KeywordStats groups rows by keyword and city, largest first.
	KeywordStats(ctx context.Context, city string, age MaxAge) ([]model.KeywordStat, error)
}

// AnalysisStore memoizes density results keyed by (city, keyword set hash).
type AnalysisStore interface {
	LoadAnalysis(ctx context.Context, city, hash string, age MaxAge) (*model.DensityResult, bool, error)
	SaveAnalysis(ctx context.Context, city, hash string, keywords []string, result *model.DensityResult) error
}

// PlanningStore persists planning points. Callers stamp CreatedAt and UpdatedAt.
type PlanningStore interface {
	CreatePlanningPoint(ctx context.Context, p *model.PlanningPoint) error
	GetPlanningPoint(ctx context.Context, id string) (*model.PlanningPoint, bool, error)
	// ListPlanningPoints returns points newest first, optionally restricted to
	// one city ("" = all).
	ListPlanningPoints(ctx context.Context, city string) ([]model.PlanningPoint, error)
	// UpdatePlanningPoint rewrites every mutable column of an existing point.
	// It reports false when no point has p.ID.
	UpdatePlanningPoint(ctx context.Context, p *model.PlanningPoint) (bool, error)
	DeletePlanningPoint(ctx context.Context, id string) (bool, error)
}

// Store is a database-backed PoiStore, AnalysisStore and PlanningStore.
type Store interface {
	PoiStore
	AnalysisStore
	PlanningStore

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
