// Package provider fetches POIs from the external search service page by page,
// spacing every page request through a shared rate limiter.
package provider

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-scout/internal/apperr"
	"github.com/sells-group/site-scout/internal/metrics"
	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/internal/ratelimit"
	"github.com/sells-group/site-scout/pkg/gaode"
)

// Page ceilings imposed by the place API.
const (
	MaxKeywordPages = 100
	MaxAroundPages  = 50

	// MaxAroundRadius is the largest radius the around endpoint accepts.
	MaxAroundRadius = 50000
)

// Provider searches an external POI service.
type Provider interface {
	SearchByKeyword(ctx context.Context, keyword, city string, pageSize int) ([]model.POI, error)
	SearchAround(ctx context.Context, center model.Coordinate, radiusMeters int, keyword string, pageSize int) ([]model.POI, error)
	// Ready reports whether the provider has usable credentials.
	Ready() bool
}

// Gaode paginates the Gaode place API.
type Gaode struct {
	client   gaode.Client
	limiter  *ratelimit.Limiter
	pageSize int
}

// NewGaode creates a provider. All callers sharing the returned value share limiter.
func NewGaode(client gaode.Client, limiter *ratelimit.Limiter, defaultPageSize int) *Gaode {
	if limiter == nil {
		limiter = ratelimit.New(0)
	}
	return &Gaode{
		client:   client,
		limiter:  limiter,
		pageSize: clampPageSize(defaultPageSize),
	}
}

// Ready implements Provider.
func (g *Gaode) Ready() bool {
	return g.client.HasKey()
}

// SearchByKeyword returns every POI matching keyword inside city.
func (g *Gaode) SearchByKeyword(ctx context.Context, keyword, city string, pageSize int) ([]model.POI, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apperr.Validationf("keyword must not be empty")
	}
	size := g.size(pageSize)

	return g.paginate(ctx, "text", MaxKeywordPages, size, city, func(ctx context.Context, page int) (*gaode.SearchResponse, error) {
		return g.client.TextSearch(ctx, gaode.TextSearchParams{
			Keywords: keyword,
			City:     city,
			PageSize: size,
			Page:     page,
		})
	}, zap.String("keyword", keyword), zap.String("city", city))
}

// SearchAround returns every POI within radiusMeters of center, optionally
// filtered by keyword.
func (g *Gaode) SearchAround(ctx context.Context, center model.Coordinate, radiusMeters int, keyword string, pageSize int) ([]model.POI, error) {
	if !center.Valid() {
		return nil, apperr.Validationf("invalid center coordinate %v,%v", center.Lng, center.Lat)
	}
	if radiusMeters <= 0 {
		return nil, apperr.Validationf("radius must be positive, got %d", radiusMeters)
	}
	radiusMeters = min(radiusMeters, MaxAroundRadius)
	keyword = strings.TrimSpace(keyword)
	size := g.size(pageSize)

	return g.paginate(ctx, "around", MaxAroundPages, size, "", func(ctx context.Context, page int) (*gaode.SearchResponse, error) {
		return g.client.AroundSearch(ctx, gaode.AroundSearchParams{
			Lng:          center.Lng,
			Lat:          center.Lat,
			RadiusMeters: radiusMeters,
			Keywords:     keyword,
			PageSize:     size,
			Page:         page,
		})
	}, zap.String("keyword", keyword), zap.Int("radius_m", radiusMeters))
}

type pageFunc func(ctx context.Context, page int) (*gaode.SearchResponse, error)

// paginate fetches pages sequentially. The count reported on page 1 bounds the
// page count, but a short page always ends the loop.
func (g *Gaode) paginate(ctx context.Context, endpoint string, maxPages, size int, fallbackCity string, fetch pageFunc, fields ...zap.Field) ([]model.POI, error) {
	log := zap.L().With(append([]zap.Field{zap.String("endpoint", endpoint)}, fields...)...)

	var out []model.POI
	totalPages := 1
	for page := 1; page <= maxPages; page++ {
		if err := g.limiter.Acquire(ctx); err != nil {
			return nil, eris.Wrapf(err, "provider: %s wait for page %d", endpoint, page)
		}

		start := time.Now()
		resp, err := fetch(ctx, page)
		if err != nil {
			metrics.ObserveProviderRequest(endpoint, string(apperr.CodeOf(apperr.FromProvider(err))), time.Since(start))
			log.Warn("provider page failed", zap.Int("page", page), zap.Error(err))
			return nil, eris.Wrapf(err, "provider: %s page %d", endpoint, page)
		}
		metrics.ObserveProviderRequest(endpoint, "ok", time.Since(start))

		if page == 1 {
			if total := resp.Total(); total > 0 {
				totalPages = (total + size - 1) / size
			}
		}

		for _, p := range resp.POIs {
			out = append(out, Normalize(p, fallbackCity))
		}

		log.Debug("provider page fetched",
			zap.Int("page", page),
			zap.Int("total_pages", totalPages),
			zap.Int("results", len(resp.POIs)),
		)

		if len(resp.POIs) < size || page >= totalPages {
			break
		}
	}

	return out, nil
}

func (g *Gaode) size(pageSize int) int {
	if pageSize <= 0 {
		return g.pageSize
	}
	return clampPageSize(pageSize)
}

func clampPageSize(n int) int {
	if n <= 0 || n > gaode.MaxPageSize {
		return gaode.MaxPageSize
	}
	return n
}
