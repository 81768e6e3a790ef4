package analysis

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/site-scout/internal/apperr"
	"github.com/sells-group/site-scout/internal/geo"
	"github.com/sells-group/site-scout/internal/metrics"
	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/internal/store"
)

// DensityRequest asks for a heatmap of a keyword set in a city.
type DensityRequest struct {
	City     string
	Keywords []string
	// MainBrand defaults to the first keyword.
	MainBrand string
}

// ComputeDensity returns the heatmap and per-bucket POIs for the request. A fresh
// memoized result for the same city and keyword set is returned as is.
func (s *Service) ComputeDensity(ctx context.Context, req DensityRequest) (*model.DensityResult, error) {
	city, err := requireCity(req.City)
	if err != nil {
		return nil, err
	}
	keywords := model.NormalizeKeywords(req.Keywords)
	if len(keywords) == 0 {
		return nil, apperr.Validationf("at least one keyword is required")
	}

	main := model.NormalizeKeyword(req.MainBrand)
	if main == "" {
		main = keywords[0]
	}
	if !slices.Contains(keywords, main) {
		keywords = append([]string{main}, keywords...)
	}
	_, competitors := splitBrands(main, keywords)
	hash := model.KeywordSetHash(city, keywords)

	log := zap.L().With(zap.String("city", city), zap.String("hash", hash), zap.String("main_brand", main))

	cached, ok, err := s.analyses.LoadAnalysis(ctx, city, hash, store.Within(s.analysisTTL).AsOf(s.now()))
	if err != nil {
		log.Warn("analysis: memo lookup failed", zap.Error(err))
	}
	// The hash covers the keyword set only, so a memo computed for a different
	// main brand is a miss.
	if ok && cached.MainBrand == main {
		metrics.IncAnalysisCache(true)
		res := cached.Clone()
		res.Source = model.SourceCache
		res.Memoized = true
		log.Debug("analysis: memo hit")
		return res, nil
	}
	metrics.IncAnalysisCache(false)

	buckets, source, err := s.loadBuckets(ctx, city, keywords)
	if err != nil {
		return nil, err
	}

	mainRecs := model.DedupeByID(buckets[main])
	var compRows []model.CachedPOI
	for _, c := range competitors {
		compRows = append(compRows, buckets[c]...)
	}
	compRecs := model.DedupeByID(compRows)

	all := model.DedupeByID(append(slices.Clone(mainRecs), compRecs...))
	points := make([]model.Coordinate, 0, len(all))
	for _, r := range all {
		if locatable(r) {
			points = append(points, r.Location())
		}
	}

	res := &model.DensityResult{
		City:           city,
		Keywords:       keywords,
		MainBrand:      main,
		Competitors:    competitors,
		KeywordSetHash: hash,
		Heatmap:        geo.AggregateToGrid(points, geo.DefaultCellSizeMeters),
		TotalPOIs:      len(all),
		MainBrandPOIs:  model.Summarize(mainRecs),
		CompetitorPOIs: model.Summarize(compRecs),
		Source:         source,
		ComputedAt:     s.now(),
	}

	memo := res.Clone()
	memo.Source = model.SourceCache
	if err := s.analyses.SaveAnalysis(ctx, city, hash, memo.Keywords, memo); err != nil {
		log.Warn("analysis: memo save failed", zap.Error(err))
	}

	log.Info("analysis: density computed",
		zap.Int("total_pois", res.TotalPOIs),
		zap.Int("cells", len(res.Heatmap)),
		zap.String("source", string(source)),
	)
	return res, nil
}

// locatable excludes records whose location could not be parsed.
func locatable(r model.CachedPOI) bool {
	return r.Location().Valid() && (r.Lng != 0 || r.Lat != 0)
}
