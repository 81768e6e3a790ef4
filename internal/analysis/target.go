package analysis

import (
	"cmp"
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/site-scout/internal/apperr"
	"github.com/sells-group/site-scout/internal/geo"
	"github.com/sells-group/site-scout/internal/model"
)

// Fixed proximity rings.
const (
	mainRingNear = 500.0
	mainRingFar  = 1000.0
	compRingNear = 100.0
	compRingMid  = 300.0
)

// TargetRequest asks how saturated the area around a candidate site is.
type TargetRequest struct {
	City         string
	Target       model.Coordinate
	MainBrand    string
	Competitors  []string
	RadiusMeters int
}

type placed struct {
	rec  model.CachedPOI
	dist float64
}

// AnalyzeTarget counts main-brand and competitor POIs around the target and
// classifies main-brand density in the target's grid cell. Results are never memoized.
func (s *Service) AnalyzeTarget(ctx context.Context, req TargetRequest) (*model.AnalysisResult, error) {
	city, err := requireCity(req.City)
	if err != nil {
		return nil, err
	}
	main, competitors := splitBrands(req.MainBrand, req.Competitors)
	if main == "" {
		return nil, apperr.Validationf("main brand is required")
	}
	if !req.Target.Valid() {
		return nil, apperr.Validationf("invalid target coordinate %v,%v", req.Target.Lng, req.Target.Lat)
	}
	if req.RadiusMeters <= 0 {
		return nil, apperr.Validationf("radius must be positive, got %d", req.RadiusMeters)
	}

	keywords := append([]string{main}, competitors...)
	buckets, source, err := s.loadBuckets(ctx, city, keywords)
	if err != nil {
		return nil, err
	}

	var compRows []model.CachedPOI
	for _, c := range competitors {
		compRows = append(compRows, buckets[c]...)
	}
	mainPlaced := place(req.Target, model.DedupeByID(buckets[main]))
	compPlaced := place(req.Target, model.DedupeByID(compRows))

	radius := float64(req.RadiusMeters)
	counts := model.RingCounts{
		MainBrand500m:          within(mainPlaced, mainRingNear),
		MainBrand1000m:         within(mainPlaced, mainRingFar),
		Competitor100m:         within(compPlaced, compRingNear),
		Competitor300m:         within(compPlaced, compRingMid),
		CompetitorWithinRadius: within(compPlaced, radius),
	}

	mainPoints := make([]model.Coordinate, 0, len(mainPlaced))
	for _, p := range mainPlaced {
		mainPoints = append(mainPoints, p.rec.Location())
	}
	cell, cellCount := geo.CountInCell(req.Target, mainPoints, geo.DefaultCellSizeMeters)

	res := &model.AnalysisResult{
		City:              city,
		Target:            req.Target,
		RadiusMeters:      req.RadiusMeters,
		MainBrand:         main,
		Competitors:       competitors,
		Counts:            counts,
		Density:           geo.ClassifyDensity(cellCount),
		TargetCell:        cell,
		TargetCellCount:   cellCount,
		MainBrandSamples:  samples(mainPlaced),
		CompetitorSamples: samples(compPlaced),
		Source:            source,
		ComputedAt:        s.now(),
	}

	zap.L().Info("analysis: target analyzed",
		zap.String("city", city),
		zap.String("main_brand", main),
		zap.String("cell", cell),
		zap.Int("cell_count", cellCount),
		zap.String("density", string(res.Density)),
	)
	return res, nil
}

// place attaches distances and orders records nearest first. Unlocatable records are dropped.
func place(target model.Coordinate, recs []model.CachedPOI) []placed {
	out := make([]placed, 0, len(recs))
	for _, r := range recs {
		if !locatable(r) {
			continue
		}
		out = append(out, placed{rec: r, dist: geo.DistanceMeters(target, r.Location())})
	}
	slices.SortStableFunc(out, func(a, b placed) int {
		return cmp.Compare(a.dist, b.dist)
	})
	return out
}

func within(ps []placed, radius float64) int {
	n := 0
	for _, p := range ps {
		if p.dist <= radius {
			n++
		}
	}
	return n
}

func samples(ps []placed) []model.POISummary {
	ps = ps[:min(len(ps), MaxSamples)]
	out := make([]model.POISummary, 0, len(ps))
	for _, p := range ps {
		sum := model.Summarize([]model.CachedPOI{p.rec})[0]
		sum.DistanceMeters = p.dist
		out = append(out, sum)
	}
	return out
}
