package model

import (
	"slices"
	"time"
)

// Source describes where the POIs behind a result came from.
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
	SourceMixed   Source = "mixed"
)

// SourceOf derives provenance from how many keywords were served from the cache
// versus fetched live.
func SourceOf(cached, fetched int) Source {
	switch {
	case fetched == 0:
		return SourceCache
	case cached == 0:
		return SourceNetwork
	default:
		return SourceMixed
	}
}

// DensityLevel is the coarse brand density around a target.
type DensityLevel string

const (
	DensityHigh   DensityLevel = "high"
	DensityMedium DensityLevel = "medium"
	DensityLow    DensityLevel = "low"
)

// GridCell is one heatmap bucket.
type GridCell struct {
	GridID    string     `json:"grid_id"`
	Count     int        `json:"count"`
	Center    Coordinate `json:"center"`
	Intensity float64    `json:"intensity"`
}

// POISummary is the display form of a POI inside a result.
type POISummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Keyword        string  `json:"keyword"`
	Address        string  `json:"address,omitempty"`
	Lng            float64 `json:"lng"`
	Lat            float64 `json:"lat"`
	DistanceMeters float64 `json:"distance_m,omitempty"`
}

// Summarize converts cached records into summaries.
func Summarize(records []CachedPOI) []POISummary {
	out := make([]POISummary, 0, len(records))
	for _, r := range records {
		out = append(out, POISummary{
			ID:      r.ID,
			Name:    r.Name,
			Keyword: r.Keyword,
			Address: r.Address,
			Lng:     r.Lng,
			Lat:     r.Lat,
		})
	}
	return out
}

// DensityResult is the heatmap and per-bucket POI view for a keyword set in a city.
type DensityResult struct {
	City           string       `json:"city"`
	Keywords       []string     `json:"keywords"`
	MainBrand      string       `json:"main_brand"`
	Competitors    []string     `json:"competitors"`
	KeywordSetHash string       `json:"keyword_set_hash"`
	Heatmap        []GridCell   `json:"heatmap"`
	TotalPOIs      int          `json:"total_pois"`
	MainBrandPOIs  []POISummary `json:"main_brand_pois"`
	CompetitorPOIs []POISummary `json:"competitor_pois"`
	Source         Source       `json:"source"`
	// Memoized is true when the whole result was served from the analysis cache.
	Memoized   bool      `json:"memoized"`
	ComputedAt time.Time `json:"computed_at"`
}

// Clone returns a copy that shares no slices with r.
func (r *DensityResult) Clone() *DensityResult {
	out := *r
	out.Keywords = slices.Clone(r.Keywords)
	out.Competitors = slices.Clone(r.Competitors)
	out.Heatmap = slices.Clone(r.Heatmap)
	out.MainBrandPOIs = slices.Clone(r.MainBrandPOIs)
	out.CompetitorPOIs = slices.Clone(r.CompetitorPOIs)
	return &out
}

// RingCounts are brand counts within fixed radii of a target.
type RingCounts struct {
	MainBrand500m          int `json:"main_brand_500m"`
	MainBrand1000m         int `json:"main_brand_1000m"`
	Competitor100m         int `json:"competitor_100m"`
	Competitor300m         int `json:"competitor_300m"`
	CompetitorWithinRadius int `json:"competitor_within_radius"`
}

// AnalysisResult is the proximity analysis for one target coordinate.
type AnalysisResult struct {
	City              string       `json:"city"`
	Target            Coordinate   `json:"target"`
	RadiusMeters      int          `json:"radius_m"`
	MainBrand         string       `json:"main_brand"`
	Competitors       []string     `json:"competitors"`
	Counts            RingCounts   `json:"counts"`
	Density           DensityLevel `json:"density"`
	TargetCell        string       `json:"target_cell"`
	TargetCellCount   int          `json:"target_cell_count"`
	MainBrandSamples  []POISummary `json:"main_brand_samples"`
	CompetitorSamples []POISummary `json:"competitor_samples"`
	Source            Source       `json:"source"`
	ComputedAt        time.Time    `json:"computed_at"`
}
