package model

import (
	"encoding/json"
	"math"
	"time"
)

// FetchSourceGaode marks records fetched from the Gaode place API.
const FetchSourceGaode = "gaode"

// Coordinate is a WGS-84 longitude/latitude pair in degrees.
type Coordinate struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the coordinate is finite and inside the WGS-84 range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lng) || math.IsNaN(c.Lat) || math.IsInf(c.Lng, 0) || math.IsInf(c.Lat, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// POI is a place record normalized from the external search provider.
type POI struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Address  string          `json:"address,omitempty"`
	Lng      float64         `json:"lng"`
	Lat      float64         `json:"lat"`
	City     string          `json:"city"`
	AdCode   string          `json:"adcode,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// Location returns the POI position.
func (p POI) Location() Coordinate {
	return Coordinate{Lng: p.Lng, Lat: p.Lat}
}

// CachedPOI is a POI plus acquisition metadata as stored in the cache.
// Identity is (Keyword, City, ID).
type CachedPOI struct {
	POI
	Keyword     string    `json:"keyword"`
	FetchSource string    `json:"fetch_source"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Key returns the identity tuple used for upsert deduplication.
func (c CachedPOI) Key() string {
	return c.Keyword + "\x00" + c.City + "\x00" + c.ID
}

// KeywordStat summarizes cached rows for one keyword in one city.
type KeywordStat struct {
	Keyword       string    `json:"keyword"`
	City          string    `json:"city"`
	Count         int       `json:"count"`
	LastFetchedAt time.Time `json:"last_fetched_at"`
}

// DedupeCached collapses records sharing an identity tuple. The last record wins
// and keeps the position of the first occurrence.
func DedupeCached(records []CachedPOI) []CachedPOI {
	index := make(map[string]int, len(records))
	out := make([]CachedPOI, 0, len(records))
	for _, r := range records {
		k := r.Key()
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

// DedupeByID collapses POIs sharing an ID, last one wins.
func DedupeByID(records []CachedPOI) []CachedPOI {
	index := make(map[string]int, len(records))
	out := make([]CachedPOI, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
