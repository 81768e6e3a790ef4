// Package geo provides the spatial math behind heatmaps and proximity analysis:
// haversine distance, metric grid bucketing and density classification.
package geo

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/sells-group/site-scout/internal/model"
)

const (
	// EarthRadiusMeters is the spherical-earth radius used by DistanceMeters.
	EarthRadiusMeters = 6371000.0
	// MetersPerDegreeLat is the approximate length of one degree of latitude.
	MetersPerDegreeLat = 111320.0
	// DefaultCellSizeMeters is the heatmap and density cell size.
	DefaultCellSizeMeters = 500.0
)

// Origin is the grid origin shared by every caller.
var Origin = model.Coordinate{}

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b model.Coordinate) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := lat2 - lat1
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// CellOf returns the integer grid coordinates of p for the given cell size and origin.
// Longitude is scaled by cos(lat) of the point itself.
func CellOf(p model.Coordinate, cellSizeMeters float64, origin model.Coordinate) (x, y int64) {
	metersPerDegreeLng := math.Cos(toRad(p.Lat)) * MetersPerDegreeLat
	x = int64(math.Floor((p.Lng - origin.Lng) * metersPerDegreeLng / cellSizeMeters))
	y = int64(math.Floor((p.Lat - origin.Lat) * MetersPerDegreeLat / cellSizeMeters))
	return x, y
}

// GridID encodes the cell containing p as "x:y".
func GridID(p model.Coordinate, cellSizeMeters float64, origin model.Coordinate) string {
	x, y := CellOf(p, cellSizeMeters, origin)
	return fmt.Sprintf("%d:%d", x, y)
}

type cellAcc struct {
	count  int
	sumLng float64
	sumLat float64
}

// AggregateToGrid buckets points into square cells anchored at Origin. Cells are
// sorted by count descending, then by grid id. Intensity is count relative to the
// busiest cell.
func AggregateToGrid(points []model.Coordinate, cellSizeMeters float64) []model.GridCell {
	if len(points) == 0 {
		return []model.GridCell{}
	}
	if cellSizeMeters <= 0 {
		cellSizeMeters = DefaultCellSizeMeters
	}

	acc := make(map[string]*cellAcc)
	for _, p := range points {
		id := GridID(p, cellSizeMeters, Origin)
		a, ok := acc[id]
		if !ok {
			a = &cellAcc{}
			acc[id] = a
		}
		a.count++
		a.sumLng += p.Lng
		a.sumLat += p.Lat
	}

	maxCount := 0
	cells := make([]model.GridCell, 0, len(acc))
	for id, a := range acc {
		if a.count > maxCount {
			maxCount = a.count
		}
		cells = append(cells, model.GridCell{
			GridID: id,
			Count:  a.count,
			Center: model.Coordinate{
				Lng: a.sumLng / float64(a.count),
				Lat: a.sumLat / float64(a.count),
			},
		})
	}
	for i := range cells {
		cells[i].Intensity = float64(cells[i].Count) / float64(maxCount)
	}

	slices.SortFunc(cells, func(a, b model.GridCell) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.GridID, b.GridID)
	})
	return cells
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
