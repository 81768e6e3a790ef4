package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-scout/internal/model"
)

// cellCenter returns a coordinate at the middle of cell (x, y).
func cellCenter(x, y int64, cellSize float64) model.Coordinate {
	lat := (float64(y) + 0.5) * cellSize / MetersPerDegreeLat
	lng := (float64(x) + 0.5) * cellSize / (math.Cos(toRad(lat)) * MetersPerDegreeLat)
	return model.Coordinate{Lng: lng, Lat: lat}
}

func TestDistanceMeters_Identity(t *testing.T) {
	p := model.Coordinate{Lng: 121.4737, Lat: 31.2304}
	assert.InDelta(t, 0, DistanceMeters(p, p), 1e-9)
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	a := model.Coordinate{Lng: 121.4737, Lat: 31.2304}
	b := model.Coordinate{Lng: 120.1551, Lat: 30.2741}
	assert.Equal(t, DistanceMeters(a, b), DistanceMeters(b, a))
}

func TestDistanceMeters_KnownValues(t *testing.T) {
	// One degree of latitude on a 6371km sphere.
	d := DistanceMeters(model.Coordinate{Lng: 0, Lat: 0}, model.Coordinate{Lng: 0, Lat: 1})
	assert.InDelta(t, 111195, d, 1)

	// Shanghai to Hangzhou is about 165km.
	d = DistanceMeters(model.Coordinate{Lng: 121.4737, Lat: 31.2304}, model.Coordinate{Lng: 120.1551, Lat: 30.2741})
	assert.InDelta(t, 165000, d, 2000)
}

func TestGridID_Format(t *testing.T) {
	assert.Equal(t, "0:0", GridID(model.Coordinate{Lng: 0.001, Lat: 0.001}, 500, Origin))
	assert.Equal(t, "-1:-1", GridID(model.Coordinate{Lng: -0.001, Lat: -0.001}, 500, Origin))
}

func TestGridID_SameCell(t *testing.T) {
	c := cellCenter(24321, 6950, 500)
	x, y := CellOf(c, 500, Origin)
	require.Equal(t, int64(24321), x)
	require.Equal(t, int64(6950), y)

	// Nudge by well under half a cell in each direction.
	nudged := model.Coordinate{Lng: c.Lng + 0.0005, Lat: c.Lat - 0.0005}
	assert.Equal(t, GridID(c, 500, Origin), GridID(nudged, 500, Origin))
}

func TestGridID_CellSizeChangesMembership(t *testing.T) {
	p := model.Coordinate{Lng: 121.4737, Lat: 31.2304}
	assert.NotEqual(t, GridID(p, 500, Origin), GridID(p, 1000, Origin))
}

func TestAggregateToGrid_Empty(t *testing.T) {
	cells := AggregateToGrid(nil, 500)
	require.NotNil(t, cells)
	assert.Empty(t, cells)
}

func TestAggregateToGrid_PartitionsAllPoints(t *testing.T) {
	a := cellCenter(100, 200, 500)
	b := cellCenter(101, 200, 500)
	c := cellCenter(100, 205, 500)
	points := []model.Coordinate{a, b, a, c, a, b}

	cells := AggregateToGrid(points, 500)
	require.Len(t, cells, 3)

	total := 0
	for _, cell := range cells {
		total += cell.Count
	}
	assert.Equal(t, len(points), total)

	// Sorted by count desc.
	assert.Equal(t, 3, cells[0].Count)
	assert.Equal(t, 2, cells[1].Count)
	assert.Equal(t, 1, cells[2].Count)
	assert.Equal(t, GridID(a, 500, Origin), cells[0].GridID)
	assert.InDelta(t, 1.0, cells[0].Intensity, 1e-9)
	assert.InDelta(t, 1.0/3.0, cells[2].Intensity, 1e-9)
}

func TestAggregateToGrid_Centroid(t *testing.T) {
	base := cellCenter(10, 10, 500)
	p1 := model.Coordinate{Lng: base.Lng - 0.001, Lat: base.Lat}
	p2 := model.Coordinate{Lng: base.Lng + 0.001, Lat: base.Lat + 0.001}

	cells := AggregateToGrid([]model.Coordinate{p1, p2}, 500)
	require.Len(t, cells, 1)
	assert.InDelta(t, base.Lng, cells[0].Center.Lng, 1e-9)
	assert.InDelta(t, base.Lat+0.0005, cells[0].Center.Lat, 1e-9)
}

func TestAggregateToGrid_OrderIndependent(t *testing.T) {
	points := []model.Coordinate{
		cellCenter(1, 1, 500), cellCenter(2, 1, 500), cellCenter(1, 1, 500), cellCenter(3, 3, 500),
	}
	reversed := []model.Coordinate{points[3], points[2], points[1], points[0]}

	assert.Equal(t, AggregateToGrid(points, 500), AggregateToGrid(reversed, 500))
}
