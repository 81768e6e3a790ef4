package analysis

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/internal/store"
)

// --- Provider Mock ---

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) SearchByKeyword(ctx context.Context, keyword, city string, pageSize int) ([]model.POI, error) {
	args := m.Called(ctx, keyword, city, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.POI), args.Error(1)
}

func (m *mockProvider) SearchAround(ctx context.Context, center model.Coordinate, radiusMeters int, keyword string, pageSize int) ([]model.POI, error) {
	args := m.Called(ctx, center, radiusMeters, keyword, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.POI), args.Error(1)
}

func (m *mockProvider) Ready() bool {
	return m.Called().Bool(0)
}

// --- Fixtures ---

const testCity = "上海市"

// metersPerDegree matches the haversine radius so offsets measure exactly.
const metersPerDegree = 6371000.0 * 3.141592653589793 / 180

var testOrigin = model.Coordinate{Lng: 121.4737, Lat: 31.2304}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// north returns a point d meters due north of testOrigin.
func north(d float64) model.Coordinate {
	return model.Coordinate{Lng: testOrigin.Lng, Lat: testOrigin.Lat + d/metersPerDegree}
}

func poiAt(id, name string, c model.Coordinate) model.POI {
	return model.POI{ID: id, Name: name, Lng: c.Lng, Lat: c.Lat, City: testCity}
}

// makePOIs returns n POIs spread east of testOrigin every ~1km.
func makePOIs(prefix string, n int) []model.POI {
	out := make([]model.POI, 0, n)
	for i := range n {
		out = append(out, model.POI{
			ID:   fmt.Sprintf("%s-%d", prefix, i),
			Name: fmt.Sprintf("%s %d", prefix, i),
			Lng:  testOrigin.Lng + float64(i)*0.01,
			Lat:  testOrigin.Lat,
			City: testCity,
		})
	}
	return out
}

func seed(t *testing.T, st store.PoiStore, keyword string, fetchedAt time.Time, pois ...model.POI) {
	t.Helper()
	recs := make([]model.CachedPOI, 0, len(pois))
	for _, p := range pois {
		recs = append(recs, model.CachedPOI{
			POI:         p,
			Keyword:     keyword,
			FetchSource: model.FetchSourceGaode,
			FetchedAt:   fetchedAt,
		})
	}
	_, err := st.UpsertPOIs(context.Background(), recs)
	require.NoError(t, err)
}
