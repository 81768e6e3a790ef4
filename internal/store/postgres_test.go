package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-scout/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var poiColumns = []string{
	"keyword", "city", "poi_id", "name", "category", "address",
	"longitude", "latitude", "adcode", "raw_json", "fetch_source", "fetched_at",
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS postgis`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`SELECT 1`).WillReturnError(errors.New("connection refused"))

	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: ping")
}

func TestPostgresStore_UpsertPOIs(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_poi_cache"}, poiUpsertConfig.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "poi_cache" .* ON CONFLICT \("keyword", "city", "poi_id"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.UpsertPOIs(context.Background(), []model.CachedPOI{
		cachedPOI("kfc", "上海市", "K1", "a", 121.4, 31.2, now),
		cachedPOI("kfc", "上海市", "K2", "b", 121.5, 31.3, now),
		cachedPOI("KFC", "上海市", "K1", "a2", 121.4, 31.2, now),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertPOIs_CopyFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_poi_cache"}, poiUpsertConfig.Columns).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.UpsertPOIs(context.Background(), []model.CachedPOI{
		cachedPOI("kfc", "上海市", "K1", "a", 121.4, 31.2, time.Now()),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: upsert pois")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_POIsByKeywords(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	fetched := time.Now().Add(-time.Hour).Unix()

	mock.ExpectQuery(`SELECT keyword, city, poi_id, .* FROM poi_cache WHERE city = \$1 AND keyword = ANY\(\$2\) AND fetched_at >= \$3`).
		WithArgs("上海市", []string{"kfc"}, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(poiColumns).
			AddRow("kfc", "上海市", "K1", "肯德基", "快餐", "南京东路", 121.4, 31.2, "310101", []byte(`{"id":"K1"}`), "gaode", fetched))

	got, err := s.POIsByKeywords(context.Background(), "上海市", []string{" KFC "}, Within(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "K1", got[0].ID)
	assert.Equal(t, "肯德基", got[0].Name)
	assert.Equal(t, fetched, got[0].FetchedAt.Unix())
	assert.JSONEq(t, `{"id":"K1"}`, string(got[0].Raw))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AllPOIs_Unbounded(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT keyword, .* FROM poi_cache ORDER BY city, keyword, id`).
		WillReturnRows(pgxmock.NewRows(poiColumns))

	got, err := s.AllPOIs(context.Background(), "", Unbounded)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_KeywordStats(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	last := time.Now().Unix()

	mock.ExpectQuery(`SELECT keyword, city, COUNT\(\*\), MAX\(fetched_at\) FROM poi_cache WHERE city = \$1 GROUP BY keyword, city`).
		WithArgs("上海市").
		WillReturnRows(pgxmock.NewRows([]string{"keyword", "city", "count", "max"}).
			AddRow("kfc", "上海市", int64(12), last).
			AddRow("麦当劳", "上海市", int64(3), last))

	stats, err := s.KeywordStats(context.Background(), "上海市", Unbounded)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 12, stats[0].Count)
	assert.Equal(t, last, stats[0].LastFetchedAt.Unix())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadAnalysis_Hit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT result_json FROM poi_analysis_cache WHERE city = \$1 AND keyword_set_hash = \$2`).
		WithArgs("上海市", "h1").
		WillReturnRows(pgxmock.NewRows([]string{"result_json"}).
			AddRow([]byte(`{"city":"上海市","total_pois":5,"source":"cache"}`)))

	res, ok, err := s.LoadAnalysis(context.Background(), "上海市", "h1", Unbounded)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, res.TotalPOIs)
	assert.Equal(t, model.SourceCache, res.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadAnalysis_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT result_json FROM poi_analysis_cache`).
		WithArgs("上海市", "h1", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	res, ok, err := s.LoadAnalysis(context.Background(), "上海市", "h1", Within(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAnalysis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO poi_analysis_cache .* ON CONFLICT \(city, keyword_set_hash\)`).
		WithArgs("上海市", "h1", "kfc,麦当劳", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveAnalysis(context.Background(), "上海市", "h1", []string{"KFC", "麦当劳"}, &model.DensityResult{TotalPOIs: 2})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFilter(t *testing.T) {
	where, args := postgresFilter("", Unbounded)
	assert.Empty(t, where)
	assert.Nil(t, args)

	where, args = postgresFilter("上海市", Within(time.Hour))
	assert.Equal(t, " WHERE city = $1 AND fetched_at >= $2", where)
	require.Len(t, args, 2)
	assert.Equal(t, "上海市", args[0])
}

var planningRowColumns = []string{
	"id", "city", "name", "longitude", "latitude", "radius_meters", "color", "color_token", "status",
	"priority_rank", "notes", "source_type", "source_poi_id", "updated_by", "created_at", "updated_at",
}

func TestPostgresStore_CreatePlanningPoint(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Unix(1714564800, 0).UTC()
	p := planningPoint("p1", "上海市", "人民广场", created)

	mock.ExpectExec(`INSERT INTO planning_points .* ST_SetSRID\(ST_MakePoint\(\$4, \$5\), 4326\)`).
		WithArgs("p1", "上海市", "人民广场", 121.47, 31.23, 1000, "#22c55e", "pending", "pending",
			100, "", "manual", nil, nil, created.Unix(), created.Unix()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreatePlanningPoint(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPlanningPoints(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	var none *string
	poiID := "B0FFG"

	mock.ExpectQuery(`SELECT .* FROM planning_points WHERE city = \$1 ORDER BY created_at DESC, id`).
		WithArgs("上海市").
		WillReturnRows(pgxmock.NewRows(planningRowColumns).
			AddRow("p2", "上海市", "徐家汇", 121.43, 31.19, 500, "#2563eb", "priority", "priority",
				1, "near metro", "poi", &poiID, none, int64(1714564860), int64(1714564900)).
			AddRow("p1", "上海市", "人民广场", 121.47, 31.23, 1000, "#22c55e", "pending", "pending",
				100, "", "manual", none, none, int64(1714564800), int64(1714564800)))

	points, err := s.ListPlanningPoints(context.Background(), "上海市")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, model.StatusPriority, points[0].Status)
	assert.Equal(t, model.PlanningSourcePOI, points[0].SourceType)
	assert.Equal(t, "B0FFG", points[0].SourcePOIID)
	assert.Equal(t, 500, points[0].RadiusMeters)
	assert.Equal(t, time.Unix(1714564900, 0).UTC(), points[0].UpdatedAt)
	assert.Empty(t, points[1].SourcePOIID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPlanningPoint_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM planning_points WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(planningRowColumns))

	p, ok, err := s.GetPlanningPoint(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAndDeletePlanningPoint(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()

	mock.ExpectExec(`UPDATE planning_points SET .* WHERE id = \$1`).
		WithArgs("p1", "上海市", "人民广场", 121.47, 31.23, 1000, "#22c55e", "pending", "pending",
			100, "", "manual", nil, nil, now.Unix()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE planning_points SET`).
		WithArgs("gone", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`DELETE FROM planning_points WHERE id = \$1`).
		WithArgs("p1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM planning_points`).
		WithArgs("p1").
		WillReturnError(errors.New("connection reset"))

	ctx := context.Background()
	ok, err := s.UpdatePlanningPoint(ctx, planningPoint("p1", "上海市", "人民广场", now))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UpdatePlanningPoint(ctx, planningPoint("gone", "上海市", "x", now))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.DeletePlanningPoint(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.DeletePlanningPoint(ctx, "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: delete planning point p1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
