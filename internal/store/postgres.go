package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/site-scout/internal/db"
	"github.com/sells-group/site-scout/internal/geo"
	"github.com/sells-group/site-scout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS poi_cache (
	id           BIGSERIAL PRIMARY KEY,
	keyword      TEXT NOT NULL,
	city         TEXT NOT NULL,
	poi_id       TEXT NOT NULL,
	name         TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	address      TEXT NOT NULL DEFAULT '',
	longitude    DOUBLE PRECISION NOT NULL,
	latitude     DOUBLE PRECISION NOT NULL,
	adcode       TEXT NOT NULL DEFAULT '',
	raw_json     JSONB,
	fetch_source TEXT NOT NULL DEFAULT 'gaode',
	fetched_at   BIGINT NOT NULL,
	geom         geometry(Point, 4326),
	UNIQUE (keyword, city, poi_id)
);

CREATE TABLE IF NOT EXISTS poi_analysis_cache (
	id               BIGSERIAL PRIMARY KEY,
	city             TEXT NOT NULL,
	keyword_set_hash TEXT NOT NULL,
	keywords         TEXT NOT NULL,
	result_json      JSONB NOT NULL,
	computed_at      BIGINT NOT NULL,
	UNIQUE (city, keyword_set_hash)
);

CREATE TABLE IF NOT EXISTS planning_points (
	id            TEXT PRIMARY KEY,
	city          TEXT NOT NULL,
	name          TEXT NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	latitude      DOUBLE PRECISION NOT NULL,
	radius_meters INTEGER NOT NULL DEFAULT 1000,
	color         TEXT NOT NULL,
	color_token   TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	priority_rank INTEGER NOT NULL DEFAULT 100,
	notes         TEXT NOT NULL DEFAULT '',
	source_type   TEXT NOT NULL DEFAULT 'manual',
	source_poi_id TEXT,
	updated_by    TEXT,
	created_at    BIGINT NOT NULL,
	updated_at    BIGINT NOT NULL,
	geom          geometry(Point, 4326)
);

CREATE INDEX IF NOT EXISTS idx_poi_cache_city_keyword ON poi_cache(city, keyword);
CREATE INDEX IF NOT EXISTS idx_poi_cache_fetched_at ON poi_cache(fetched_at);
CREATE INDEX IF NOT EXISTS idx_poi_cache_geom ON poi_cache USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_planning_points_city ON planning_points(city, created_at);
CREATE INDEX IF NOT EXISTS idx_planning_points_geom ON planning_points USING GIST (geom);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var poiUpsertConfig = db.UpsertConfig{
	Table: "poi_cache",
	Columns: []string{
		"keyword", "city", "poi_id", "name", "category", "address",
		"longitude", "latitude", "adcode", "raw_json", "fetch_source", "fetched_at", "geom",
	},
	ConflictKeys: []string{"keyword", "city", "poi_id"},
}

func (s *PostgresStore) UpsertPOIs(ctx context.Context, records []model.CachedPOI) (int, error) {
	records, err := prepareRecords(records, time.Now())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert pois")
	}
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		var point []byte
		if loc := r.Location(); loc.Valid() {
			if point, err = geo.EncodePoint(loc); err != nil {
				return 0, eris.Wrapf(err, "postgres: upsert poi %s", r.ID)
			}
		}
		var raw any
		if len(r.Raw) > 0 {
			raw = string(r.Raw)
		}
		rows = append(rows, []any{
			r.Keyword, r.City, r.ID, r.Name, r.Category, r.Address,
			r.Lng, r.Lat, r.AdCode, raw, r.FetchSource, r.FetchedAt.Unix(), point,
		})
	}

	if _, err := db.BulkUpsert(ctx, s.pool, poiUpsertConfig, rows); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert pois")
	}
	return len(records), nil
}

const postgresPOIColumns = `keyword, city, poi_id, name, category, address, longitude, latitude, adcode, raw_json, fetch_source, fetched_at`

func (s *PostgresStore) POIsByKeywords(ctx context.Context, city string, keywords []string, age MaxAge) ([]model.CachedPOI, error) {
	keywords = model.NormalizeKeywords(keywords)
	if len(keywords) == 0 {
		return nil, nil
	}

	query := "SELECT " + postgresPOIColumns + " FROM poi_cache WHERE city = $1 AND keyword = ANY($2)"
	args := []any{strings.TrimSpace(city), keywords}
	if cutoff, ok := age.Cutoff(time.Now()); ok {
		query += " AND fetched_at >= $3"
		args = append(args, cutoff.Unix())
	}
	query += " ORDER BY keyword, id"

	return s.queryPOIs(ctx, query, args...)
}

func (s *PostgresStore) AllPOIs(ctx context.Context, city string, age MaxAge) ([]model.CachedPOI, error) {
	where, args := postgresFilter(city, age)
	return s.queryPOIs(ctx, "SELECT "+postgresPOIColumns+" FROM poi_cache"+where+" ORDER BY city, keyword, id", args...)
}

func (s *PostgresStore) KeywordStats(ctx context.Context, city string, age MaxAge) ([]model.KeywordStat, error) {
	where, args := postgresFilter(city, age)
	rows, err := s.pool.Query(ctx,
		"SELECT keyword, city, COUNT(*), MAX(fetched_at) FROM poi_cache"+where+
			" GROUP BY keyword, city ORDER BY COUNT(*) DESC, keyword, city", args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: keyword stats")
	}
	defer rows.Close()

	var stats []model.KeywordStat
	for rows.Next() {
		var (
			st    model.KeywordStat
			count int64
			last  int64
		)
		if err := rows.Scan(&st.Keyword, &st.City, &count, &last); err != nil {
			return nil, eris.Wrap(err, "postgres: scan keyword stat")
		}
		st.Count = int(count)
		st.LastFetchedAt = time.Unix(last, 0).UTC()
		stats = append(stats, st)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: keyword stats rows")
}

func (s *PostgresStore) LoadAnalysis(ctx context.Context, city, hash string, age MaxAge) (*model.DensityResult, bool, error) {
	query := "SELECT result_json FROM poi_analysis_cache WHERE city = $1 AND keyword_set_hash = $2"
	args := []any{strings.TrimSpace(city), hash}
	if cutoff, ok := age.Cutoff(time.Now()); ok {
		query += " AND computed_at >= $3"
		args = append(args, cutoff.Unix())
	}

	var raw []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: load analysis")
	}

	var res model.DensityResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false, eris.Wrap(err, "postgres: unmarshal analysis")
	}
	return &res, true, nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, city, hash string, keywords []string, result *model.DensityResult) error {
	row, err := prepareAnalysis(keywords, result, time.Now())
	if err != nil {
		return eris.Wrap(err, "postgres: save analysis")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO poi_analysis_cache (city, keyword_set_hash, keywords, result_json, computed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (city, keyword_set_hash) DO UPDATE SET
			keywords = EXCLUDED.keywords, result_json = EXCLUDED.result_json, computed_at = EXCLUDED.computed_at`,
		strings.TrimSpace(city), hash, row.keywords, row.resultJSON, row.computedAt.Unix(),
	)
	return eris.Wrap(err, "postgres: save analysis")
}

func (s *PostgresStore) queryPOIs(ctx context.Context, query string, args ...any) ([]model.CachedPOI, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query pois")
	}
	defer rows.Close()

	var out []model.CachedPOI
	for rows.Next() {
		var (
			r       model.CachedPOI
			raw     []byte
			fetched int64
		)
		if err := rows.Scan(
			&r.Keyword, &r.City, &r.ID, &r.Name, &r.Category, &r.Address,
			&r.Lng, &r.Lat, &r.AdCode, &raw, &r.FetchSource, &fetched,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan poi")
		}
		if len(raw) > 0 {
			r.Raw = json.RawMessage(raw)
		}
		r.FetchedAt = time.Unix(fetched, 0).UTC()
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: query pois rows")
}

func (s *PostgresStore) CreatePlanningPoint(ctx context.Context, p *model.PlanningPoint) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO planning_points (`+planningColumns+`, geom)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			ST_SetSRID(ST_MakePoint($4, $5), 4326))`,
		p.ID, p.City, p.Name, p.Lng, p.Lat, p.RadiusMeters, p.Color, string(p.ColorToken), string(p.Status),
		p.PriorityRank, p.Notes, string(p.SourceType), nullableString(p.SourcePOIID), nullableString(p.UpdatedBy),
		p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	return eris.Wrapf(err, "postgres: create planning point %s", p.ID)
}

func (s *PostgresStore) GetPlanningPoint(ctx context.Context, id string) (*model.PlanningPoint, bool, error) {
	points, err := s.queryPlanning(ctx, "SELECT "+planningColumns+" FROM planning_points WHERE id = $1", id)
	if err != nil || len(points) == 0 {
		return nil, false, err
	}
	return &points[0], true, nil
}

func (s *PostgresStore) ListPlanningPoints(ctx context.Context, city string) ([]model.PlanningPoint, error) {
	query := "SELECT " + planningColumns + " FROM planning_points"
	var args []any
	if city = strings.TrimSpace(city); city != "" {
		query += " WHERE city = $1"
		args = append(args, city)
	}
	return s.queryPlanning(ctx, query+" ORDER BY created_at DESC, id", args...)
}

func (s *PostgresStore) UpdatePlanningPoint(ctx context.Context, p *model.PlanningPoint) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE planning_points SET
		city = $2, name = $3, longitude = $4, latitude = $5, radius_meters = $6, color = $7, color_token = $8,
		status = $9, priority_rank = $10, notes = $11, source_type = $12, source_poi_id = $13, updated_by = $14,
		updated_at = $15, geom = ST_SetSRID(ST_MakePoint($4, $5), 4326)
	WHERE id = $1`,
		p.ID, p.City, p.Name, p.Lng, p.Lat, p.RadiusMeters, p.Color, string(p.ColorToken),
		string(p.Status), p.PriorityRank, p.Notes, string(p.SourceType), nullableString(p.SourcePOIID),
		nullableString(p.UpdatedBy), p.UpdatedAt.Unix(),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: update planning point %s", p.ID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DeletePlanningPoint(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM planning_points WHERE id = $1", id)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete planning point %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) queryPlanning(ctx context.Context, query string, args ...any) ([]model.PlanningPoint, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query planning points")
	}
	defer rows.Close()

	var out []model.PlanningPoint
	for rows.Next() {
		var (
			p                  model.PlanningPoint
			token, status, src string
			poiID, updatedBy   *string
			created, updated   int64
		)
		if err := rows.Scan(
			&p.ID, &p.City, &p.Name, &p.Lng, &p.Lat, &p.RadiusMeters, &p.Color, &token, &status,
			&p.PriorityRank, &p.Notes, &src, &poiID, &updatedBy, &created, &updated,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan planning point")
		}
		p.ColorToken = model.PlanningStatus(token)
		p.Status = model.PlanningStatus(status)
		p.SourceType = model.PlanningSource(src)
		if poiID != nil {
			p.SourcePOIID = *poiID
		}
		if updatedBy != nil {
			p.UpdatedBy = *updatedBy
		}
		p.CreatedAt = time.Unix(created, 0).UTC()
		p.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: query planning points rows")
}

func postgresFilter(city string, age MaxAge) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if city = strings.TrimSpace(city); city != "" {
		args = append(args, city)
		conds = append(conds, fmt.Sprintf("city = $%d", len(args)))
	}
	if cutoff, ok := age.Cutoff(time.Now()); ok {
		args = append(args, cutoff.Unix())
		conds = append(conds, fmt.Sprintf("fetched_at >= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
