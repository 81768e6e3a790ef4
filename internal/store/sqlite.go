package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/site-scout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS poi_cache (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	keyword      TEXT NOT NULL,
	city         TEXT NOT NULL,
	poi_id       TEXT NOT NULL,
	name         TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	address      TEXT NOT NULL DEFAULT '',
	longitude    REAL NOT NULL,
	latitude     REAL NOT NULL,
	adcode       TEXT NOT NULL DEFAULT '',
	raw_json     TEXT,
	fetch_source TEXT NOT NULL DEFAULT 'gaode',
	fetched_at   INTEGER NOT NULL,
	UNIQUE (keyword, city, poi_id)
);

CREATE TABLE IF NOT EXISTS poi_analysis_cache (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	city             TEXT NOT NULL,
	keyword_set_hash TEXT NOT NULL,
	keywords         TEXT NOT NULL,
	result_json      TEXT NOT NULL,
	computed_at      INTEGER NOT NULL,
	UNIQUE (city, keyword_set_hash)
);

CREATE TABLE IF NOT EXISTS planning_points (
	id            TEXT PRIMARY KEY,
	city          TEXT NOT NULL,
	name          TEXT NOT NULL,
	longitude     REAL NOT NULL,
	latitude      REAL NOT NULL,
	radius_meters INTEGER NOT NULL DEFAULT 1000,
	color         TEXT NOT NULL,
	color_token   TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	priority_rank INTEGER NOT NULL DEFAULT 100,
	notes         TEXT NOT NULL DEFAULT '',
	source_type   TEXT NOT NULL DEFAULT 'manual',
	source_poi_id TEXT,
	updated_by    TEXT,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poi_cache_city_keyword ON poi_cache(city, keyword);
CREATE INDEX IF NOT EXISTS idx_poi_cache_fetched_at ON poi_cache(fetched_at);
CREATE INDEX IF NOT EXISTS idx_planning_points_city ON planning_points(city, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertPOI = `
INSERT INTO poi_cache (keyword, city, poi_id, name, category, address, longitude, latitude, adcode, raw_json, fetch_source, fetched_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (keyword, city, poi_id) DO UPDATE SET
	name = excluded.name,
	category = excluded.category,
	address = excluded.address,
	longitude = excluded.longitude,
	latitude = excluded.latitude,
	adcode = excluded.adcode,
	raw_json = excluded.raw_json,
	fetch_source = excluded.fetch_source,
	fetched_at = excluded.fetched_at`

func (s *SQLiteStore) UpsertPOIs(ctx context.Context, records []model.CachedPOI) (int, error) {
	records, err := prepareRecords(records, time.Now())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert pois")
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert pois: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertPOI)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert pois: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Keyword, r.City, r.ID, r.Name, r.Category, r.Address,
			r.Lng, r.Lat, r.AdCode, nullableJSON(r.Raw), r.FetchSource, r.FetchedAt.Unix(),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert poi %s", r.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert pois: commit")
	}
	return len(records), nil
}

const sqlitePOIColumns = `keyword, city, poi_id, name, category, address, longitude, latitude, adcode, raw_json, fetch_source, fetched_at`

func (s *SQLiteStore) POIsByKeywords(ctx context.Context, city string, keywords []string, age MaxAge) ([]model.CachedPOI, error) {
	keywords = model.NormalizeKeywords(keywords)
	if len(keywords) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + sqlitePOIColumns + " FROM poi_cache WHERE city = ? AND keyword IN (")
	args := make([]any, 0, len(keywords)+2)
	args = append(args, strings.TrimSpace(city))
	for i, kw := range keywords {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("?")
		args = append(args, kw)
	}
	sb.WriteString(")")
	if cutoff, ok := age.Cutoff(time.Now()); ok {
		sb.WriteString(" AND fetched_at >= ?")
		args = append(args, cutoff.Unix())
	}
	sb.WriteString(" ORDER BY keyword, id")

	return s.queryPOIs(ctx, sb.String(), args...)
}

func (s *SQLiteStore) AllPOIs(ctx context.Context, city string, age MaxAge) ([]model.CachedPOI, error) {
	where, args := sqliteFilter(city, age)
	return s.queryPOIs(ctx, "SELECT "+sqlitePOIColumns+" FROM poi_cache"+where+" ORDER BY city, keyword, id", args...)
}

func (s *SQLiteStore) KeywordStats(ctx context.Context, city string, age MaxAge) ([]model.KeywordStat, error) {
	where, args := sqliteFilter(city, age)
	rows, err := s.db.QueryContext(ctx,
		"SELECT keyword, city, COUNT(*), MAX(fetched_at) FROM poi_cache"+where+
			" GROUP BY keyword, city ORDER BY COUNT(*) DESC, keyword, city", args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: keyword stats")
	}
	defer rows.Close() //nolint:errcheck

	var stats []model.KeywordStat
	for rows.Next() {
		var (
			st   model.KeywordStat
			last int64
		)
		if err := rows.Scan(&st.Keyword, &st.City, &st.Count, &last); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan keyword stat")
		}
		st.LastFetchedAt = time.Unix(last, 0).UTC()
		stats = append(stats, st)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: keyword stats rows")
}

func (s *SQLiteStore) LoadAnalysis(ctx context.Context, city, hash string, age MaxAge) (*model.DensityResult, bool, error) {
	query := "SELECT result_json FROM poi_analysis_cache WHERE city = ? AND keyword_set_hash = ?"
	args := []any{strings.TrimSpace(city), hash}
	if cutoff, ok := age.Cutoff(time.Now()); ok {
		query += " AND computed_at >= ?"
		args = append(args, cutoff.Unix())
	}

	var raw string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: load analysis")
	}

	var res model.DensityResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	return &res, true, nil
}

const sqliteSaveAnalysis = `
INSERT INTO poi_analysis_cache (city, keyword_set_hash, keywords, result_json, computed_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (city, keyword_set_hash) DO UPDATE SET
	keywords = excluded.keywords,
	result_json = excluded.result_json,
	computed_at = excluded.computed_at`

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, city, hash string, keywords []string, result *model.DensityResult) error {
	row, err := prepareAnalysis(keywords, result, time.Now())
	if err != nil {
		return eris.Wrap(err, "sqlite: save analysis")
	}
	_, err = s.db.ExecContext(ctx, sqliteSaveAnalysis,
		strings.TrimSpace(city), hash, row.keywords, string(row.resultJSON), row.computedAt.Unix())
	return eris.Wrap(err, "sqlite: save analysis")
}

func (s *SQLiteStore) queryPOIs(ctx context.Context, query string, args ...any) ([]model.CachedPOI, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query pois")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CachedPOI
	for rows.Next() {
		var (
			r       model.CachedPOI
			raw     sql.NullString
			fetched int64
		)
		if err := rows.Scan(
			&r.Keyword, &r.City, &r.ID, &r.Name, &r.Category, &r.Address,
			&r.Lng, &r.Lat, &r.AdCode, &raw, &r.FetchSource, &fetched,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan poi")
		}
		if raw.Valid && raw.String != "" {
			r.Raw = json.RawMessage(raw.String)
		}
		r.FetchedAt = time.Unix(fetched, 0).UTC()
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: query pois rows")
}

const planningColumns = `id, city, name, longitude, latitude, radius_meters, color, color_token, status,
	priority_rank, notes, source_type, source_poi_id, updated_by, created_at, updated_at`

func (s *SQLiteStore) CreatePlanningPoint(ctx context.Context, p *model.PlanningPoint) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO planning_points ("+planningColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.City, p.Name, p.Lng, p.Lat, p.RadiusMeters, p.Color, string(p.ColorToken), string(p.Status),
		p.PriorityRank, p.Notes, string(p.SourceType), nullableString(p.SourcePOIID), nullableString(p.UpdatedBy),
		p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	return eris.Wrapf(err, "sqlite: create planning point %s", p.ID)
}

func (s *SQLiteStore) GetPlanningPoint(ctx context.Context, id string) (*model.PlanningPoint, bool, error) {
	points, err := s.queryPlanning(ctx, "SELECT "+planningColumns+" FROM planning_points WHERE id = ?", id)
	if err != nil || len(points) == 0 {
		return nil, false, err
	}
	return &points[0], true, nil
}

func (s *SQLiteStore) ListPlanningPoints(ctx context.Context, city string) ([]model.PlanningPoint, error) {
	query := "SELECT " + planningColumns + " FROM planning_points"
	var args []any
	if city = strings.TrimSpace(city); city != "" {
		query += " WHERE city = ?"
		args = append(args, city)
	}
	return s.queryPlanning(ctx, query+" ORDER BY created_at DESC, id", args...)
}

func (s *SQLiteStore) UpdatePlanningPoint(ctx context.Context, p *model.PlanningPoint) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE planning_points SET
	city = ?, name = ?, longitude = ?, latitude = ?, radius_meters = ?, color = ?, color_token = ?,
	status = ?, priority_rank = ?, notes = ?, source_type = ?, source_poi_id = ?, updated_by = ?, updated_at = ?
WHERE id = ?`,
		p.City, p.Name, p.Lng, p.Lat, p.RadiusMeters, p.Color, string(p.ColorToken),
		string(p.Status), p.PriorityRank, p.Notes, string(p.SourceType), nullableString(p.SourcePOIID),
		nullableString(p.UpdatedBy), p.UpdatedAt.Unix(), p.ID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: update planning point %s", p.ID)
	}
	n, err := res.RowsAffected()
	return n > 0, eris.Wrap(err, "sqlite: update planning point rows")
}

func (s *SQLiteStore) DeletePlanningPoint(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM planning_points WHERE id = ?", id)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete planning point %s", id)
	}
	n, err := res.RowsAffected()
	return n > 0, eris.Wrap(err, "sqlite: delete planning point rows")
}

func (s *SQLiteStore) queryPlanning(ctx context.Context, query string, args ...any) ([]model.PlanningPoint, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query planning points")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.PlanningPoint
	for rows.Next() {
		var (
			p                  model.PlanningPoint
			token, status, src string
			poiID, updatedBy   sql.NullString
			created, updated   int64
		)
		if err := rows.Scan(
			&p.ID, &p.City, &p.Name, &p.Lng, &p.Lat, &p.RadiusMeters, &p.Color, &token, &status,
			&p.PriorityRank, &p.Notes, &src, &poiID, &updatedBy, &created, &updated,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan planning point")
		}
		p.ColorToken = model.PlanningStatus(token)
		p.Status = model.PlanningStatus(status)
		p.SourceType = model.PlanningSource(src)
		p.SourcePOIID = poiID.String
		p.UpdatedBy = updatedBy.String
		p.CreatedAt = time.Unix(created, 0).UTC()
		p.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: query planning points rows")
}

func sqliteFilter(city string, age MaxAge) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if city = strings.TrimSpace(city); city != "" {
		conds = append(conds, "city = ?")
		args = append(args, city)
	}
	if cutoff, ok := age.Cutoff(time.Now()); ok {
		conds = append(conds, "fetched_at >= ?")
		args = append(args, cutoff.Unix())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
