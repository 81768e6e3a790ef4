package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = UpsertConfig{
	Table:        "public.poi_cache",
	Columns:      []string{"keyword", "city", "poi_id", "name"},
	ConflictKeys: []string{"keyword", "city", "poi_id"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, testCfg, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "poi_cache",
		ConflictKeys: []string{"poi_id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "poi_cache",
		Columns: []string{"poi_id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_UnknownConflictKey(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "poi_cache",
		Columns:      []string{"poi_id", "name"},
		ConflictKeys: []string{"city"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `conflict key "city"`)
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	// Three input rows, two distinct keys.
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_public_poi_cache"}, testCfg.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "public"."poi_cache" .* ON CONFLICT \("keyword", "city", "poi_id"\) DO UPDATE SET "name" = EXCLUDED."name"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{
		{"kfc", "上海市", "B1", "old"},
		{"kfc", "上海市", "B2", "other"},
		{"kfc", "上海市", "B1", "new"},
	}
	n, err := BulkUpsert(context.Background(), mock, testCfg, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_InsertFailsRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_public_poi_cache"}, testCfg.Columns).WillReturnResult(1)
	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, testCfg, [][]any{{"kfc", "上海市", "B1", "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSERT ON CONFLICT")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_BeginFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	_, err = BulkUpsert(context.Background(), mock, testCfg, [][]any{{"kfc", "上海市", "B1", "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}

func TestDedupeRows(t *testing.T) {
	rows := [][]any{
		{"a", 1, "first"},
		{"b", 1, "b"},
		{"a", 1, "last"},
		{"a", 2, "other key"},
	}
	out := dedupeRows(rows, []int{0, 1})
	require.Len(t, out, 3)
	assert.Equal(t, "last", out[0][2])
	assert.Equal(t, "b", out[1][2])
	assert.Equal(t, "other key", out[2][2])
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"public.poi_cache", `"public"."poi_cache"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"keyword", "city", "poi_id"`, quoteAndJoin([]string{"keyword", "city", "poi_id"}))
}
