package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaxAge(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, Unbounded.Bounded())
	assert.True(t, Unbounded.Fresh(now.Add(-1000*time.Hour), now))
	assert.Equal(t, "unbounded", Unbounded.String())

	assert.Equal(t, Unbounded, Within(0))
	assert.Equal(t, Unbounded, Within(-time.Hour))

	day := Within(24 * time.Hour)
	assert.True(t, day.Bounded())
	assert.Equal(t, 24*time.Hour, day.Window())
	cutoff, ok := day.Cutoff(now)
	assert.True(t, ok)
	assert.Equal(t, now.Add(-24*time.Hour), cutoff)
	assert.True(t, day.Fresh(now.Add(-24*time.Hour), now))
	assert.False(t, day.Fresh(now.Add(-25*time.Hour), now))
}

func TestMaxAge_AsOf(t *testing.T) {
	wall := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := wall.Add(48 * time.Hour)

	assert.Equal(t, Unbounded, Unbounded.AsOf(clock))

	day := Within(24 * time.Hour).AsOf(clock)
	assert.Equal(t, 24*time.Hour, day.Window())
	cutoff, ok := day.Cutoff(wall)
	assert.True(t, ok)
	assert.Equal(t, clock.Add(-24*time.Hour), cutoff, "pinned time wins over the caller's now")

	row := wall.Add(-time.Hour)
	assert.True(t, Within(24*time.Hour).Fresh(row, wall))
	assert.False(t, day.Fresh(row, wall))
	assert.True(t, day.Fresh(clock.Add(-23*time.Hour), wall))
}

var (
	_ Store         = (*SQLiteStore)(nil)
	_ Store         = (*PostgresStore)(nil)
	_ AnalysisStore = (*MemoAnalysisStore)(nil)
)
