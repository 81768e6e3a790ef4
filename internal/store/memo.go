package store

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sells-group/site-scout/internal/model"
)

const defaultMemoSize = 256

type memoEntry struct {
	result     *model.DensityResult
	computedAt time.Time
}

// MemoAnalysisStore fronts an AnalysisStore with an in-process LRU so repeat
// density requests skip the database.
type MemoAnalysisStore struct {
	next AnalysisStore
	lru  *lru.Cache[string, memoEntry]
	now  func() time.Time
}

// NewMemoAnalysisStore wraps next. size <= 0 uses a default capacity.
func NewMemoAnalysisStore(next AnalysisStore, size int) *MemoAnalysisStore {
	if size <= 0 {
		size = defaultMemoSize
	}
	c, _ := lru.New[string, memoEntry](size)
	return &MemoAnalysisStore{next: next, lru: c, now: time.Now}
}

func memoKey(city, hash string) string {
	return strings.TrimSpace(city) + "\x00" + hash
}

// LoadAnalysis returns a copy of the memoized result when it is fresh under age,
// falling through to the wrapped store otherwise. Entries never share slices
// with values handed to or returned from callers.
func (m *MemoAnalysisStore) LoadAnalysis(ctx context.Context, city, hash string, age MaxAge) (*model.DensityResult, bool, error) {
	key := memoKey(city, hash)
	if e, ok := m.lru.Get(key); ok {
		if age.Fresh(e.computedAt, m.now()) {
			return e.result.Clone(), true, nil
		}
		m.lru.Remove(key)
	}

	res, ok, err := m.next.LoadAnalysis(ctx, city, hash, age)
	if err != nil || !ok {
		return res, ok, err
	}
	m.lru.Add(key, memoEntry{result: res.Clone(), computedAt: res.ComputedAt})
	return res, true, nil
}

func (m *MemoAnalysisStore) SaveAnalysis(ctx context.Context, city, hash string, keywords []string, result *model.DensityResult) error {
	if err := m.next.SaveAnalysis(ctx, city, hash, keywords, result); err != nil {
		return err
	}
	computedAt := result.ComputedAt
	if computedAt.IsZero() {
		computedAt = m.now()
	}
	m.lru.Add(memoKey(city, hash), memoEntry{result: result.Clone(), computedAt: computedAt})
	return nil
}

// Len reports the number of memoized entries.
func (m *MemoAnalysisStore) Len() int {
	return m.lru.Len()
}
