package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-scout/internal/model"
)

// prepareRecords normalizes identity fields, fills defaults and collapses
// duplicates so a batch behaves like sequential upserts.
func prepareRecords(records []model.CachedPOI, now time.Time) ([]model.CachedPOI, error) {
	if len(records) == 0 {
		return nil, nil
	}
	out := make([]model.CachedPOI, 0, len(records))
	for i, r := range records {
		r.Keyword = model.NormalizeKeyword(r.Keyword)
		r.City = strings.TrimSpace(r.City)
		r.ID = strings.TrimSpace(r.ID)
		if r.Keyword == "" || r.City == "" || r.ID == "" {
			return nil, eris.Errorf("record %d: keyword, city and id are required", i)
		}
		if r.FetchSource == "" {
			r.FetchSource = model.FetchSourceGaode
		}
		if r.FetchedAt.IsZero() {
			r.FetchedAt = now
		}
		out = append(out, r)
	}
	return model.DedupeCached(out), nil
}

type analysisRow struct {
	keywords   string
	resultJSON []byte
	computedAt time.Time
}

func prepareAnalysis(keywords []string, result *model.DensityResult, now time.Time) (analysisRow, error) {
	if result == nil {
		return analysisRow{}, eris.New("nil result")
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return analysisRow{}, eris.Wrap(err, "marshal result")
	}
	computedAt := result.ComputedAt
	if computedAt.IsZero() {
		computedAt = now
	}
	return analysisRow{
		keywords:   strings.Join(model.NormalizeKeywords(keywords), ","),
		resultJSON: raw,
		computedAt: computedAt,
	}, nil
}
