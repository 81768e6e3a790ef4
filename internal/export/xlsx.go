// Package export writes cached POIs to spreadsheet workbooks.
package export

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/internal/store"
)

// Sheet names.
const (
	POISheet     = "POIs"
	KeywordSheet = "Keywords"
)

var (
	poiHeader     = []string{"keyword", "city", "poi_id", "name", "category", "address", "lng", "lat", "adcode", "fetched_at"}
	keywordHeader = []string{"keyword", "city", "count", "last_fetched_at"}
)

// Summary reports what a workbook contains.
type Summary struct {
	POIs     int `json:"pois"`
	Keywords int `json:"keywords"`
}

// Workbook builds a workbook of the cached POIs for city ("" = all cities) with a
// per-keyword summary sheet.
func Workbook(ctx context.Context, src store.PoiStore, city string, age store.MaxAge) (*xlsx.File, Summary, error) {
	var (
		rows  []model.CachedPOI
		stats []model.KeywordStat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = src.AllPOIs(gctx, city, age)
		return eris.Wrap(err, "export: read pois")
	})
	g.Go(func() error {
		var err error
		stats, err = src.KeywordStats(gctx, city, age)
		return eris.Wrap(err, "export: read keyword stats")
	})
	if err := g.Wait(); err != nil {
		return nil, Summary{}, err
	}

	f := xlsx.NewFile()
	poiSheet, err := f.AddSheet(POISheet)
	if err != nil {
		return nil, Summary{}, eris.Wrap(err, "export: add poi sheet")
	}
	addHeader(poiSheet, poiHeader)
	for _, r := range rows {
		row := poiSheet.AddRow()
		addStrings(row, r.Keyword, r.City, r.ID, r.Name, r.Category, r.Address)
		row.AddCell().SetFloat(r.Lng)
		row.AddCell().SetFloat(r.Lat)
		addStrings(row, r.AdCode, r.FetchedAt.UTC().Format(time.RFC3339))
	}

	kwSheet, err := f.AddSheet(KeywordSheet)
	if err != nil {
		return nil, Summary{}, eris.Wrap(err, "export: add keyword sheet")
	}
	addHeader(kwSheet, keywordHeader)
	for _, st := range stats {
		row := kwSheet.AddRow()
		addStrings(row, st.Keyword, st.City)
		row.AddCell().SetInt(st.Count)
		addStrings(row, st.LastFetchedAt.UTC().Format(time.RFC3339))
	}

	return f, Summary{POIs: len(rows), Keywords: len(stats)}, nil
}

// WriteFile saves the workbook for city to path.
func WriteFile(ctx context.Context, src store.PoiStore, city string, age store.MaxAge, path string) (Summary, error) {
	f, sum, err := Workbook(ctx, src, city, age)
	if err != nil {
		return Summary{}, err
	}
	if err := f.Save(path); err != nil {
		return Summary{}, eris.Wrapf(err, "export: save %s", path)
	}
	return sum, nil
}

// Write streams the workbook for city to w.
func Write(ctx context.Context, w io.Writer, src store.PoiStore, city string, age store.MaxAge) (Summary, error) {
	f, sum, err := Workbook(ctx, src, city, age)
	if err != nil {
		return Summary{}, err
	}
	if err := f.Write(w); err != nil {
		return Summary{}, eris.Wrap(err, "export: write workbook")
	}
	return sum, nil
}

func addHeader(sheet *xlsx.Sheet, cols []string) {
	addStrings(sheet.AddRow(), cols...)
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
