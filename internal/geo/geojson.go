package geo

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/site-scout/internal/model"
)

// SRID is WGS-84.
const SRID = 4326

// HeatmapFeatureCollection renders heatmap cells as a GeoJSON FeatureCollection of
// centroid points carrying gridId, count and intensity properties.
func HeatmapFeatureCollection(cells []model.GridCell) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(cells))}
	for _, c := range cells {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       c.GridID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{c.Center.Lng, c.Center.Lat}),
			Properties: map[string]any{
				"gridId":    c.GridID,
				"count":     c.Count,
				"intensity": c.Intensity,
			},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode heatmap geojson")
	}
	return data, nil
}

// EncodePoint converts a coordinate to EWKB bytes with SRID 4326.
func EncodePoint(c model.Coordinate) ([]byte, error) {
	p := geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat}).SetSRID(SRID)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode point")
	}
	return data, nil
}
