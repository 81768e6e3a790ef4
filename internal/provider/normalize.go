package provider

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/pkg/gaode"
)

// UnknownName replaces an empty POI name.
const UnknownName = "未知"

// Normalize converts a raw place into the canonical POI shape. Missing ids get a
// synthetic id derived from name and coordinates so that dedupe keeps the record.
func Normalize(p gaode.Place, fallbackCity string) model.POI {
	lng, lat, _ := gaode.ParseLocation(p.Location.String())

	name := strings.TrimSpace(p.Name.String())
	if name == "" {
		name = UnknownName
	}

	id := strings.TrimSpace(p.ID.String())
	if id == "" {
		id = strings.TrimSpace(p.POIID.String())
	}
	if id == "" {
		id = SyntheticID(name, lng, lat)
	}

	city := strings.TrimSpace(p.CityName.String())
	if city == "" {
		city = fallbackCity
	}

	return model.POI{
		ID:       id,
		Name:     name,
		Category: p.Type.String(),
		Address:  p.Address.String(),
		Lng:      lng,
		Lat:      lat,
		City:     city,
		AdCode:   p.AdCode.String(),
		Raw:      p.Raw,
	}
}

// SyntheticID is a stable id for records the provider returned without one.
func SyntheticID(name string, lng, lat float64) string {
	h := xxhash.New()
	_, _ = h.WriteString(name)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(gaode.FormatLocation(lng, lat))
	return "syn-" + strconv.FormatUint(h.Sum64(), 16)
}
