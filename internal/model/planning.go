package model

import "time"

// PlanningStatus is the review state of a candidate site.
type PlanningStatus string

const (
	StatusPending  PlanningStatus = "pending"
	StatusPriority PlanningStatus = "priority"
	StatusDropped  PlanningStatus = "dropped"
)

// StatusColors maps each status to its default marker color.
var StatusColors = map[PlanningStatus]string{
	StatusPending:  "#22c55e",
	StatusPriority: "#2563eb",
	StatusDropped:  "#94a3b8",
}

// PlanningSource records whether a point was picked from a POI or placed by hand.
type PlanningSource string

const (
	PlanningSourcePOI    PlanningSource = "poi"
	PlanningSourceManual PlanningSource = "manual"
)

// PlanningPoint is a candidate site a user is evaluating in a city.
type PlanningPoint struct {
	ID           string         `json:"id"`
	City         string         `json:"city"`
	Name         string         `json:"name"`
	Lng          float64        `json:"lng"`
	Lat          float64        `json:"lat"`
	RadiusMeters int            `json:"radius_meters"`
	Color        string         `json:"color"`
	ColorToken   PlanningStatus `json:"color_token"`
	Status       PlanningStatus `json:"status"`
	PriorityRank int            `json:"priority_rank"`
	Notes        string         `json:"notes"`
	SourceType   PlanningSource `json:"source_type"`
	// SourcePOIID is set only for points picked from a POI.
	SourcePOIID string    `json:"source_poi_id,omitempty"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Location returns the point's coordinate.
func (p PlanningPoint) Location() Coordinate {
	return Coordinate{Lng: p.Lng, Lat: p.Lat}
}

// POISuggestion is a provider POI offered as a planning point starting position.
type POISuggestion struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lng     float64 `json:"lng"`
	Lat     float64 `json:"lat"`
	City    string  `json:"city"`
}
