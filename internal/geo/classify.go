package geo

import "github.com/sells-group/site-scout/internal/model"

// Main-brand point thresholds for the cell containing a target.
const (
	highDensityThreshold   = 10
	mediumDensityThreshold = 4
)

// ClassifyDensity returns the density level for a cell holding count main-brand points.
// Rules:
//   - high: count >= 10
//   - medium: count >= 4
//   - low: anything else, including an empty cell
func ClassifyDensity(count int) model.DensityLevel {
	switch {
	case count >= highDensityThreshold:
		return model.DensityHigh
	case count >= mediumDensityThreshold:
		return model.DensityMedium
	default:
		return model.DensityLow
	}
}

// CountInCell counts the points that share target's grid cell.
func CountInCell(target model.Coordinate, points []model.Coordinate, cellSizeMeters float64) (gridID string, count int) {
	gridID = GridID(target, cellSizeMeters, Origin)
	for _, p := range points {
		if GridID(p, cellSizeMeters, Origin) == gridID {
			count++
		}
	}
	return gridID, count
}
