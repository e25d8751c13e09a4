// Package associate maps a detected plate to the tracked vehicle that
// carries it.
package associate

import "github.com/banshee-data/plate.report/internal/alpr"

// Associator resolves plate ownership by box containment. Tolerance widens
// every vehicle box by that many pixels before testing; zero requires full
// containment.
type Associator struct {
	Tolerance float64
}

// Associate returns the track id of the vehicle whose box fully contains
// plate. When several vehicles qualify the smallest box wins, and among
// equal areas the lowest track id, so the result does not depend on the
// tracker's output order. alpr.Unassigned is returned when no vehicle
// contains the plate. Partial overlap never counts.
func (a Associator) Associate(plate alpr.Box, vehicles []alpr.TrackedVehicle) int {
	best := alpr.Unassigned
	bestArea := 0.0
	for _, v := range vehicles {
		if !v.Box.Contains(plate, a.Tolerance) {
			continue
		}
		area := v.Box.Area()
		if best == alpr.Unassigned || area < bestArea || (area == bestArea && v.TrackID < best) {
			best = v.TrackID
			bestArea = area
		}
	}
	return best
}

// Associate uses a zero-tolerance Associator.
func Associate(plate alpr.Box, vehicles []alpr.TrackedVehicle) int {
	return Associator{}.Associate(plate, vehicles)
}
