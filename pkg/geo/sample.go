package geo

// SampleRoute reduces an ordered route to the waypoints used for station
// queries along a trip.
//
// The first point is always kept. Point-to-point distances are accumulated
// while walking the route; once the accumulator reaches intervalKm the current
// point is kept and the accumulator restarts at zero, so any overshoot is
// dropped rather than carried into the next interval. The final route point is
// appended if it was not the last one kept.
//
// An empty route yields nil. A non-positive interval keeps every point.
func SampleRoute(points []Coordinate, intervalKm float64) []Coordinate {
	if len(points) == 0 {
		return nil
	}
	if intervalKm <= 0 {
		out := make([]Coordinate, len(points))
		copy(out, points)
		return out
	}

	sampled := []Coordinate{points[0]}
	lastIdx := 0
	accumulated := 0.0
	prev := points[0]

	for i := 1; i < len(points); i++ {
		current := points[i]
		accumulated += DistanceKm(prev, current)
		prev = current

		if accumulated >= intervalKm {
			sampled = append(sampled, current)
			lastIdx = i
			accumulated = 0
		}
	}

	// Compared by route index so a loop route still ends on its destination.
	if lastIdx != len(points)-1 {
		sampled = append(sampled, points[len(points)-1])
	}

	return sampled
}
