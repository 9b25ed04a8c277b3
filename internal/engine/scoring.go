package engine

import (
	"math"
	"time"
)

// Scoring constants for the time-decay curve. A correct answer inside the
// fast window earns 1000 down to 900; from there points fall linearly to the
// floor, which is reached at decayEnd seconds (or at the question limit when
// the limit is shorter).
const (
	maxPoints   = 1000
	fastPoints  = 900
	floorPoints = 400
	fastWindow  = 2.0
	decayEnd    = 15.0
)

// Score maps correctness and elapsed time to points in [0, 1000].
// Elapsed is measured between the round's server start timestamp and the
// server receive timestamp of the submission; negative values (a client
// racing the start broadcast) clamp to zero. This is the only place point
// values are computed.
func Score(correct bool, elapsed, limit time.Duration) int {
	if !correct {
		return 0
	}

	sec := elapsed.Seconds()
	if sec < 0 {
		sec = 0
	}

	end := decayEnd
	if lim := limit.Seconds(); lim > fastWindow && lim < end {
		end = lim
	}

	var points float64
	switch {
	case sec <= fastWindow:
		points = maxPoints - (sec/fastWindow)*(maxPoints-fastPoints)
	case sec <= end:
		points = fastPoints - ((sec-fastWindow)/(end-fastWindow))*(fastPoints-floorPoints)
	default:
		points = floorPoints
	}

	rounded := int(math.Round(points))
	if rounded < 0 {
		return 0
	}
	if rounded > maxPoints {
		return maxPoints
	}
	return rounded
}
