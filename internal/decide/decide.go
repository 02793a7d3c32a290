// Package decide implements the Adjustment Decider (spec §4.4): compares
// the ideal and current PG counts using a symmetric hysteresis threshold.
package decide

// DefaultThreshold is the hysteresis factor applied when none is
// configured (spec §4.4).
const DefaultThreshold = 3.0

// MinThreshold is the lowest accepted threshold value.
const MinThreshold = 2.0

// WouldAdjust reports whether a pool should be resized, given its
// quantized target, its current target, its final ratio, and the
// hysteresis threshold. threshold must be >= MinThreshold.
func WouldAdjust(finalPGTarget, currentPGTarget int64, finalRatio, threshold float64) bool {
	if finalRatio < 0.0 || finalRatio > 1.0 {
		return false
	}
	current := float64(currentPGTarget)
	return float64(finalPGTarget) > current*threshold || float64(finalPGTarget) < current/threshold
}
