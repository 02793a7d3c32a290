package autoscaler

import "github.com/cephstor/pgautoscaler/pkg/placement"

// Options carries the subset of spec §6 configuration the calculator and
// loop need on every iteration.
type Options struct {
	Profile           placement.Profile
	Threshold         float64 // hysteresis factor (§4.4), default decide.DefaultThreshold
	MonTargetPGPerOSD int
}
