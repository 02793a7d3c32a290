// Package pgtarget implements the PG Target Calculator (spec §4.3):
// converts a pool's effective capacity ratio into an ideal PG count under
// the active profile, quantized to a power of two.
package pgtarget

import "github.com/cephstor/pgautoscaler/pkg/placement"

// NearestPowerOfTwo returns the power of two closest to n, ties broken
// toward the higher power (96 -> 128) (spec §4.3). n <= 0 is clamped to 1 before
// rounding, matching the original's unsigned bit-twiddling implementation;
// callers apply the pg_num_min floor separately for the n == 0 case.
func NearestPowerOfTwo(n float64) int64 {
	if n <= 1 {
		return 1
	}
	v := int64(n)

	hi := int64(1)
	for hi < v {
		hi <<= 1
	}
	lo := hi >> 1
	if lo == 0 {
		lo = 1
	}
	if (hi - v) > (v - lo) {
		return lo
	}
	return hi
}

// Result is one pool's §4.3 output.
type Result struct {
	FinalRatio    float64
	PoolPGTarget  float64 // pre-quantization ideal (for the verbose status column)
	FinalPGTarget int64   // quantized, floored by pg_num_min
	Decided       bool    // false only for a scale-down pass-1 pool deferred to pass 2
}

func quantize(poolPGTarget float64, pgNumMin int) int64 {
	final := NearestPowerOfTwo(poolPGTarget)
	if int64(pgNumMin) > final {
		final = int64(pgNumMin)
	}
	return final
}

// ScaleUp computes the single-pass scale-up profile result.
func ScaleUp(capacityRatio float64, subtreePGTarget int64, replication, bias float64, pgNumMin int) Result {
	poolPGTarget := (capacityRatio * float64(subtreePGTarget) / replication) * bias
	return Result{
		FinalRatio:    capacityRatio,
		PoolPGTarget:  poolPGTarget,
		FinalPGTarget: quantize(poolPGTarget, pgNumMin),
		Decided:       true,
	}
}

// ScaleDownPass1 is the first scale-down pass (spec §4.3, is_used=true). It
// mutates subtree.PGLeft and subtree.PoolUsed when the pool is claimed.
// When the pool's used ratio does not exceed even_ratio, Decided is false
// and the caller must defer the pool to ScaleDownPass2.
func ScaleDownPass1(capacityRatio float64, subtree *placement.SubtreeResourceStatus, replication, bias float64, pgNumMin int) Result {
	evenRatio := 1.0 / float64(subtree.PoolCount)
	usedRatio := capacityRatio

	if usedRatio <= evenRatio {
		return Result{Decided: false}
	}

	subtree.PoolUsed++
	finalRatio := usedRatio
	if evenRatio > finalRatio {
		finalRatio = evenRatio
	}
	usedPG := finalRatio * float64(subtree.PGTarget)
	subtree.PGLeft -= int64(usedPG)
	poolPGTarget := usedPG / replication * bias

	return Result{
		FinalRatio:    finalRatio,
		PoolPGTarget:  poolPGTarget,
		FinalPGTarget: quantize(poolPGTarget, pgNumMin),
		Decided:       true,
	}
}

// ScaleDownPass2 is the second scale-down pass (spec §4.3, is_used=false),
// run only over pools deferred by ScaleDownPass1.
func ScaleDownPass2(subtree *placement.SubtreeResourceStatus, replication, bias float64, pgNumMin int) Result {
	remainingPools := subtree.PoolCount - subtree.PoolUsed
	finalRatio := 1.0 / float64(remainingPools)
	poolPGTarget := (finalRatio * float64(subtree.PGLeft)) / replication * bias

	return Result{
		FinalRatio:    finalRatio,
		PoolPGTarget:  poolPGTarget,
		FinalPGTarget: quantize(poolPGTarget, pgNumMin),
		Decided:       true,
	}
}
