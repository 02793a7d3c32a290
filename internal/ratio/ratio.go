// Package ratio implements the Ratio Computer (spec §4.2): derives each
// pool's capacity ratio and normalizes its target_size_ratio against its
// subtree's reservations.
package ratio

// EffectiveTargetRatio normalizes a pool's target_size_ratio against its
// subtree's total reserved ratio and bytes (spec §4.2).
//
//	effective_target_ratio(0, …) = 0
//	effective_target_ratio(r, R, 0, C) = r / R
//	effective_target_ratio(r, R, B, C) <= r / R
func EffectiveTargetRatio(targetRatio, totalTargetRatio float64, totalTargetBytes, capacity int64) float64 {
	r := targetRatio
	if totalTargetRatio > 0 {
		r = r / totalTargetRatio
	}
	if totalTargetBytes > 0 && capacity > 0 {
		fractionAvailable := 1.0 - min1(float64(totalTargetBytes)/float64(capacity))
		r *= fractionAvailable
	}
	return r
}

func min1(x float64) float64 {
	if x < 1.0 {
		return x
	}
	return 1.0
}

// PoolRatios holds the per-pool ratio outputs of §4.2.
type PoolRatios struct {
	ActualCapacityRatio   float64 // actual_raw_used / capacity
	CapacityRatio         float64 // max(logical_used, target_bytes) * raw_used_rate / capacity
	EffectiveTargetRatio  float64
	EffectiveCapacityRatio float64 // max(CapacityRatio, EffectiveTargetRatio); used for sizing
}

// Compute derives capacity_ratio and the effective sizing ratio for one
// pool. targetBytes is the pool's target_size_bytes with ratio-precedence
// already applied by the caller (0 when target_size_ratio is set).
func Compute(logicalUsed, targetBytes int64, rawUsedRate float64, targetRatio, subtreeTotalTargetRatio float64, subtreeTotalTargetBytes, capacity int64) PoolRatios {
	if capacity <= 0 {
		return PoolRatios{}
	}
	actualRawUsed := float64(logicalUsed) * rawUsedRate
	actualCapacityRatio := actualRawUsed / float64(capacity)

	used := logicalUsed
	if targetBytes > used {
		used = targetBytes
	}
	poolRawUsed := float64(used) * rawUsedRate
	capacityRatio := poolRawUsed / float64(capacity)

	effTarget := EffectiveTargetRatio(targetRatio, subtreeTotalTargetRatio, subtreeTotalTargetBytes, capacity)

	effCapacity := capacityRatio
	if effTarget > effCapacity {
		effCapacity = effTarget
	}

	return PoolRatios{
		ActualCapacityRatio:    actualCapacityRatio,
		CapacityRatio:          capacityRatio,
		EffectiveTargetRatio:   effTarget,
		EffectiveCapacityRatio: effCapacity,
	}
}
