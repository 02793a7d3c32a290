package autoscaler

import (
	"fmt"

	"github.com/cephstor/pgautoscaler/pkg/placement"
)

// BuildHealthChecks assembles the health-check batch for one iteration
// (spec §4.5 step 7, §6 health-check codes, §7 error taxonomy). Each code
// appears in the returned map only when at least one pool or subtree
// raises it, so an iteration with no issues yields an empty map
// (set_health_checks always replaces the full prior batch).
func BuildHealthChecks(pools map[int64]placement.Pool, results []PoolResult, rootMap map[int64]*placement.SubtreeResourceStatus) map[string]placement.HealthCheck {
	var tooFew, tooMany, bytesAndRatio []string

	totalBytes := make(map[int64]int64)
	totalTargetBytes := make(map[int64]int64)
	targetBytesPools := make(map[int64][]string)

	for _, r := range results {
		pool := pools[r.PoolID]
		opts := pool.Options
		if opts.TargetSizeRatio > 0 && opts.TargetSizeBytes > 0 {
			bytesAndRatio = append(bytesAndRatio, fmt.Sprintf("Pool %s has target_size_bytes and target_size_ratio set", r.PoolName))
		}

		actual := int64(r.ActualCapacityRatio * float64(r.SubtreeCapacity))
		viaBytes := int64(float64(r.TargetBytes) * r.RawUsedRate)
		if viaBytes > actual {
			totalBytes[r.CrushRootID] += viaBytes
		} else {
			totalBytes[r.CrushRootID] += actual
		}
		if r.TargetBytes > 0 {
			contribution := int64(float64(r.TargetBytes) * r.RawUsedRate)
			totalTargetBytes[r.CrushRootID] += contribution
			targetBytesPools[r.CrushRootID] = append(targetBytesPools[r.CrushRootID], r.PoolName)
		}

		if !r.WouldAdjust {
			continue
		}
		if r.Mode == placement.ModeWarn {
			msg := fmt.Sprintf("Pool %s has %d placement groups, should have %d", r.PoolName, r.PGNumTarget, r.PGNumFinal)
			if r.PGNumFinal > int64(r.PGNumTarget) {
				tooFew = append(tooFew, msg)
			} else {
				tooMany = append(tooMany, msg)
			}
		}
	}

	checks := make(map[string]placement.HealthCheck)
	if len(tooFew) > 0 {
		checks[placement.HealthTooFewPGs] = placement.HealthCheck{
			Severity: "warning",
			Summary:  fmt.Sprintf("%d pools have too few placement groups", len(tooFew)),
			Count:    len(tooFew),
			Detail:   tooFew,
		}
	}
	if len(tooMany) > 0 {
		checks[placement.HealthTooManyPGs] = placement.HealthCheck{
			Severity: "warning",
			Summary:  fmt.Sprintf("%d pools have too many placement groups", len(tooMany)),
			Count:    len(tooMany),
			Detail:   tooMany,
		}
	}

	var overcommitted []string
	for rootID, total := range totalBytes {
		capacity := int64(0)
		if st, ok := rootMap[rootID]; ok {
			capacity = st.Capacity
		}
		target := totalTargetBytes[rootID]
		if target > 0 && total > capacity && capacity > 0 {
			overcommitted = append(overcommitted, fmt.Sprintf(
				"Pools overcommit available storage by %.03fx due to target_size_bytes on pools %v",
				float64(total)/float64(capacity), targetBytesPools[rootID]))
		}
	}
	if len(overcommitted) > 0 {
		checks[placement.HealthOvercommitted] = placement.HealthCheck{
			Severity: "warning",
			Summary:  fmt.Sprintf("%d subtrees have overcommitted pool target_size_bytes", len(overcommitted)),
			Count:    len(overcommitted),
			Detail:   overcommitted,
		}
	}

	if len(bytesAndRatio) > 0 {
		checks[placement.HealthBytesAndRatioBothSet] = placement.HealthCheck{
			Severity: "warning",
			Summary:  fmt.Sprintf("%d pools have both target_size_bytes and target_size_ratio set", len(bytesAndRatio)),
			Count:    len(bytesAndRatio),
			Detail:   bytesAndRatio,
		}
	}

	return checks
}
