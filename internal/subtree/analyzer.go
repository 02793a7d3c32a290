// Package subtree implements the Subtree Analyzer (spec §4.1): it
// partitions pools across the placement tree into non-overlapping
// resource domains keyed by root id, folding roots together whenever
// their OSD sets intersect, and aggregates per-subtree capacity and
// reservation totals.
package subtree

import (
	"sort"

	"github.com/cephstor/pgautoscaler/pkg/placement"
)

// Result is the output of Analyze: root id -> subtree, plus the set of
// root ids folded together by overlap detection.
type Result struct {
	RootMap  map[int64]*placement.SubtreeResourceStatus
	Overlaps map[int64]struct{}
}

// Analyze partitions pools into subtrees and detects overlapping roots.
// Pools are iterated in ascending id order so that two runs over identical
// inputs produce identical mappings, including overlap sets (spec §4.1
// determinism requirement).
func Analyze(pools map[int64]placement.Pool, tree placement.PlacementTree, osdStats map[int64]placement.OSDStats, monTargetPGPerOSD int, rawUsedRate func(poolID int64) float64) Result {
	ids := make([]int64, 0, len(pools))
	for id := range pools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make(map[int64]*placement.SubtreeResourceStatus)
	var resultOrder []int64
	overlaps := make(map[int64]struct{})
	var roots []*placement.SubtreeResourceStatus

	for _, id := range ids {
		pool := pools[id]
		rootID, ok := tree.RuleRoot(pool.CrushRuleID)
		if !ok {
			// Programming-error tripwire (spec §7): the snapshot invariant
			// that every pool's crush rule resolves to a root was
			// violated by the provider. Skip the pool rather than panic.
			continue
		}
		osds := tree.OSDsUnderRoot(rootID)
		osdSet := make(map[int64]struct{}, len(osds))
		for _, o := range osds {
			osdSet[o] = struct{}{}
		}

		var s *placement.SubtreeResourceStatus
		// Scan resultOrder (insertion order), not the map directly: map
		// iteration order is randomized, and which existing subtree a
		// multi-overlap pool folds into must be deterministic run-to-run.
		for _, prevRootID := range resultOrder {
			prev := result[prevRootID]
			if intersects(osdSet, prev.OSDs) {
				s = prev
				if prevRootID != rootID {
					overlaps[prevRootID] = struct{}{}
					overlaps[rootID] = struct{}{}
				}
				break
			}
		}
		if s == nil {
			s = placement.NewSubtreeResourceStatus()
			roots = append(roots, s)
		}
		if _, exists := result[rootID]; !exists {
			resultOrder = append(resultOrder, rootID)
		}
		result[rootID] = s

		s.RootIDs = append(s.RootIDs, rootID)
		for o := range osdSet {
			s.OSDs[o] = struct{}{}
		}
		s.PoolIDs = append(s.PoolIDs, id)
		s.PGCurrent += int64(pool.PGNumTarget) * int64(pool.Replication)

		if pool.Options.TargetSizeRatio > 0 {
			s.TotalTargetRatio += pool.Options.TargetSizeRatio
		} else if pool.Options.TargetSizeBytes > 0 {
			s.TotalTargetBytes += int64(float64(pool.Options.TargetSizeBytes) * rawUsedRate(id))
		}
	}

	for _, s := range roots {
		s.OSDCount = len(s.OSDs)
		s.PGTarget = int64(s.OSDCount * monTargetPGPerOSD)
		s.PGLeft = s.PGTarget
		s.PoolCount = len(s.PoolIDs)

		var capacity int64
		for osdID := range s.OSDs {
			if st, ok := osdStats[osdID]; ok {
				capacity += st.KB * 1024
			}
		}
		s.Capacity = capacity
	}

	return Result{RootMap: result, Overlaps: overlaps}
}

func intersects(a, b map[int64]struct{}) bool {
	small, big := a, b
	if len(big) < len(small) {
		small, big = big, small
	}
	for k := range small {
		if _, ok := big[k]; ok {
			return true
		}
	}
	return false
}
