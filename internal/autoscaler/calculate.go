package autoscaler

import (
	"sort"

	"github.com/cephstor/pgautoscaler/internal/decide"
	"github.com/cephstor/pgautoscaler/internal/pgtarget"
	"github.com/cephstor/pgautoscaler/internal/ratio"
	"github.com/cephstor/pgautoscaler/internal/subtree"
	"github.com/cephstor/pgautoscaler/pkg/placement"
)

// PoolResult is one pool's computed sizing recommendation (spec §6,
// "status" command fields).
type PoolResult struct {
	PoolID               int64
	PoolName             string
	CrushRootID          int64
	Mode                 placement.AutoscaleMode
	PGNumTarget          int
	LogicalUsed          int64
	TargetBytes          int64
	RawUsedRate          float64
	SubtreeCapacity      int64
	ActualCapacityRatio  float64
	CapacityRatio        float64
	TargetRatio          float64
	EffectiveTargetRatio float64
	Bias                 float64
	PGNumIdeal           int64
	PGNumFinal           int64
	WouldAdjust          bool
}

// PoolStatus runs the full §4.1-§4.4 pipeline over a snapshot and returns
// one PoolResult per sizeable pool, plus the subtree map (needed by the
// caller to compute overcommit health, spec §4.5 step 7).
func PoolStatus(snap placement.ClusterSnapshot, cfg Options) ([]PoolResult, map[int64]*placement.SubtreeResourceStatus) {
	analysis := subtree.Analyze(snap.Pools, snap.Tree, snap.OSDStat, cfg.MonTargetPGPerOSD, snap.RawUsedRate)

	var results []PoolResult
	var deferred []int64 // pool ids deferred to scale-down pass 2, in discovery order

	ids := sortedPoolIDs(snap.Pools)

	for _, id := range ids {
		r, ok := computeOne(id, snap, analysis, cfg, true)
		if !ok {
			continue
		}
		if r == nil {
			deferred = append(deferred, id)
			continue
		}
		results = append(results, *r)
	}

	if cfg.Profile == placement.ProfileScaleDown {
		for _, id := range deferred {
			r, ok := computeOne(id, snap, analysis, cfg, false)
			if !ok || r == nil {
				continue
			}
			results = append(results, *r)
		}
	}

	return results, analysis.RootMap
}

func sortedPoolIDs(pools map[int64]placement.Pool) []int64 {
	ids := make([]int64, 0, len(pools))
	for id := range pools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// computeOne computes one pool's result. ok=false means "skip entirely"
// (pool gone, zero capacity, overlapping root under scale-down). A nil
// *PoolResult with ok=true means "deferred to scale-down pass 2".
func computeOne(id int64, snap placement.ClusterSnapshot, analysis subtree.Result, cfg Options, isUsed bool) (*PoolResult, bool) {
	pool, ok := snap.Pools[id]
	if !ok {
		return nil, false
	}
	stats, ok := snap.PoolStat[id]
	if !ok {
		// Transient snapshot race: pool disappeared mid-iteration (§7).
		return nil, false
	}

	rootID, ok := snap.Tree.RuleRoot(pool.CrushRuleID)
	if !ok {
		return nil, false
	}
	if cfg.Profile == placement.ProfileScaleDown {
		if _, overlapped := analysis.Overlaps[rootID]; overlapped {
			return nil, false
		}
	}

	st := analysis.RootMap[rootID]
	if st == nil || st.Capacity == 0 {
		return nil, false
	}

	opts := pool.Options.Normalized()
	rawUsedRate := snap.RawUsedRate(id)

	// Ratio takes precedence over bytes when both are set (§4.1, §7).
	var targetBytes int64
	if opts.TargetSizeRatio == 0.0 {
		targetBytes = opts.TargetSizeBytes
	}

	rr := ratio.Compute(stats.StoredBytes, targetBytes, rawUsedRate, opts.TargetSizeRatio, st.TotalTargetRatio, st.TotalTargetBytes, st.Capacity)

	replication := pool.Replication
	if replication <= 0 {
		replication = 1
	}

	var tr pgtarget.Result
	switch cfg.Profile {
	case placement.ProfileScaleDown:
		if isUsed {
			tr = pgtarget.ScaleDownPass1(rr.EffectiveCapacityRatio, st, replication, opts.PGAutoscaleBias, opts.PGNumMin)
			if !tr.Decided {
				return nil, true // deferred
			}
		} else {
			tr = pgtarget.ScaleDownPass2(st, replication, opts.PGAutoscaleBias, opts.PGNumMin)
		}
	default:
		tr = pgtarget.ScaleUp(rr.EffectiveCapacityRatio, st.PGTarget, replication, opts.PGAutoscaleBias, opts.PGNumMin)
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = decide.DefaultThreshold
	}
	would := decide.WouldAdjust(tr.FinalPGTarget, int64(pool.PGNumTarget), tr.FinalRatio, threshold)

	return &PoolResult{
		PoolID:               id,
		PoolName:             pool.Name,
		CrushRootID:          rootID,
		Mode:                 pool.AutoscaleMode,
		PGNumTarget:          pool.PGNumTarget,
		LogicalUsed:          stats.StoredBytes,
		TargetBytes:          targetBytes,
		RawUsedRate:          rawUsedRate,
		SubtreeCapacity:      st.Capacity,
		ActualCapacityRatio:  rr.ActualCapacityRatio,
		CapacityRatio:        rr.CapacityRatio,
		TargetRatio:          opts.TargetSizeRatio,
		EffectiveTargetRatio: rr.EffectiveTargetRatio,
		Bias:                 opts.PGAutoscaleBias,
		PGNumIdeal:           int64(tr.PoolPGTarget),
		PGNumFinal:           tr.FinalPGTarget,
		WouldAdjust:          would,
	}, true
}
