package subtree

import (
	"testing"

	"github.com/cephstor/pgautoscaler/pkg/placement"
)

// fakeTree maps crush rule id -> root id, and root id -> OSD id set.
type fakeTree struct {
	ruleRoot map[int64]int64
	roots    map[int64][]int64
}

func (f fakeTree) RuleRoot(ruleID int64) (int64, bool) {
	r, ok := f.ruleRoot[ruleID]
	return r, ok
}

func (f fakeTree) OSDsUnderRoot(rootID int64) []int64 {
	return f.roots[rootID]
}

func unitRate(int64) float64 { return 1.0 }

func TestAnalyze_SinglePoolSingleRoot(t *testing.T) {
	pools := map[int64]placement.Pool{
		1: {ID: 1, Name: "rbd", CrushRuleID: 0, Replication: 3, PGNumTarget: 32},
	}
	tree := fakeTree{
		ruleRoot: map[int64]int64{0: 100},
		roots:    map[int64][]int64{100: {1, 2, 3}},
	}
	osdStats := map[int64]placement.OSDStats{1: {KB: 1000}, 2: {KB: 1000}, 3: {KB: 1000}}

	res := Analyze(pools, tree, osdStats, 100, unitRate)
	if len(res.RootMap) != 1 {
		t.Fatalf("expected 1 subtree, got %d", len(res.RootMap))
	}
	s := res.RootMap[100]
	if s.OSDCount != 3 {
		t.Errorf("OSDCount = %d, want 3", s.OSDCount)
	}
	if s.PGTarget != 300 {
		t.Errorf("PGTarget = %d, want 300", s.PGTarget)
	}
	if s.Capacity != 3*1000*1024 {
		t.Errorf("Capacity = %d, want %d", s.Capacity, 3*1000*1024)
	}
	if len(res.Overlaps) != 0 {
		t.Errorf("expected no overlaps, got %v", res.Overlaps)
	}
}

func TestAnalyze_OverlapFoldsRootsTransitively(t *testing.T) {
	// Pool A -> root 1 {osd 1,2}; pool B -> root 2 {osd 2,3} (overlaps A via osd 2);
	// pool C -> root 3 {osd 3,4} (overlaps B via osd 3, but not A directly).
	// All three roots must end up in the overlap set and in one subtree.
	pools := map[int64]placement.Pool{
		1: {ID: 1, CrushRuleID: 1},
		2: {ID: 2, CrushRuleID: 2},
		3: {ID: 3, CrushRuleID: 3},
	}
	tree := fakeTree{
		ruleRoot: map[int64]int64{1: 1, 2: 2, 3: 3},
		roots: map[int64][]int64{
			1: {1, 2},
			2: {2, 3},
			3: {3, 4},
		},
	}
	osdStats := map[int64]placement.OSDStats{1: {KB: 1}, 2: {KB: 1}, 3: {KB: 1}, 4: {KB: 1}}

	res := Analyze(pools, tree, osdStats, 1, unitRate)
	// Root ids still key the map individually, but overlapping roots all
	// resolve to the same underlying subtree record.
	if res.RootMap[1] != res.RootMap[2] || res.RootMap[2] != res.RootMap[3] {
		t.Fatalf("expected roots 1,2,3 to fold into the same subtree record")
	}
	for _, want := range []int64{1, 2, 3} {
		if _, ok := res.Overlaps[want]; !ok {
			t.Errorf("root %d missing from overlap set: %v", want, res.Overlaps)
		}
	}
}

func TestAnalyze_DeterministicAcrossRepeatedRuns(t *testing.T) {
	// Two disjoint subtrees s1{1,2} and s2{3,4} discovered first, then a
	// later pool whose OSD set {2,3} intersects both. Which one it folds
	// into must be the same on every run (spec §4.1: identical inputs must
	// produce identical mappings, including overlap sets).
	pools := map[int64]placement.Pool{
		1: {ID: 1, CrushRuleID: 1},
		2: {ID: 2, CrushRuleID: 2},
		3: {ID: 3, CrushRuleID: 3},
	}
	tree := fakeTree{
		ruleRoot: map[int64]int64{1: 1, 2: 2, 3: 3},
		roots: map[int64][]int64{
			1: {1, 2},
			2: {3, 4},
			3: {2, 3},
		},
	}
	osdStats := map[int64]placement.OSDStats{1: {KB: 1}, 2: {KB: 1}, 3: {KB: 1}, 4: {KB: 1}}

	first := Analyze(pools, tree, osdStats, 1, unitRate)
	if len(first.Overlaps) != 2 {
		t.Fatalf("expected exactly 2 roots in the overlap set, got %v", first.Overlaps)
	}
	// Root 1 (discovered first) must be the fold target, since the fold
	// scan walks discovery order: root 1, then root 2, then root 3.
	if first.RootMap[3] != first.RootMap[1] {
		t.Fatalf("expected root 3 to fold into root 1 (first discovered intersecting root), got folded into root 2's record")
	}

	for i := 0; i < 50; i++ {
		res := Analyze(pools, tree, osdStats, 1, unitRate)
		if (res.RootMap[3] == res.RootMap[1]) != (first.RootMap[3] == first.RootMap[1]) {
			t.Fatalf("run %d: fold target changed across runs", i)
		}
		if len(res.Overlaps) != len(first.Overlaps) {
			t.Fatalf("run %d: overlap set size changed across runs: %v vs %v", i, res.Overlaps, first.Overlaps)
		}
	}
}

func TestAnalyze_ReservationPrecedence(t *testing.T) {
	pools := map[int64]placement.Pool{
		1: {ID: 1, CrushRuleID: 0, Options: placement.PoolOptions{TargetSizeRatio: 0.5, TargetSizeBytes: 100}},
		2: {ID: 2, CrushRuleID: 0, Options: placement.PoolOptions{TargetSizeBytes: 200}},
	}
	tree := fakeTree{ruleRoot: map[int64]int64{0: 1}, roots: map[int64][]int64{1: {1}}}
	osdStats := map[int64]placement.OSDStats{1: {KB: 1000}}

	res := Analyze(pools, tree, osdStats, 10, unitRate)
	s := res.RootMap[1]
	if s.TotalTargetRatio != 0.5 {
		t.Errorf("TotalTargetRatio = %v, want 0.5 (ratio takes precedence over bytes)", s.TotalTargetRatio)
	}
	if s.TotalTargetBytes != 200 {
		t.Errorf("TotalTargetBytes = %d, want 200", s.TotalTargetBytes)
	}
}
