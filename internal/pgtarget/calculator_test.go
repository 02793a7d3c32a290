package pgtarget

import (
	"testing"

	"github.com/cephstor/pgautoscaler/pkg/placement"
)

func TestNearestPowerOfTwo_TieBreaksHigh(t *testing.T) {
	cases := []struct {
		n    float64
		want int64
	}{
		{96, 128},
		{95, 64},
		{97, 128},
		{1, 1},
		{2, 2},
		{3, 4},
		{5, 4},
		{1024, 1024},
	}
	for _, c := range cases {
		if got := NearestPowerOfTwo(c.n); got != c.want {
			t.Errorf("NearestPowerOfTwo(%v) = %v, want %v", c.n, got, c.want)
		}
	}
}

func TestNearestPowerOfTwo_IdempotentOnPowers(t *testing.T) {
	for _, p := range []float64{1, 2, 4, 8, 16, 32, 1024, 65536} {
		if got := NearestPowerOfTwo(p); got != int64(p) {
			t.Errorf("NearestPowerOfTwo(%v) = %v, want %v (idempotent)", p, got, p)
		}
	}
}

func TestNearestPowerOfTwo_Monotone(t *testing.T) {
	prev := NearestPowerOfTwo(0)
	for n := 1.0; n < 2000; n++ {
		cur := NearestPowerOfTwo(n)
		if cur < prev {
			t.Fatalf("not monotone at n=%v: prev=%v cur=%v", n, prev, cur)
		}
		prev = cur
	}
}

func TestScaleUp_ColdPoolFloorsAtPGNumMin(t *testing.T) {
	// scenario 1: 100 OSDs, mon_target_pg_per_osd=100 -> subtree pg_target=10000,
	// replication 3, logical_used=0 -> capacity_ratio 0 -> pool_pg_target 0 ->
	// final floors at pg_num_min=32.
	res := ScaleUp(0, 10000, 3, 1, 32)
	if res.FinalPGTarget != 32 {
		t.Errorf("FinalPGTarget = %v, want 32", res.FinalPGTarget)
	}
	if res.FinalRatio != 0 {
		t.Errorf("FinalRatio = %v, want 0", res.FinalRatio)
	}
}

func TestScaleDownTwoPass_Scenario3(t *testing.T) {
	// scenario 3: 4 pools, pg_target=4096, replication 1, bias 1.
	// Capacities: A 0.40, B 0.30, C 0.05, D 0.05. even_ratio = 0.25.
	st := &placement.SubtreeResourceStatus{PGTarget: 4096, PGLeft: 4096, PoolCount: 4}

	a := ScaleDownPass1(0.40, st, 1, 1, 32)
	if !a.Decided {
		t.Fatalf("pool A should be decided in pass 1")
	}
	if a.FinalRatio != 0.40 {
		t.Errorf("A FinalRatio = %v, want 0.40", a.FinalRatio)
	}

	b := ScaleDownPass1(0.30, st, 1, 1, 32)
	if !b.Decided {
		t.Fatalf("pool B should be decided in pass 1")
	}

	c := ScaleDownPass1(0.05, st, 1, 1, 32)
	if c.Decided {
		t.Fatalf("pool C should be deferred to pass 2")
	}
	d := ScaleDownPass1(0.05, st, 1, 1, 32)
	if d.Decided {
		t.Fatalf("pool D should be deferred to pass 2")
	}

	// used_pg A = floor(0.40*4096) = 1638, B = floor(0.30*4096) = 1228.
	wantPGLeft := int64(4096 - 1638 - 1228)
	if st.PGLeft != wantPGLeft {
		t.Errorf("PGLeft = %v, want %v", st.PGLeft, wantPGLeft)
	}
	if st.PoolUsed != 2 {
		t.Errorf("PoolUsed = %v, want 2", st.PoolUsed)
	}

	cRes := ScaleDownPass2(st, 1, 1, 32)
	dRes := ScaleDownPass2(st, 1, 1, 32)
	if cRes.FinalRatio != 0.5 || dRes.FinalRatio != 0.5 {
		t.Errorf("pass-2 final ratio = %v/%v, want 0.5/0.5", cRes.FinalRatio, dRes.FinalRatio)
	}
	if cRes.FinalPGTarget != 512 || dRes.FinalPGTarget != 512 {
		t.Errorf("pass-2 quantized target = %v/%v, want 512/512", cRes.FinalPGTarget, dRes.FinalPGTarget)
	}
}
