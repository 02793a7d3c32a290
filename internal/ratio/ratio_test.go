package ratio

import "testing"

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestEffectiveTargetRatio_ZeroRatio(t *testing.T) {
	if got := EffectiveTargetRatio(0, 1.2, 0, 100); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestEffectiveTargetRatio_NormalizationOnly(t *testing.T) {
	// scenario 4: two pools set 0.6 each, R_total = 1.2 -> each effective 0.5
	if got := EffectiveTargetRatio(0.6, 1.2, 0, 1000); !approx(got, 0.5) {
		t.Errorf("got %v, want 0.5", got)
	}
}

func TestEffectiveTargetRatio_BytesReservation(t *testing.T) {
	// scenario 5: B_total/C = 0.5, ratio pool at 1.0 -> effective 0.5
	capacity := int64(1000)
	bTotal := int64(500)
	if got := EffectiveTargetRatio(1.0, 0, bTotal, capacity); !approx(got, 0.5) {
		t.Errorf("got %v, want 0.5", got)
	}
}

func TestEffectiveTargetRatio_NoCapacityNoBytesEffect(t *testing.T) {
	if got := EffectiveTargetRatio(0.4, 0, 0, 1000); !approx(got, 0.4) {
		t.Errorf("got %v, want 0.4 unchanged", got)
	}
}

func TestEffectiveTargetRatio_LEQ_RNormalized(t *testing.T) {
	// effective_target_ratio(r, R, B, C) <= r / R
	r, R, B, C := 0.8, 2.0, 300.0, 1000.0
	got := EffectiveTargetRatio(r, R, int64(B), int64(C))
	if got > r/R+1e-12 {
		t.Errorf("got %v, want <= %v", got, r/R)
	}
}

func TestCompute_ZeroCapacitySkipped(t *testing.T) {
	pr := Compute(100, 0, 1, 0, 0, 0, 0)
	if pr != (PoolRatios{}) {
		t.Errorf("expected zero-value result for zero capacity, got %+v", pr)
	}
}

func TestCompute_UsesMaxOfCapacityAndTargetRatio(t *testing.T) {
	// logical_used=0 but target_size_ratio effectively gives a nonzero ratio
	pr := Compute(0, 0, 3, 0.6, 1.2, 0, 1000)
	if !approx(pr.EffectiveCapacityRatio, 0.5) {
		t.Errorf("EffectiveCapacityRatio = %v, want 0.5", pr.EffectiveCapacityRatio)
	}
}
