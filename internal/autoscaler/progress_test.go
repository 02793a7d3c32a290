package autoscaler

import (
	"context"
	"testing"

	"github.com/cephstor/pgautoscaler/pkg/placement"
)

type fakeProgressBus struct {
	updates   []string
	completed []string
}

func (f *fakeProgressBus) Update(ctx context.Context, evID, msg string, progress float64, poolID int64) {
	f.updates = append(f.updates, evID)
}

func (f *fakeProgressBus) Complete(ctx context.Context, evID string) {
	f.completed = append(f.completed, evID)
}

func TestProgressTable_CompletesWhenTargetReached(t *testing.T) {
	pt := NewProgressTable()
	pt.Start(1, "ev1", 32, 128)

	pools := map[int64]placement.Pool{
		1: {ID: 1, Name: "rbd", PGNum: 128, PGNumTarget: 128},
	}
	bus := &fakeProgressBus{}
	pt.Run(context.Background(), bus, pools)

	if len(bus.completed) != 1 || bus.completed[0] != "ev1" {
		t.Fatalf("expected ev1 completed, got %v", bus.completed)
	}
	if _, tracked := pt.events[1]; tracked {
		t.Error("expected event dropped from table")
	}
}

func TestProgressTable_CompletesWhenPoolGone(t *testing.T) {
	pt := NewProgressTable()
	pt.Start(1, "ev1", 32, 128)

	bus := &fakeProgressBus{}
	pt.Run(context.Background(), bus, map[int64]placement.Pool{})

	if len(bus.completed) != 1 {
		t.Fatalf("expected completion on pool disappearance, got %v", bus.completed)
	}
}

func TestProgressTable_CompletesWhenSourceEqualsDestination(t *testing.T) {
	pt := NewProgressTable()
	pt.Start(1, "ev1", 64, 64)

	pools := map[int64]placement.Pool{
		1: {ID: 1, Name: "rbd", PGNum: 32, PGNumTarget: 128},
	}
	bus := &fakeProgressBus{}
	pt.Run(context.Background(), bus, pools)

	if len(bus.completed) != 1 {
		t.Fatalf("expected completion on no-op event, got %v", bus.completed)
	}
}

func TestProgressTable_UpdatesFractionalProgress(t *testing.T) {
	pt := NewProgressTable()
	pt.Start(1, "ev1", 128, 32) // shrinking from 128 to 32

	pools := map[int64]placement.Pool{
		1: {ID: 1, Name: "rbd", PGNum: 64, PGNumTarget: 32}, // halfway there
	}
	bus := &fakeProgressBus{}
	pt.Run(context.Background(), bus, pools)

	if len(bus.updates) != 1 || bus.updates[0] != "ev1" {
		t.Fatalf("expected ev1 update, got %v", bus.updates)
	}
	if len(bus.completed) != 0 {
		t.Fatalf("did not expect completion mid-transition, got %v", bus.completed)
	}
}
