package autoscaler

import (
	"context"
	"strconv"

	"github.com/cephstor/pgautoscaler/pkg/placement"
)

// ProgressEvent tracks one in-flight pg_num transition (spec §3, §4.5
// step 6). The control task owns this table exclusively; no external
// writer is permitted (spec §5).
type ProgressEvent struct {
	ID          string
	PoolID      int64
	Source      int64 // pg_num at the time the event was created
	Destination int64 // final_pg_target at the time the event was created
}

// ProgressTable is the in-memory, control-task-owned set of tracked
// events, keyed by pool id (one in-flight event per pool at a time,
// mirroring "create or reset a Progress Event").
type ProgressTable struct {
	events map[int64]*ProgressEvent
}

// NewProgressTable returns an empty table.
func NewProgressTable() *ProgressTable {
	return &ProgressTable{events: make(map[int64]*ProgressEvent)}
}

// Start creates or resets the event tracking a pool's transition from
// source to destination (spec §4.5 step 6).
func (t *ProgressTable) Start(poolID int64, eventID string, source, destination int64) *ProgressEvent {
	ev := &ProgressEvent{ID: eventID, PoolID: poolID, Source: source, Destination: destination}
	t.events[poolID] = ev
	return ev
}

// Run executes the progress pass (spec §4.5.1): for each tracked event,
// look up the pool's current pg_num; complete and drop the event if the
// pool is gone, the transition finished, or it was a no-op to begin
// with. Otherwise publish the fractional progress toward destination.
func (t *ProgressTable) Run(ctx context.Context, bus placement.ProgressBus, pools map[int64]placement.Pool) {
	for poolID, ev := range t.events {
		pool, ok := pools[poolID]
		pgNum := int64(pool.PGNum)
		if !ok || int64(pool.PGNum) == int64(pool.PGNumTarget) || ev.Source == ev.Destination {
			bus.Complete(ctx, ev.ID)
			delete(t.events, poolID)
			continue
		}

		progress := float64(ev.Source-pgNum) / float64(ev.Source-ev.Destination)
		bus.Update(ctx, ev.ID, progressMessage(pool.Name, pgNum, ev.Destination), progress, poolID)
	}
}

func progressMessage(name string, current, destination int64) string {
	verb := "increasing"
	if destination < current {
		verb = "decreasing"
	}
	return "PG autoscaler " + verb + " pool " + name + " PGs from " + strconv.FormatInt(current, 10) + " to " + strconv.FormatInt(destination, 10)
}
