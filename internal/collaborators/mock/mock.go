// Package mock provides an in-memory fake of the four external collaborator
// interfaces (pkg/placement: SnapshotProvider, CommandTransport, ProgressBus,
// HealthBus), for running the control loop against fixture data without a
// live Ceph cluster.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/cephstor/pgautoscaler/pkg/placement"
)

// Tree is a flat fake PlacementTree: every crush rule maps to the same
// single root, and every OSD sits under it. Good enough for exercising the
// subtree analyzer without modeling a real CRUSH hierarchy.
type Tree struct {
	RootID int64
	OSDIDs []int64
}

func (t *Tree) RuleRoot(crushRuleID int64) (int64, bool) { return t.RootID, true }
func (t *Tree) OSDsUnderRoot(rootID int64) []int64       { return t.OSDIDs }

// Cluster is the mutable backing store for the mock collaborators. All
// fields are protected by mu; callers reach it only through Cluster's
// methods or through the collaborator adapters below.
type Cluster struct {
	mu sync.RWMutex

	releaseOK bool
	pools     map[int64]placement.Pool
	poolStat  map[int64]placement.PoolStats
	osdStat   map[int64]placement.OSDStats
	tree      *Tree

	commands []Command
	health   map[string]placement.HealthCheck
	events   map[string]progressState
}

// Command records one SetPGNum call the control loop issued, for test
// assertions.
type Command struct {
	Pool string
	Val  int
}

type progressState struct {
	Progress float64
	Message  string
	Done     bool
}

// NewCluster builds a Cluster seeded with n pools of varying sizes, matching
// the shape of a small real deployment: a mix of overprovisioned and
// underprovisioned pools so the autoscaler has real work to do. rngSeed
// makes the fixture reproducible across runs.
func NewCluster(n int, rngSeed int64) *Cluster {
	rng := rand.New(rand.NewSource(rngSeed))

	rootID := int64(1)
	osdIDs := make([]int64, 0, 12)
	osdStat := make(map[int64]placement.OSDStats, 12)
	for i := int64(1); i <= 12; i++ {
		osdIDs = append(osdIDs, i)
		osdStat[i] = placement.OSDStats{KB: (500 + rng.Int63n(500)) * 1024 * 1024} // ~500GB-1TB devices
	}

	pools := make(map[int64]placement.Pool, n)
	poolStat := make(map[int64]placement.PoolStats, n)
	for i := 1; i <= n; i++ {
		id := int64(i)
		used := rng.Int63n(200) * 1024 * 1024 * 1024 // up to 200GiB
		pools[id] = placement.Pool{
			ID:            id,
			Name:          fmt.Sprintf("pool-%d", id),
			Replication:   3,
			PGNum:         8,
			PGNumTarget:   8,
			CrushRuleID:   0,
			AutoscaleMode: placement.ModeOn,
			Options:       placement.PoolOptions{PGNumMin: placement.DefaultPGNumMin, PGAutoscaleBias: 1.0},
		}
		poolStat[id] = placement.PoolStats{StoredBytes: used}
	}

	return &Cluster{
		releaseOK: true,
		pools:     pools,
		poolStat:  poolStat,
		osdStat:   osdStat,
		tree:      &Tree{RootID: rootID, OSDIDs: osdIDs},
		health:    make(map[string]placement.HealthCheck),
		events:    make(map[string]progressState),
	}
}

// SetReleaseOK toggles the minimum-release gate consumed by the control
// loop's short-circuit check (spec §4.5 step 2).
func (c *Cluster) SetReleaseOK(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseOK = ok
}

// Pools returns a snapshot copy of the current pool table.
func (c *Cluster) Pools() map[int64]placement.Pool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int64]placement.Pool, len(c.pools))
	for k, v := range c.pools {
		out[k] = v
	}
	return out
}

// Commands returns every SetPGNum call recorded so far.
func (c *Cluster) Commands() []Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

// HealthChecks returns the most recently published health-check batch.
func (c *Cluster) HealthChecks() map[string]placement.HealthCheck {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]placement.HealthCheck, len(c.health))
	for k, v := range c.health {
		out[k] = v
	}
	return out
}

// SnapshotProvider adapts Cluster to placement.SnapshotProvider.
type SnapshotProvider struct{ C *Cluster }

func (p SnapshotProvider) Snapshot(ctx context.Context) (placement.ClusterSnapshot, error) {
	c := p.C
	c.mu.RLock()
	defer c.mu.RUnlock()

	pools := make(map[int64]placement.Pool, len(c.pools))
	for k, v := range c.pools {
		pools[k] = v
	}
	poolStat := make(map[int64]placement.PoolStats, len(c.poolStat))
	for k, v := range c.poolStat {
		poolStat[k] = v
	}
	osdStat := make(map[int64]placement.OSDStats, len(c.osdStat))
	for k, v := range c.osdStat {
		osdStat[k] = v
	}

	return placement.ClusterSnapshot{
		ClusterReleaseAtLeastMinimum: c.releaseOK,
		Pools:                        pools,
		Tree:                         c.tree,
		PoolStat:                     poolStat,
		OSDStat:                      osdStat,
		RawUsedRate: func(poolID int64) float64 {
			if pool, ok := pools[poolID]; ok {
				return pool.Replication
			}
			return 1.0
		},
	}, nil
}

// CommandTransport adapts Cluster to placement.CommandTransport, applying
// the requested pg_num immediately (there is no real async split/merge to
// simulate; PGNum jumps straight to the target so repeated ticks converge).
type CommandTransport struct{ C *Cluster }

func (t CommandTransport) SetPGNum(ctx context.Context, pool string, val int) (int, string, string, error) {
	c := t.C
	c.mu.Lock()
	defer c.mu.Unlock()

	c.commands = append(c.commands, Command{Pool: pool, Val: val})
	for id, p := range c.pools {
		if p.Name == pool {
			p.PGNumTarget = val
			p.PGNum = val
			c.pools[id] = p
			return 0, fmt.Sprintf("set pool %d pg_num to %d", id, val), "", nil
		}
	}
	return -2, "", "", fmt.Errorf("mock: pool %q not found", pool)
}

// ProgressBus adapts Cluster to placement.ProgressBus.
type ProgressBus struct{ C *Cluster }

func (b ProgressBus) Update(ctx context.Context, evID, msg string, progress float64, poolID int64) {
	c := b.C
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[evID] = progressState{Progress: progress, Message: msg}
}

func (b ProgressBus) Complete(ctx context.Context, evID string) {
	c := b.C
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.events, evID)
}

// HealthBus adapts Cluster to placement.HealthBus.
type HealthBus struct{ C *Cluster }

func (h HealthBus) SetHealthChecks(ctx context.Context, checks map[string]placement.HealthCheck) {
	c := h.C
	c.mu.Lock()
	defer c.mu.Unlock()
	c.health = checks
}
