package placement

import "context"

// ClusterSnapshot is the immutable, point-in-time input to one control-loop
// iteration (spec §5: "input snapshots are taken at the start of the
// iteration and treated as immutable for its duration").
type ClusterSnapshot struct {
	// ClusterReleaseAtLeastMinimum reports whether the cluster's required
	// OSD release satisfies the autoscaler's minimum supported release
	// (spec §4.5 step 2). The real release-string comparison lives in the
	// snapshot provider; the core only consumes the boolean.
	ClusterReleaseAtLeastMinimum bool

	Pools    map[int64]Pool
	Tree     PlacementTree
	PoolStat map[int64]PoolStats // keyed by pool id; pools not present are "gone" (deletion race)
	OSDStat  map[int64]OSDStats  // keyed by OSD id

	// RawUsedRate returns the raw-used-rate multiplier for a pool (the
	// OSDMap.pool_raw_used_rate collaborator call). Replication pools
	// return their replica count; erasure-coded pools a fractional
	// overhead.
	RawUsedRate func(poolID int64) float64
}

// SnapshotProvider is the external "cluster snapshot provider" collaborator
// (spec §6): fetches the OSD map, pool table, pool stats and per-OSD stats.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (ClusterSnapshot, error)
}

// CommandTransport is the external command transport collaborator (spec
// §6): `mon_command({'osd pool set', pool, 'pg_num', val})`.
type CommandTransport interface {
	SetPGNum(ctx context.Context, pool string, val int) (rc int, out string, errOut string, err error)
}

// ProgressBus is the external progress-bus collaborator (spec §3, §6).
type ProgressBus interface {
	Update(ctx context.Context, evID, msg string, progress float64, poolID int64)
	Complete(ctx context.Context, evID string)
}

// HealthCheck is one entry of the health-check batch (spec §6).
type HealthCheck struct {
	Severity string
	Summary  string
	Count    int
	Detail   []string
}

// HealthBus is the external health-check bus collaborator (spec §6):
// `set_health_checks`, always called with the full replacement mapping.
type HealthBus interface {
	SetHealthChecks(ctx context.Context, checks map[string]HealthCheck)
}

// Health-check codes (spec §6).
const (
	HealthTooFewPGs           = "POOL_TOO_FEW_PGS"
	HealthTooManyPGs          = "POOL_TOO_MANY_PGS"
	HealthOvercommitted       = "POOL_TARGET_SIZE_BYTES_OVERCOMMITTED"
	HealthBytesAndRatioBothSet = "POOL_HAS_TARGET_SIZE_BYTES_AND_RATIO"
)
