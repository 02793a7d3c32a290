package autoscaler

import (
	"context"
	"fmt"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	intmetrics "github.com/cephstor/pgautoscaler/internal/metrics"
	"github.com/cephstor/pgautoscaler/internal/store"
	"github.com/cephstor/pgautoscaler/pkg/placement"
)

// Loop is the Control Loop (spec §4.5): it implements manager.Runnable
// so it can be registered alongside any other periodic controller in
// the same manager.
type Loop struct {
	snapshots placement.SnapshotProvider
	commands  placement.CommandTransport
	progress  placement.ProgressBus
	health    placement.HealthBus

	sleepInterval time.Duration
	options       Options

	events *ProgressTable

	// History and Audit are optional (nil-safe) observability sinks: per-pool
	// capacity-ratio trend tracking and the sizing-decision audit log.
	History *intmetrics.History
	Audit   *store.AuditStore

	// OnTick, if set, runs after each iteration's health/progress steps with
	// the freshly computed results — used to publish a k8sreport.Reporter
	// Flush or any other per-iteration side effect external to the core.
	OnTick func(ctx context.Context, results []PoolResult)
}

// NewLoop wires the Control Loop's collaborators (spec §6) and initial
// options (spec §6 recognized configuration).
func NewLoop(snapshots placement.SnapshotProvider, commands placement.CommandTransport, progress placement.ProgressBus, health placement.HealthBus, sleepInterval time.Duration, options Options) *Loop {
	return &Loop{
		snapshots:     snapshots,
		commands:      commands,
		progress:      progress,
		health:        health,
		sleepInterval: sleepInterval,
		options:       options,
		events:        NewProgressTable(),
	}
}

// Name implements manager.Runnable.
func (l *Loop) Name() string { return "pg-autoscaler" }

// Start implements manager.Runnable: runs the loop until ctx is
// cancelled, sleeping sleepInterval between iterations (spec §5:
// "the only suspension point is the between-iteration wait, which is
// interruptible by a shutdown signal").
func (l *Loop) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("pg-autoscaler")
	ticker := time.NewTicker(l.sleepInterval)
	defer ticker.Stop()

	l.tick(ctx, logger)
	for {
		select {
		case <-ticker.C:
			l.tick(ctx, logger)
		case <-ctx.Done():
			return nil
		}
	}
}

// SetProfile updates the active autoscale profile (spec §6 "set
// profile" command). Idempotent.
func (l *Loop) SetProfile(profile placement.Profile) {
	l.options.Profile = profile
}

func (l *Loop) tick(ctx context.Context, logger interface {
	Error(err error, msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
}) {
	start := time.Now()
	intmetrics.IterationsTotal.Inc()
	defer func() { intmetrics.IterationDuration.Observe(time.Since(start).Seconds()) }()

	snap, err := l.snapshots.Snapshot(ctx)
	if err != nil {
		logger.Error(err, "failed to fetch cluster snapshot")
		intmetrics.IterationsSkippedTotal.WithLabelValues("snapshot_error").Inc()
		return
	}

	// Step 2: short-circuit below the minimum supported release.
	if !snap.ClusterReleaseAtLeastMinimum {
		logger.Info("skipping iteration: cluster release below minimum supported")
		intmetrics.IterationsSkippedTotal.WithLabelValues("release_below_minimum").Inc()
		return
	}

	// Steps 3-5: subtree analysis, ratio/target computation, hysteresis.
	results, rootMap := PoolStatus(snap, l.options)

	now := time.Now().Unix()
	// Step 6: mutate pools in "on" mode, accumulate warn-mode messages.
	for _, r := range results {
		intmetrics.PoolPGNumTarget.WithLabelValues(r.PoolName).Set(float64(r.PGNumTarget))
		intmetrics.PoolPGNumFinal.WithLabelValues(r.PoolName).Set(float64(r.PGNumFinal))
		intmetrics.PoolCapacityRatio.WithLabelValues(r.PoolName).Set(r.CapacityRatio)
		intmetrics.PoolEffectiveTargetRatio.WithLabelValues(r.PoolName).Set(r.EffectiveTargetRatio)
		intmetrics.PoolWouldAdjust.WithLabelValues(r.PoolName).Set(boolToFloat(r.WouldAdjust))

		if l.History != nil {
			l.History.Record(r.PoolID, r.CapacityRatio, r.EffectiveTargetRatio)
		}

		if !r.WouldAdjust {
			continue
		}
		switch r.Mode {
		case placement.ModeOn:
			pool, ok := snap.Pools[r.PoolID]
			if !ok {
				// Pool disappeared mid-iteration; skip the mutation (spec §9).
				intmetrics.MutationsTotal.WithLabelValues(r.PoolName, "pool_gone").Inc()
				continue
			}
			// Create/reset the progress event and publish it with initial
			// progress 0.0 before issuing the command: this happens
			// unconditionally, independent of whether the command below
			// succeeds (spec §4.5 step 6).
			evID := fmt.Sprintf("pg_num_adjust_%d", r.PoolID)
			l.events.Start(r.PoolID, evID, int64(pool.PGNum), r.PGNumFinal)
			l.progress.Update(ctx, evID, progressMessage(r.PoolName, int64(pool.PGNum), r.PGNumFinal), 0.0, r.PoolID)

			rc, _, errOut, err := l.commands.SetPGNum(ctx, r.PoolName, int(r.PGNumFinal))
			if err != nil || rc != 0 {
				logger.Error(err, "failed to set pg_num", "pool", r.PoolName, "rc", rc, "stderr", errOut)
				intmetrics.MutationsTotal.WithLabelValues(r.PoolName, "error").Inc()
				continue
			}
			intmetrics.MutationsTotal.WithLabelValues(r.PoolName, "applied").Inc()

			if l.Audit != nil {
				l.Audit.RecordDecision(store.SizingDecision{
					Timestamp: now, PoolID: r.PoolID, PoolName: r.PoolName, Mode: string(r.Mode),
					PGNumTarget: r.PGNumTarget, PGNumFinal: r.PGNumFinal,
					CapacityRatio: r.CapacityRatio, EffectiveTargetRatio: r.EffectiveTargetRatio, Applied: true,
				})
			}
		case placement.ModeWarn:
			// Accumulated into the health-check batch below.
			if l.Audit != nil {
				l.Audit.RecordDecision(store.SizingDecision{
					Timestamp: now, PoolID: r.PoolID, PoolName: r.PoolName, Mode: string(r.Mode),
					PGNumTarget: r.PGNumTarget, PGNumFinal: r.PGNumFinal,
					CapacityRatio: r.CapacityRatio, EffectiveTargetRatio: r.EffectiveTargetRatio, Applied: false,
				})
			}
		}
	}

	// Step 7: overcommit + misconfiguration health, one replacing batch.
	checks := BuildHealthChecks(snap.Pools, results, rootMap)
	l.health.SetHealthChecks(ctx, checks)
	intmetrics.HealthChecksActive.Reset()
	for code := range checks {
		intmetrics.HealthChecksActive.WithLabelValues(code).Set(1)
	}
	if l.Audit != nil {
		for code, chk := range checks {
			l.Audit.RecordHealthCheckEvent(code, chk.Severity, chk.Summary)
		}
	}

	// Step 8: progress pass (spec §4.5.1).
	l.events.Run(ctx, l.progress, snap.Pools)

	if l.OnTick != nil {
		l.OnTick(ctx, results)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
