package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Per-pool sizing metrics (spec §6 "status" row fields).
	PoolPGNumTarget = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pgautoscaler",
		Name:      "pool_pg_num_target",
		Help:      "Current pg_num_target for the pool",
	}, []string{"pool"})

	PoolPGNumFinal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pgautoscaler",
		Name:      "pool_pg_num_final",
		Help:      "Computed ideal pg_num for the pool this iteration",
	}, []string{"pool"})

	PoolCapacityRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pgautoscaler",
		Name:      "pool_capacity_ratio",
		Help:      "Fraction of subtree capacity this pool occupies or reserves",
	}, []string{"pool"})

	PoolEffectiveTargetRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pgautoscaler",
		Name:      "pool_effective_target_ratio",
		Help:      "Normalized target_size_ratio after subtree reservation accounting",
	}, []string{"pool"})

	PoolWouldAdjust = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pgautoscaler",
		Name:      "pool_would_adjust",
		Help:      "1 if the pool's final pg_num crosses the hysteresis threshold this iteration, else 0",
	}, []string{"pool"})

	// Subtree-level metrics (spec §3, §4.1).
	SubtreeCapacityBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pgautoscaler",
		Name:      "subtree_capacity_bytes",
		Help:      "Aggregate raw capacity of a placement subtree",
	}, []string{"root"})

	SubtreeOverlapped = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pgautoscaler",
		Name:      "subtree_overlapped",
		Help:      "1 if this root is part of a detected OSD-set overlap, else 0",
	}, []string{"root"})

	// Control loop health and activity counters.
	IterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pgautoscaler",
		Name:      "iterations_total",
		Help:      "Total control loop iterations completed",
	})

	IterationsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pgautoscaler",
		Name:      "iterations_skipped_total",
		Help:      "Total iterations short-circuited before sizing",
	}, []string{"reason"}) // "release_below_minimum", "snapshot_error"

	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pgautoscaler",
		Name:      "mutations_total",
		Help:      "Total pg_num mutation commands issued",
	}, []string{"pool", "result"}) // result: "applied", "error", "pool_gone"

	HealthChecksActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pgautoscaler",
		Name:      "health_checks_active",
		Help:      "1 if a given health-check code is currently raised, else 0",
	}, []string{"code"})

	IterationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pgautoscaler",
		Name:      "iteration_duration_seconds",
		Help:      "Wall-clock time of one control loop iteration",
		Buckets:   prometheus.DefBuckets,
	})
)
