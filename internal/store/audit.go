package store

import (
	"database/sql"
	"log/slog"
	"time"
)

// SizingDecision is one row of the sizing_decisions audit log: a snapshot
// of a pool's computed result the moment the control loop acted on it
// (spec §4.5 step 6).
type SizingDecision struct {
	Timestamp            int64
	PoolID               int64
	PoolName             string
	Mode                 string
	PGNumTarget          int
	PGNumFinal           int64
	CapacityRatio        float64
	EffectiveTargetRatio float64
	Applied              bool // true if a mutation command was issued (mode "on"); false if only logged (mode "warn")
}

// RatioSample is one row of the pool_ratio_samples time series, taken once
// per control-loop iteration regardless of whether an adjustment fired.
type RatioSample struct {
	Timestamp            int64
	PoolID               int64
	CapacityRatio        float64
	EffectiveTargetRatio float64
}

// AuditStore persists sizing decisions, ratio samples, and health-check
// transitions via the async Writer so the control loop's hot path never
// blocks on disk I/O.
type AuditStore struct {
	writer *Writer
}

// NewAuditStore creates an AuditStore. writer may be nil, in which case
// all recording methods are no-ops.
func NewAuditStore(writer *Writer) *AuditStore {
	return &AuditStore{writer: writer}
}

// RecordDecision enqueues one sizing_decisions row.
func (a *AuditStore) RecordDecision(d SizingDecision) {
	if a.writer == nil {
		return
	}
	a.writer.Enqueue(func(db *sql.DB) {
		if _, err := db.Exec(
			`INSERT INTO sizing_decisions
				(timestamp, pool_id, pool_name, mode, pg_num_target, pg_num_final, capacity_ratio, effective_target_ratio, applied)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.Timestamp, d.PoolID, d.PoolName, d.Mode, d.PGNumTarget, d.PGNumFinal, d.CapacityRatio, d.EffectiveTargetRatio, d.Applied,
		); err != nil {
			slog.Error("audit store: insert sizing_decisions", "pool", d.PoolName, "error", err)
		}
	})
}

// RecordRatioSample enqueues one pool_ratio_samples row.
func (a *AuditStore) RecordRatioSample(s RatioSample) {
	if a.writer == nil {
		return
	}
	a.writer.Enqueue(func(db *sql.DB) {
		if _, err := db.Exec(
			`INSERT INTO pool_ratio_samples (timestamp, pool_id, capacity_ratio, effective_target_ratio) VALUES (?, ?, ?, ?)`,
			s.Timestamp, s.PoolID, s.CapacityRatio, s.EffectiveTargetRatio,
		); err != nil {
			slog.Error("audit store: insert pool_ratio_samples", "pool", s.PoolID, "error", err)
		}
	})
}

// RecordHealthCheckEvent enqueues one health_check_events row, typically
// called once per code present in a freshly published health-check batch
// (spec §4.5 step 7).
func (a *AuditStore) RecordHealthCheckEvent(code, severity, summary string) {
	if a.writer == nil {
		return
	}
	ts := time.Now().Unix()
	a.writer.Enqueue(func(db *sql.DB) {
		if _, err := db.Exec(
			`INSERT INTO health_check_events (timestamp, code, severity, summary) VALUES (?, ?, ?, ?)`,
			ts, code, severity, summary,
		); err != nil {
			slog.Error("audit store: insert health_check_events", "code", code, "error", err)
		}
	})
}

// GetRecentDecisions returns sizing decisions for a pool within the last
// `since` duration, ordered ascending, for status/debugging surfaces.
func (a *AuditStore) GetRecentDecisions(db *sql.DB, poolID int64, since time.Duration) []SizingDecision {
	if db == nil {
		return nil
	}
	cutoff := time.Now().Add(-since).Unix()
	rows, err := db.Query(
		`SELECT timestamp, pool_id, pool_name, mode, pg_num_target, pg_num_final, capacity_ratio, effective_target_ratio, applied
		 FROM sizing_decisions WHERE pool_id = ? AND timestamp >= ? ORDER BY timestamp ASC`,
		poolID, cutoff,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []SizingDecision
	for rows.Next() {
		var d SizingDecision
		var applied int
		if err := rows.Scan(&d.Timestamp, &d.PoolID, &d.PoolName, &d.Mode, &d.PGNumTarget, &d.PGNumFinal, &d.CapacityRatio, &d.EffectiveTargetRatio, &applied); err != nil {
			continue
		}
		d.Applied = applied != 0
		out = append(out, d)
	}
	return out
}
