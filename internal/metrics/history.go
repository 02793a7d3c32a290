package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/cephstor/pgautoscaler/internal/store"
)

// maxSeriesKeys caps the number of unique pool series to prevent unbounded
// memory growth from pool churn. Cleanup() prunes series with no recent
// data past this cap.
const maxSeriesKeys = 10_000

// History is an in-memory time series of per-pool capacity-ratio samples,
// with optional SQLite persistence via internal/store.AuditStore.
type History struct {
	mu        sync.RWMutex
	series    map[int64][]ratioPoint
	retention time.Duration
	audit     *store.AuditStore
	agg       *Aggregator
}

type ratioPoint struct {
	Timestamp            time.Time
	CapacityRatio        float64
	EffectiveTargetRatio float64
}

// NewHistory creates a History. audit may be nil, in which case samples are
// kept in-memory only.
func NewHistory(retention time.Duration, audit *store.AuditStore) *History {
	return &History{
		series:    make(map[int64][]ratioPoint),
		retention: retention,
		audit:     audit,
		agg:       NewAggregator(),
	}
}

// Record stores one sample for a pool, persisting it asynchronously when a
// backing AuditStore is configured.
func (h *History) Record(poolID int64, capacityRatio, effectiveTargetRatio float64) {
	now := time.Now()

	h.mu.Lock()
	h.series[poolID] = append(h.series[poolID], ratioPoint{
		Timestamp:            now,
		CapacityRatio:        capacityRatio,
		EffectiveTargetRatio: effectiveTargetRatio,
	})
	h.evict(poolID)
	h.mu.Unlock()

	if h.audit != nil {
		h.audit.RecordRatioSample(store.RatioSample{
			Timestamp:            now.Unix(),
			PoolID:               poolID,
			CapacityRatio:        capacityRatio,
			EffectiveTargetRatio: effectiveTargetRatio,
		})
	}
}

// Window summarizes a pool's capacity-ratio trend over the requested
// duration.
type Window struct {
	Start, End time.Time
	DataPoints int
	MeanRatio  float64
	P95Ratio   float64
	MaxRatio   float64
}

// GetWindow returns the capacity-ratio trend for a pool, or nil if there is
// no data in the window.
func (h *History) GetWindow(poolID int64, duration time.Duration) *Window {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := time.Now().Add(-duration)
	var filtered []ratioPoint
	for _, p := range h.series[poolID] {
		if p.Timestamp.After(cutoff) {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	values := make([]float64, len(filtered))
	for i, p := range filtered {
		values[i] = p.CapacityRatio
	}

	return &Window{
		Start:      filtered[0].Timestamp,
		End:        filtered[len(filtered)-1].Timestamp,
		DataPoints: len(filtered),
		MeanRatio:  h.agg.Mean(values),
		P95Ratio:   h.agg.Percentile(values, 95),
		MaxRatio:   h.agg.Max(values),
	}
}

// evict drops points for poolID older than the retention window. Caller
// must hold h.mu for writing.
func (h *History) evict(poolID int64) {
	cutoff := time.Now().Add(-h.retention)
	points := h.series[poolID]
	i := 0
	for i < len(points) && points[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		remaining := points[i:]
		if len(remaining) == 0 {
			delete(h.series, poolID)
		} else {
			h.series[poolID] = remaining
		}
	}
}

// Cleanup removes series with no data points within the retention window,
// and enforces maxSeriesKeys by evicting the stalest series first. Call
// this periodically (e.g. from the same cron job that prunes the audit DB).
func (h *History) Cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-h.retention)
	for key, points := range h.series {
		if len(points) == 0 || points[len(points)-1].Timestamp.Before(cutoff) {
			delete(h.series, key)
		}
	}

	if len(h.series) <= maxSeriesKeys {
		return
	}
	type keyAge struct {
		key int64
		ts  time.Time
	}
	entries := make([]keyAge, 0, len(h.series))
	for k, pts := range h.series {
		if len(pts) > 0 {
			entries = append(entries, keyAge{k, pts[len(pts)-1].Timestamp})
		} else {
			delete(h.series, k)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ts.Before(entries[j].ts) })
	for i := 0; i < len(entries)-maxSeriesKeys; i++ {
		delete(h.series, entries[i].key)
	}
}
