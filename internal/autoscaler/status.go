package autoscaler

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
)

// statusColumns is the plain-text column order for the "status" command.
// IDEAL mirrors a commented-out column in the original CLI table and is
// carried as an optional verbose column rather than a default one.
var statusColumns = []string{
	"POOL", "SIZE", "TARGET SIZE", "RATE", "RAW CAPACITY",
	"RATIO", "TARGET RATIO", "EFFECTIVE RATIO", "BIAS",
	"PG_NUM", "NEW PG_NUM", "AUTOSCALE",
}

// RenderStatusTable renders the plain-text status table (spec §6). When
// verbose is set, an additional IDEAL column (the unquantized pool_pg_target)
// is appended after NEW PG_NUM.
func RenderStatusTable(results []PoolResult, verbose bool) string {
	sorted := make([]PoolResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PoolName < sorted[j].PoolName })

	cols := statusColumns
	if verbose {
		cols = append(append([]string{}, statusColumns[:11]...), append([]string{"IDEAL"}, statusColumns[11:]...)...)
	}

	rows := make([][]string, 0, len(sorted)+1)
	rows = append(rows, cols)
	for _, r := range sorted {
		newPGNum := ""
		if r.WouldAdjust {
			newPGNum = fmt.Sprintf("%d", r.PGNumFinal)
		}
		row := []string{
			r.PoolName,
			formatBytes(r.LogicalUsed),
			formatBytes(r.TargetBytes),
			fmt.Sprintf("%.4g", r.RawUsedRate),
			formatBytes(r.SubtreeCapacity),
			fmt.Sprintf("%.4g", r.CapacityRatio),
			fmt.Sprintf("%.4g", r.TargetRatio),
			fmt.Sprintf("%.4g", r.EffectiveTargetRatio),
			fmt.Sprintf("%.4g", r.Bias),
			fmt.Sprintf("%d", r.PGNumTarget),
			newPGNum,
			string(r.Mode),
		}
		if verbose {
			row = append(append([]string{}, row[:11]...), append([]string{fmt.Sprintf("%.2f", float64(r.PGNumIdeal))}, row[11:]...)...)
		}
		rows = append(rows, row)
	}

	return renderTable(rows)
}

// RenderStatusJSON renders the structured-output variant of "status".
func RenderStatusJSON(results []PoolResult) (string, error) {
	type row struct {
		PoolName             string  `json:"pool_name"`
		LogicalUsed          int64   `json:"logical_used"`
		TargetBytes          int64   `json:"target_bytes"`
		RawUsedRate          float64 `json:"raw_used_rate"`
		SubtreeCapacity      int64   `json:"subtree_capacity"`
		CapacityRatio        float64 `json:"capacity_ratio"`
		TargetRatio          float64 `json:"target_ratio"`
		EffectiveTargetRatio float64 `json:"effective_target_ratio"`
		Bias                 float64 `json:"bias"`
		PGNumTarget          int     `json:"pg_num_target"`
		PGNumFinal           int64   `json:"pg_num_final"`
		WouldAdjust          bool    `json:"would_adjust"`
		AutoscaleMode        string  `json:"pg_autoscale_mode"`
	}

	sorted := make([]PoolResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PoolName < sorted[j].PoolName })

	out := make([]row, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, row{
			PoolName:             r.PoolName,
			LogicalUsed:          r.LogicalUsed,
			TargetBytes:          r.TargetBytes,
			RawUsedRate:          r.RawUsedRate,
			SubtreeCapacity:      r.SubtreeCapacity,
			CapacityRatio:        r.CapacityRatio,
			TargetRatio:          r.TargetRatio,
			EffectiveTargetRatio: r.EffectiveTargetRatio,
			Bias:                 r.Bias,
			PGNumTarget:          r.PGNumTarget,
			PGNumFinal:           r.PGNumFinal,
			WouldAdjust:          r.WouldAdjust,
			AutoscaleMode:        string(r.Mode),
		})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatBytes(n int64) string {
	return resource.NewQuantity(n, resource.BinarySI).String()
}

func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
		}
		b.WriteString("\n")
	}
	return b.String()
}
