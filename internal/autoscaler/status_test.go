package autoscaler

import (
	"strings"
	"testing"

	"github.com/cephstor/pgautoscaler/pkg/placement"
)

func TestRenderStatusTable_ContainsExpectedColumns(t *testing.T) {
	results := []PoolResult{
		{PoolName: "rbd", PGNumTarget: 32, PGNumFinal: 128, Mode: placement.ModeOn},
	}
	out := RenderStatusTable(results, false)
	if !strings.Contains(out, "POOL") || !strings.Contains(out, "PG_NUM") {
		t.Fatalf("missing expected headers: %q", out)
	}
	if !strings.Contains(out, "rbd") {
		t.Fatalf("missing pool row: %q", out)
	}
	if strings.Contains(out, "IDEAL") {
		t.Fatalf("did not expect IDEAL column in non-verbose mode: %q", out)
	}
}

func TestRenderStatusTable_VerboseAddsIdealColumn(t *testing.T) {
	results := []PoolResult{
		{PoolName: "rbd", PGNumIdeal: 90, PGNumFinal: 128, Mode: placement.ModeOn},
	}
	out := RenderStatusTable(results, true)
	if !strings.Contains(out, "IDEAL") {
		t.Fatalf("expected IDEAL column in verbose mode: %q", out)
	}
}

func TestRenderStatusTable_BlanksNewPGNumWhenNotWouldAdjust(t *testing.T) {
	results := []PoolResult{
		{PoolName: "rbd", PGNumTarget: 32, PGNumFinal: 128, WouldAdjust: false, Mode: placement.ModeOn},
	}
	out := RenderStatusTable(results, false)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + one row, got %d lines: %q", len(lines), out)
	}
	if strings.Contains(lines[1], "128") {
		t.Fatalf("did not expect new pg_num 128 to be printed when would_adjust is false: %q", lines[1])
	}
}

func TestRenderStatusTable_PrintsNewPGNumWhenWouldAdjust(t *testing.T) {
	results := []PoolResult{
		{PoolName: "rbd", PGNumTarget: 32, PGNumFinal: 128, WouldAdjust: true, Mode: placement.ModeOn},
	}
	out := RenderStatusTable(results, false)
	if !strings.Contains(out, "128") {
		t.Fatalf("expected new pg_num 128 to be printed when would_adjust is true: %q", out)
	}
}

func TestRenderStatusTable_NoBulkColumn(t *testing.T) {
	results := []PoolResult{
		{PoolName: "rbd", PGNumTarget: 32, PGNumFinal: 128, Mode: placement.ModeOn},
	}
	out := RenderStatusTable(results, false)
	if strings.Contains(out, "BULK") || strings.Contains(out, "false") {
		t.Fatalf("did not expect a constant BULK column: %q", out)
	}
}

func TestRenderStatusJSON_RoundTripsFields(t *testing.T) {
	results := []PoolResult{
		{PoolName: "rbd", PGNumTarget: 32, PGNumFinal: 128, WouldAdjust: true, Mode: placement.ModeOn},
	}
	out, err := RenderStatusJSON(results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"pool_name": "rbd"`) {
		t.Fatalf("missing pool_name field: %s", out)
	}
	if !strings.Contains(out, `"would_adjust": true`) {
		t.Fatalf("missing would_adjust field: %s", out)
	}
}
