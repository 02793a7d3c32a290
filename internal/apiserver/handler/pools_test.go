package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cephstor/pgautoscaler/internal/autoscaler"
	"github.com/cephstor/pgautoscaler/pkg/placement"
)

type fakeLoop struct{ lastProfile placement.Profile }

func (f *fakeLoop) SetProfile(profile placement.Profile) { f.lastProfile = profile }

func TestPoolsHandler_GetStatus_JSON(t *testing.T) {
	cache := autoscaler.NewResultCache()
	cache.Set([]autoscaler.PoolResult{{PoolID: 1, PoolName: "rbd", PGNumFinal: 64}})

	h := NewPoolsHandler(cache, &fakeLoop{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pools/status", nil)
	rec := httptest.NewRecorder()
	h.GetStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(rows) != 1 || rows[0]["pool_name"] != "rbd" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestPoolsHandler_GetStatus_PlainFormat(t *testing.T) {
	cache := autoscaler.NewResultCache()
	cache.Set([]autoscaler.PoolResult{{PoolID: 1, PoolName: "rbd", PGNumFinal: 64}})

	h := NewPoolsHandler(cache, &fakeLoop{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pools/status?format=plain", nil)
	rec := httptest.NewRecorder()
	h.GetStatus(rec, req)

	if !strings.Contains(rec.Body.String(), "rbd") {
		t.Fatalf("expected table output to contain pool name, got %s", rec.Body.String())
	}
}

func TestPoolsHandler_SetProfile_Valid(t *testing.T) {
	loop := &fakeLoop{}
	h := NewPoolsHandler(autoscaler.NewResultCache(), loop)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", strings.NewReader(`{"profile":"scale-down"}`))
	rec := httptest.NewRecorder()
	h.SetProfile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if loop.lastProfile != placement.ProfileScaleDown {
		t.Fatalf("profile = %v, want scale-down", loop.lastProfile)
	}
}

func TestPoolsHandler_SetProfile_Invalid(t *testing.T) {
	h := NewPoolsHandler(autoscaler.NewResultCache(), &fakeLoop{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", strings.NewReader(`{"profile":"bogus"}`))
	rec := httptest.NewRecorder()
	h.SetProfile(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
