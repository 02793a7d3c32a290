// Package handler holds the HTTP handlers for the PG autoscaler's status
// API, one handler struct per resource, each with its own constructor.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/cephstor/pgautoscaler/internal/autoscaler"
	"github.com/cephstor/pgautoscaler/pkg/placement"
)

// Loop is the subset of *autoscaler.Loop the PoolsHandler needs, kept as an
// interface so handler tests can fake it.
type Loop interface {
	SetProfile(profile placement.Profile)
}

// PoolsHandler serves the pg-autoscaler status and profile endpoints.
type PoolsHandler struct {
	cache *autoscaler.ResultCache
	loop  Loop
}

func NewPoolsHandler(cache *autoscaler.ResultCache, loop Loop) *PoolsHandler {
	return &PoolsHandler{cache: cache, loop: loop}
}

// GetStatus serves GET /api/v1/pools/status, matching `ceph osd pool
// autoscale-status`'s table or JSON rendering (spec §6).
func (h *PoolsHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	results := h.cache.Get()

	if r.URL.Query().Get("format") == "plain" {
		verbose := r.URL.Query().Get("verbose") == "true"
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(autoscaler.RenderStatusTable(results, verbose)))
		return
	}

	body, err := autoscaler.RenderStatusJSON(results)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

type setProfileRequest struct {
	Profile string `json:"profile"`
}

// SetProfile serves PUT /api/v1/profile, matching `ceph osd pool
// set-autoscale-profile` (spec §6 "set profile" command).
func (h *PoolsHandler) SetProfile(w http.ResponseWriter, r *http.Request) {
	var body setProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	profile := placement.Profile(body.Profile)
	if profile != placement.ProfileScaleUp && profile != placement.ProfileScaleDown {
		http.Error(w, "profile must be scale-up or scale-down", http.StatusBadRequest)
		return
	}

	h.loop.SetProfile(profile)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "profile": string(profile)})
}
