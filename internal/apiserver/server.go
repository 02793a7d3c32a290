package apiserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cephstor/pgautoscaler/internal/apiserver/handler"
	"github.com/cephstor/pgautoscaler/internal/autoscaler"
	"github.com/cephstor/pgautoscaler/internal/config"
)

// NewServer creates a new HTTP server for the pg-autoscaler status API.
func NewServer(cfg *config.Config, cache *autoscaler.ResultCache, loop handler.Loop) *http.Server {
	router := NewRouter(cache, loop)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.APIServer.Address, cfg.APIServer.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
