package apiserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cephstor/pgautoscaler/internal/apiserver/handler"
	"github.com/cephstor/pgautoscaler/internal/autoscaler"
)

// NewRouter creates the API router for the pg-autoscaler status surface
// (spec §6 "status" and "set profile" commands exposed as HTTP).
func NewRouter(cache *autoscaler.ResultCache, loop handler.Loop) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	poolsHandler := handler.NewPoolsHandler(cache, loop)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pools/status", poolsHandler.GetStatus)
		r.Put("/profile", poolsHandler.SetProfile)
	})

	return r
}
