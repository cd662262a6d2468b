package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/delordemm1/notes-api/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouteRegistrar is implemented by every module handler.
type RouteRegistrar interface {
	RegisterRoutes(api huma.API)
}

type healthResponse struct {
	Body struct {
		Status      string    `json:"status"`
		Timestamp   time.Time `json:"timestamp"`
		Environment string    `json:"environment"`
	}
}

// New creates the router, mounts the module routes and the health check.
func New(cfg *config.Config, log *slog.Logger, modules ...RouteRegistrar) chi.Router {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	// Rate limits key on RemoteAddr, so forwarded headers are honored only
	// when a proxy in front is known to overwrite them.
	if cfg.Server.TrustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	apiConfig := huma.DefaultConfig("Notes API", "1.0.0")
	apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	api := humachi.New(router, apiConfig)

	for _, m := range modules {
		m.RegisterRoutes(api)
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health Check",
		Description: "Responds with the server's health status.",
	}, func(ctx context.Context, _ *struct{}) (*healthResponse, error) {
		resp := &healthResponse{}
		resp.Body.Status = "ok"
		resp.Body.Timestamp = time.Now().UTC()
		resp.Body.Environment = cfg.Server.Env
		return resp, nil
	})

	log.Debug("routes registered", "modules", len(modules))
	return router
}
