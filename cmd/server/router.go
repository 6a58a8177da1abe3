package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	identityhandler "taskhub/internal/identity/handler"
	identityservice "taskhub/internal/identity/service"
	"taskhub/internal/platform/config"
	"taskhub/internal/platform/metrics"
	ratelimit "taskhub/internal/ratelimit/middleware"
	workspacehandler "taskhub/internal/workspace/handler"
	"taskhub/pkg/platform/httputil"
	"taskhub/pkg/platform/middleware/admin"
	"taskhub/pkg/platform/middleware/auth"
	"taskhub/pkg/platform/middleware/metadata"
	"taskhub/pkg/platform/middleware/request"
	"taskhub/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

type routerDeps struct {
	cfg       config.Server
	log       *slog.Logger
	metrics   *metrics.Metrics
	validator auth.TokenValidator
	identity  *identityservice.Service
	limiter   *ratelimit.Middleware
	identityH *identityhandler.Handler
	workspace *workspacehandler.Handler
	health    map[string]func(context.Context) error
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.log))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata(d.cfg.TrustedProxies))
	r.Use(request.Logger(d.log))
	r.Use(d.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthHandler(d.health))
	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(d.limiter.Limit("auth"))
		d.identityH.RegisterPublic(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.validator, d.identity, d.identity, d.log))
		d.identityH.RegisterAuthenticated(r)
		d.workspace.Register(r)
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireSuperuser(d.log))
			d.identityH.RegisterAdmin(r)
		})
	})
	return r
}

// healthHandler pings every configured dependency. Any failure answers 503
// with the failing component names.
func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := map[string]string{}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = "down"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "up"
		}
		overall := "ok"
		if code != http.StatusOK {
			overall = "degraded"
		}
		httputil.WriteJSON(w, code, map[string]any{"status": overall, "checks": status})
	}
}
