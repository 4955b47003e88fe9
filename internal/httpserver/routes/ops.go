package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/mw"
)

func init() { Register(registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	ops := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))

	ops.Get("/healthz", handlers.Healthz(d))
	ops.Get("/readyz", handlers.Readyz(d))
	ops.Method("GET", "/metrics", handlers.Metrics(d))
	ops.With(d.Gate.Require).Get("/debug", handlers.Debug(d))
}
