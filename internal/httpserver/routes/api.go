package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/mw"
)

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.CORS(d.AllowedOrigins))
		r.Use(mw.RateLimit(d.RateLimit, d.TrustProxy))
		r.Use(middleware.Timeout(d.RequestTimeout))
		r.Use(d.Gate.RequireAPI)

		r.Get("/bookmarks", handlers.APIList(d))
		r.Post("/bookmarks", handlers.APICreate(d))
		r.Delete("/bookmarks/{id}", handlers.APIDelete(d))
	})
}
