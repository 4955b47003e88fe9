package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/handlers"
)

func init() { Register(registerDashboard) }

func registerDashboard(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(d.Gate.Require)

		// The event stream lives as long as the page; no request timeout.
		r.Get("/events", handlers.Events(d))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(d.RequestTimeout))

			r.Get("/", handlers.Dashboard(d))
			r.Post("/bookmarks", handlers.AddBookmark(d))
			r.Post("/bookmarks/import", handlers.ImportBookmarks(d))
			r.Post("/bookmarks/{id}/delete", handlers.DeleteBookmark(d))
			r.Post("/notices/{id}/dismiss", handlers.DismissNotice(d))
			r.Post("/draft/clear", handlers.ClearDraft(d))
		})
	})
}
