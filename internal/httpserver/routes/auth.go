package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/mw"
)

func init() { Register(registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	limited := r.With(mw.RateLimit(d.RateLimit, d.TrustProxy))

	limited.With(middleware.Timeout(d.RequestTimeout)).Get("/login", handlers.LoginPage(d))
	limited.With(middleware.Timeout(d.RequestTimeout)).Post("/login", handlers.Login(d))
	limited.Get(handlers.CallbackPath, handlers.Callback(d))

	r.With(middleware.Timeout(d.RequestTimeout)).Post("/logout", handlers.Logout(d))
}
