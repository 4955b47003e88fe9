package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
)

// Metrics serves the Prometheus registry.
func Metrics(d deps.Deps) http.Handler {
	if d.Metrics == nil {
		return http.NotFoundHandler()
	}
	return d.Metrics.Handler()
}
