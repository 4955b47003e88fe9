package mw

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/telemetry"
)

// Metrics records request counts and latency by route pattern. Raw paths
// are never used as labels.
func Metrics(m *telemetry.Metrics) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(ww, r)

			m.ObserveHTTP(routePattern(r), r.Method, strconv.Itoa(ww.code()), time.Since(start))
		})
	}
}
