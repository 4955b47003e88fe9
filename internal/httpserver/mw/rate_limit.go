package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/MrSnakeDoc/marktrabit/internal/utils"
)

// RateLimit allows perMinute requests per client IP. trustProxy selects
// the same IP resolution as AllowOnlyCIDRS.
func RateLimit(perMinute int, trustProxy bool) func(http.Handler) http.Handler {
	if perMinute < 1 {
		perMinute = 1
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return utils.ClientIP(r, trustProxy), nil
		}),
	)
}
