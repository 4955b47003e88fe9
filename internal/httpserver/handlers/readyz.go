package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
)

const readyCheckTimeout = 2 * time.Second

type componentStatus struct {
	OK       bool   `json:"ok"`
	Critical bool   `json:"critical"`
	Latency  string `json:"latency"`
	Error    string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz runs every readiness probe in parallel. A failing critical probe
// answers 503; other failures only mark the service degraded.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		components := make(map[string]componentStatus, len(d.Checks))
		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, c := range d.Checks {
			wg.Add(1)
			go func(c deps.Check) {
				defer wg.Done()
				start := time.Now()
				err := c.Ping(ctx)
				st := componentStatus{
					OK:       err == nil,
					Critical: c.Critical,
					Latency:  time.Since(start).Round(time.Millisecond).String(),
				}
				if err != nil {
					st.Error = err.Error()
					d.Logger.Warn("readiness check failed",
						logger.String("component", c.Name),
						logger.Error(err))
				}
				mu.Lock()
				components[c.Name] = st
				mu.Unlock()
			}(c)
		}
		wg.Wait()

		resp := readyzResponse{Ready: true, Mode: "optimal", Components: components}
		for _, st := range components {
			if st.OK {
				continue
			}
			if st.Critical {
				resp.Ready = false
				resp.Mode = "critical"
				break
			}
			resp.Mode = "degraded"
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
