package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/auth"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
)

// keepAlive keeps idle proxies from closing the stream.
const keepAlive = 25 * time.Second

// streamEvent is what the page sees. Tokens never leave the server.
type streamEvent struct {
	Type          string `json:"type"`
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Reload        bool   `json:"reload,omitempty"`
}

// Events streams session changes for the current browser session as
// Server-Sent Events. The subscription is released on every exit path.
func Events(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sid := auth.SIDFrom(ctx)

		rc := http.NewResponseController(w)
		// The server write timeout would cut the stream.
		if err := rc.SetWriteDeadline(time.Time{}); err != nil {
			d.Logger.Debug("event stream: cannot clear write deadline", logger.Error(err))
		}

		decisions := make(chan auth.Decision, 8)
		release, err := d.Gate.Watch(ctx, sid, func(dec auth.Decision) {
			select {
			case decisions <- dec:
			default:
			}
		})
		if err != nil {
			d.Logger.Error("event stream: subscribe failed", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		defer release()

		d.Metrics.StreamOpened()
		defer d.Metrics.StreamClosed()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-d.Closing:
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			case dec := <-decisions:
				ev := streamEvent{
					Type:          string(dec.Event),
					Authenticated: dec.Authenticated,
					Email:         dec.User().Email,
				}
				// Any event carrying a session refreshes the identity and the
				// list before the page is told to reload.
				if dec.Authenticated {
					if _, err := d.Dashboard.Load(ctx, sid, dec.Session); err != nil {
						d.Logger.Warn("event stream: reload failed",
							logger.String("event", string(dec.Event)),
							logger.Error(err))
					}
					ev.Reload = true
				}
				payload, _ := json.Marshal(ev)
				if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
				d.Metrics.SessionEvent(string(dec.Event))

				if !dec.Authenticated {
					d.Dashboard.Forget(ctx, sid)
					return
				}
			}
		}
	}
}
