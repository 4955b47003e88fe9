package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/marktrabit/internal/auth"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
)

type debugResponse struct {
	User       string        `json:"user"`
	Configured deps.Presence `json:"configured"`
	Version    string        `json:"version"`
}

// Debug shows which settings are present. Values are never rendered.
func Debug(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var email string
		if sess := auth.SessionFrom(r.Context()); sess != nil {
			email = sess.User.Email
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(debugResponse{
			User:       email,
			Configured: d.Presence,
			Version:    d.Version,
		})
	}
}
