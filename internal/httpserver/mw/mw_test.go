package mw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marktrabit/internal/logger"
	"github.com/MrSnakeDoc/marktrabit/internal/telemetry"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAllowOnlyCIDRS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		remoteAddr string
		xff        string
		trustProxy bool
		want       int
	}{
		{name: "empty list passes", remoteAddr: "203.0.113.9:1234", want: http.StatusOK},
		{name: "inside cidr", allowed: []string{"10.0.0.0/8"}, remoteAddr: "10.1.2.3:1234", want: http.StatusOK},
		{name: "outside cidr", allowed: []string{"10.0.0.0/8"}, remoteAddr: "203.0.113.9:1234", want: http.StatusForbidden},
		{name: "exact ip", allowed: []string{"127.0.0.1"}, remoteAddr: "127.0.0.1:1", want: http.StatusOK},
		{name: "xff ignored without trust", allowed: []string{"10.0.0.0/8"}, remoteAddr: "203.0.113.9:1", xff: "10.0.0.1", want: http.StatusForbidden},
		{name: "xff honoured with trust", allowed: []string{"10.0.0.0/8"}, remoteAddr: "127.0.0.1:1", xff: "10.0.0.1, 127.0.0.1", trustProxy: true, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AllowOnlyCIDRS(tt.allowed, tt.trustProxy, logger.Nop())(ok)
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestEnforceHost(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		host    string
		want    int
	}{
		{name: "passthrough", host: "anything", want: http.StatusOK},
		{name: "exact", allowed: []string{"marks.example.com"}, host: "marks.example.com", want: http.StatusOK},
		{name: "port ignored", allowed: []string{"localhost"}, host: "localhost:8080", want: http.StatusOK},
		{name: "wildcard", allowed: []string{"*.example.com"}, host: "a.example.com", want: http.StatusOK},
		{name: "rejected", allowed: []string{"marks.example.com"}, host: "evil.test", want: http.StatusForbidden},
		{name: "wildcard needs a subdomain", allowed: []string{"*.example.com"}, host: "example.com", want: http.StatusForbidden},
		{name: "wildcard is not a suffix match", allowed: []string{"*.example.com"}, host: "badexample.com", want: http.StatusForbidden},
		{name: "case and trailing dot", allowed: []string{"Marks.Example.com"}, host: "MARKS.example.com.:443", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := EnforceHost(tt.allowed, logger.Nop())(ok)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, false)(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := telemetry.NewMetrics()
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Post("/bookmarks/{id}/delete", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/bookmarks/42/delete", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	if !strings.Contains(body, `route="/bookmarks/{id}/delete"`) {
		t.Errorf("route pattern label missing:\n%s", body)
	}
	if strings.Contains(body, "/bookmarks/42/delete") {
		t.Error("raw path must not be used as a label")
	}
}
