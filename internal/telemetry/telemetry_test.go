package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "marktrabit", "dev", "")
	if err != nil {
		t.Fatalf("InitTracing() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestExporterOptions(t *testing.T) {
	tests := []struct {
		endpoint string
		want     int
		wantErr  bool
	}{
		{endpoint: "localhost:4318", want: 2},
		{endpoint: "http://collector:4318", want: 2},
		{endpoint: "https://collector.example/otlp/v1/traces", want: 2},
		{endpoint: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			opts, err := exporterOptions(tt.endpoint)
			if (err != nil) != tt.wantErr {
				t.Fatalf("exporterOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(opts) != tt.want {
				t.Errorf("exporterOptions() returned %d options, want %d", len(opts), tt.want)
			}
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveRemote("list", time.Now(), nil)
	m.ObserveRemote("insert", time.Now(), fmt.Errorf("wrapped: %w", context.DeadlineExceeded))
	m.ObserveRemote("delete", time.Now(), errors.New("boom"))
	m.ObserveHTTP("", http.MethodGet, "404", time.Millisecond)
	m.SessionEvent("SIGNED_OUT")
	m.StreamOpened()
	m.Swept(2, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`marktrabit_remote_calls_total{op="list",outcome="ok"} 1`,
		`marktrabit_remote_calls_total{op="insert",outcome="timeout"} 1`,
		`marktrabit_remote_calls_total{op="delete",outcome="error"} 1`,
		`marktrabit_http_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`marktrabit_event_streams_open 1`,
		`marktrabit_session_sweep_sessions_total{result="expired"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRemote("list", time.Now(), nil)
	m.ObserveHTTP("/", "GET", "200", 0)
	m.SessionEvent("SIGNED_IN")
	m.StreamOpened()
	m.StreamClosed()
	m.Swept(1, 1)
}
