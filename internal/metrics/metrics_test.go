package metrics

import (
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRequest(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		route    string
		status   string
		duration time.Duration
	}{
		{"ok listing", "GET", "/api/data", "200", 12 * time.Millisecond},
		{"rating accepted", "POST", "/api/rate/{id}", "200", 40 * time.Millisecond},
		{"missing key", "GET", "/", "401", time.Millisecond},
		{"unknown point", "GET", "/point/{id}", "404", 3 * time.Millisecond},
		{"server error", "GET", "/test-db", "500", 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(tt.method, tt.route, tt.status))

			status, err := strconv.Atoi(tt.status)
			if err != nil {
				t.Fatalf("bad status fixture %q: %v", tt.status, err)
			}
			RecordRequest(tt.method, tt.route, status, tt.duration)

			after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(tt.method, tt.route, tt.status))
			if after != before+1 {
				t.Fatalf("counter went %v -> %v, want +1", before, after)
			}
		})
	}
}

func TestRecordRateLimitHit(t *testing.T) {
	before := testutil.ToFloat64(RateLimitHits.WithLabelValues("/api/rate/{id}"))

	for i := 0; i < 3; i++ {
		RecordRateLimitHit("/api/rate/{id}")
	}

	after := testutil.ToFloat64(RateLimitHits.WithLabelValues("/api/rate/{id}"))
	if after != before+3 {
		t.Fatalf("counter went %v -> %v, want +3", before, after)
	}
}

func TestGatherAndLint(t *testing.T) {
	RecordRequest("GET", "/api/data", 200, time.Millisecond)
	RecordRateLimitHit("/api/rate/{id}")

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, p := range problems {
		if p.Metric == "wifinder_http_requests_total" ||
			p.Metric == "wifinder_http_request_duration_seconds" ||
			p.Metric == "wifinder_rate_limit_hits_total" {
			t.Errorf("metric lint problem on %s: %s", p.Metric, p.Text)
		}
	}
}
