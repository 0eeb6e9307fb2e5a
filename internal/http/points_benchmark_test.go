package httpserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// The benchmarks call the handlers directly so the limiter and the auth
// gate stay out of the measurement.

func BenchmarkHandleRatePoint(b *testing.B) {
	srv := buildTestServer(b)
	point := seedPoint(b, srv, 53.2, 50.15, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/rate/%d", point.ID), strings.NewReader(`{"rating":4}`))
		req = attachIDParam(req, point.ID)
		rec := httptest.NewRecorder()
		srv.handleRatePoint(rec, req)
		if rec.Code != http.StatusOK {
			b.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	}
}

func BenchmarkHandleListPoints(b *testing.B) {
	srv := buildTestServer(b)
	for i := 0; i < 50; i++ {
		seedPoint(b, srv, 53.0+float64(i)*0.01, 50.0+float64(i)*0.01, nil)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
		rec := httptest.NewRecorder()
		srv.handleListPoints(rec, req)
		if rec.Code != http.StatusOK {
			b.Fatalf("status = %d", rec.Code)
		}
	}
}
