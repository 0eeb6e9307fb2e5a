package httpserver

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wifinder/wifinder/internal/config"
)

func TestBuildPointFilters(t *testing.T) {
	values, _ := url.ParseQuery("bbox= 50.0 ,53.1,50.4,53.4&min_rating=3.5")

	filters, err := buildPointFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.BoundingBox == nil {
		t.Fatal("bbox not parsed")
	}
	bb := filters.BoundingBox
	if bb.MinLon != 50.0 || bb.MinLat != 53.1 || bb.MaxLon != 50.4 || bb.MaxLat != 53.4 {
		t.Fatalf("bbox = %+v", bb)
	}
	if filters.MinRating == nil || *filters.MinRating != 3.5 {
		t.Fatalf("min_rating = %+v, want 3.5", filters.MinRating)
	}
}

func TestBuildPointFilters_Empty(t *testing.T) {
	filters, err := buildPointFilters(url.Values{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.BoundingBox != nil || filters.MinRating != nil {
		t.Fatalf("empty query should produce zero filters: %+v", filters)
	}
}

func TestBuildPointFilters_Invalid(t *testing.T) {
	cases := []string{
		"bbox=50.0,53.1,50.4",
		"bbox=50.0,53.1,50.4,53.4,99",
		"bbox=a,b,c,d",
		"min_rating=high",
	}
	for _, raw := range cases {
		values, _ := url.ParseQuery(raw)
		if _, err := buildPointFilters(values); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestRequireAPIKey(t *testing.T) {
	srv := &Server{
		cfg:    config.Config{Auth: config.AuthConfig{APIKey: "secret"}},
		logger: zerolog.Nop(),
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	gate := srv.requireAPIKey(next)

	tests := []struct {
		name       string
		key        string
		wantStatus int
		wantBody   string
	}{
		{"missing key", "", http.StatusUnauthorized, `{"error":"API key is missing"}`},
		{"wrong key", "nope", http.StatusForbidden, `{"error":"Invalid API key"}`},
		{"valid key", "secret", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
			if tt.key != "" {
				req.Header.Set("X-Api-Key", tt.key)
			}
			rec := httptest.NewRecorder()

			gate.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !jsonBodyEquals(rec.Body.Bytes(), tt.wantBody) {
				t.Fatalf("body = %s, want %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
