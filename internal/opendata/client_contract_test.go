package opendata

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// TestHTTPClientSmoke verifies that the client can pull at least one
// usable record from a live open-data endpoint. Skipped unless
// OPENDATA_URL points at one.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("OPENDATA_URL")
	if baseURL == "" {
		t.Skip("OPENDATA_URL not provided")
	}
	apiKey := os.Getenv("OPENDATA_API_KEY")

	client, err := NewHTTPClient(baseURL, apiKey, 3*time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	records, err := client.Fetch(ctx)
	if err != nil {
		t.Fatalf("fetch open data: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected at least one usable record from upstream")
	}
}
