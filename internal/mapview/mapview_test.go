package mapview

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestCentroid(t *testing.T) {
	tests := []struct {
		name    string
		markers []Marker
		wantLat float64
		wantLon float64
	}{
		{
			name:    "no markers falls back to default center",
			markers: nil,
			wantLat: 53.2020,
			wantLon: 50.1590,
		},
		{
			name:    "single marker is its own center",
			markers: []Marker{{Lat: 53.19, Lon: 50.1}},
			wantLat: 53.19,
			wantLon: 50.1,
		},
		{
			name: "two markers average",
			markers: []Marker{
				{Lat: 10, Lon: 20},
				{Lat: 20, Lon: 40},
			},
			wantLat: 15,
			wantLon: 30,
		},
		{
			name: "mixed hemispheres",
			markers: []Marker{
				{Lat: -10, Lon: -20},
				{Lat: 10, Lon: 20},
			},
			wantLat: 0,
			wantLon: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon := Centroid(tt.markers)
			if math.Abs(lat-tt.wantLat) > 1e-9 || math.Abs(lon-tt.wantLon) > 1e-9 {
				t.Errorf("Centroid() = (%v, %v), want (%v, %v)", lat, lon, tt.wantLat, tt.wantLon)
			}
		})
	}
}

func TestMarkerColor(t *testing.T) {
	tests := []struct {
		name   string
		rating *float64
		want   string
	}{
		{"unrated", nil, colorUnrated},
		{"zero average", floatPtr(0), colorUnrated},
		{"negative average", floatPtr(-1), colorUnrated},
		{"barely rated", floatPtr(0.1), colorLow},
		{"low band upper edge", floatPtr(2.5), colorLow},
		{"mid band lower edge", floatPtr(2.51), colorMid},
		{"mid band upper edge", floatPtr(4.5), colorMid},
		{"high band lower edge", floatPtr(4.51), colorHigh},
		{"top rating", floatPtr(5), colorHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := markerColor(tt.rating); got != tt.want {
				t.Errorf("markerColor(%v) = %q, want %q", tt.rating, got, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	renderer, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	markers := []Marker{
		{Lat: 10, Lon: 20, Address: strPtr("Pushkin St 1"), Rating: floatPtr(4.8)},
		{Lat: 20, Lon: 40},
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, markers); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"L.map",
		"circleMarker",
		"tile.openstreetmap.org",
		`"lat":10`,
		`"lon":40`,
		`"color":"green"`,
		`"color":"gray"`,
		"Pushkin St 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}

func TestRenderEmptyUsesFallbackCenter(t *testing.T) {
	renderer, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "53.202") || !strings.Contains(out, "50.159") {
		t.Errorf("rendered page does not center on the fallback view")
	}
}

func TestRenderEscapesAddress(t *testing.T) {
	renderer, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	markers := []Marker{
		{Lat: 1, Lon: 2, Address: strPtr(`<script>alert("x")</script>`)},
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, markers); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if strings.Contains(buf.String(), `<script>alert`) {
		t.Error("address was embedded without escaping")
	}
}
