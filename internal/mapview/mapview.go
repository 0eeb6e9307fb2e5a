// Package mapview renders the embeddable Leaflet map page. Points are
// injected into the page as a JSON marker array and drawn client side
// as circle markers colored by their average rating.
package mapview

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed map.html.tmpl
var mapTemplate string

// Fallback view used when there are no points to center on.
const (
	fallbackCenterLat = 53.2020
	fallbackCenterLon = 50.1590
	defaultZoom       = 10
)

// Marker colors by rating band.
const (
	colorUnrated = "gray"
	colorLow     = "red"
	colorMid     = "orange"
	colorHigh    = "green"
)

// Marker is one point to draw on the map.
type Marker struct {
	Lat     float64
	Lon     float64
	Address *string
	Rating  *float64
}

// markerView is the wire form embedded into the page script.
type markerView struct {
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Address string   `json:"address,omitempty"`
	Rating  *float64 `json:"rating,omitempty"`
	Color   string   `json:"color"`
}

type pageData struct {
	CenterLat float64
	CenterLon float64
	Zoom      int
	Markers   []markerView
}

// Renderer renders the map page from the embedded template.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded template. The template is static, so a parse
// failure is a packaging defect and callers should treat it as fatal.
func New() (*Renderer, error) {
	tmpl, err := template.New("map").Parse(mapTemplate)
	if err != nil {
		return nil, fmt.Errorf("mapview: parse template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the complete map page for the given markers to w.
func (r *Renderer) Render(w io.Writer, markers []Marker) error {
	centerLat, centerLon := Centroid(markers)

	views := make([]markerView, 0, len(markers))
	for _, m := range markers {
		view := markerView{
			Lat:    m.Lat,
			Lon:    m.Lon,
			Rating: m.Rating,
			Color:  markerColor(m.Rating),
		}
		if m.Address != nil {
			view.Address = *m.Address
		}
		views = append(views, view)
	}

	data := pageData{
		CenterLat: centerLat,
		CenterLon: centerLon,
		Zoom:      defaultZoom,
		Markers:   views,
	}
	if err := r.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("mapview: execute template: %w", err)
	}
	return nil
}

// Centroid returns the arithmetic mean of the marker coordinates. With
// no markers it falls back to the default city center so an empty map
// still opens on a sensible view.
func Centroid(markers []Marker) (lat, lon float64) {
	if len(markers) == 0 {
		return fallbackCenterLat, fallbackCenterLon
	}

	var latSum, lonSum float64
	for _, m := range markers {
		latSum += m.Lat
		lonSum += m.Lon
	}
	n := float64(len(markers))
	return latSum / n, lonSum / n
}

// markerColor maps an average rating to its band color. Unrated points
// and non-positive averages stay neutral.
func markerColor(rating *float64) string {
	switch {
	case rating == nil || *rating <= 0:
		return colorUnrated
	case *rating <= 2.5:
		return colorLow
	case *rating <= 4.5:
		return colorMid
	default:
		return colorHigh
	}
}
