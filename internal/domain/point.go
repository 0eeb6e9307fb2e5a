package domain

import "time"

// WifiPoint represents a Wi-Fi access point row as stored by the service.
// AverageRating is nil until the point receives its first rating.
type WifiPoint struct {
	ID            int64
	Latitude      float64
	Longitude     float64
	Address       *string
	Ratings       []int
	AverageRating *float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RatingSummary captures the rating history of a point after an append.
type RatingSummary struct {
	Ratings []int
	Average float64
}
