package domain

import "math"

// Average returns the arithmetic mean of the ratings rounded to two
// decimals, or 0 when the list is empty.
func Average(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return roundToTwoDecimals(float64(sum) / float64(len(ratings)))
}

// AddRating appends value to the end of the submission history and
// recomputes the average. The input slice is copied, never mutated.
// Range validation of value happens at the HTTP boundary.
func AddRating(existing []int, value int) ([]int, float64) {
	updated := make([]int, 0, len(existing)+1)
	updated = append(updated, existing...)
	updated = append(updated, value)
	return updated, Average(updated)
}

func roundToTwoDecimals(value float64) float64 {
	return math.Round(value*100) / 100
}
