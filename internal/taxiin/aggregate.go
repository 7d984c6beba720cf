package taxiin

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DailySummary folds all taxi-in episodes of one day.
type DailySummary struct {
	Date             string  `json:"date"`
	TaxiInCount      int     `json:"taxi_in_count"`
	AvgDurationMin   float64 `json:"avg_taxi_in_duration_min"`
	TotalDurationMin float64 `json:"total_duration_min"`
}

// Summarize reduces the episodes of one day, across all aircraft, into a
// DailySummary. An empty day reports zero count, average and total.
// Average and total are rounded to two decimals.
func Summarize(date string, episodes []Episode) DailySummary {
	s := DailySummary{Date: date, TaxiInCount: len(episodes)}
	if len(episodes) == 0 {
		return s
	}
	durations := make([]float64, len(episodes))
	for i, e := range episodes {
		durations[i] = e.DurationMin
	}
	s.AvgDurationMin = round2(stat.Mean(durations, nil))
	s.TotalDurationMin = round2(floats.Sum(durations))
	return s
}
