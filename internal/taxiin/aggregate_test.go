package taxiin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_EmptyDay(t *testing.T) {
	got := Summarize("2024-06-01", nil)
	assert.Equal(t, DailySummary{Date: "2024-06-01"}, got)
}

func TestSummarize(t *testing.T) {
	eps := []Episode{
		{DurationMin: 4.5},
		{DurationMin: 10.25},
		{DurationMin: 0},
	}

	got := Summarize("2024-06-02", eps)

	assert.Equal(t, "2024-06-02", got.Date)
	assert.Equal(t, 3, got.TaxiInCount)
	assert.Equal(t, 4.92, got.AvgDurationMin)
	assert.Equal(t, 14.75, got.TotalDurationMin)
}

func TestSummarize_SingleEpisode(t *testing.T) {
	got := Summarize("d", []Episode{{DurationMin: 7.33}})
	assert.Equal(t, DailySummary{Date: "d", TaxiInCount: 1, AvgDurationMin: 7.33, TotalDurationMin: 7.33}, got)
}
