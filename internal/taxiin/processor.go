package taxiin

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/taxiin.report/internal/adsb"
)

// DayResult is everything extracted from one day file.
type DayResult struct {
	Date     string
	Episodes []Episode // ordered by aircraft identifier, then start
	Summary  DailySummary
	Drops    adsb.DropStats
}

// DayProcessor runs the normaliser, segmenter and aggregator for one day.
// Aircraft are segmented on up to Workers goroutines; episodes from different
// aircraft never interact, so the result does not depend on the worker count.
type DayProcessor struct {
	segmenter *Segmenter
	workers   int
}

// NewDayProcessor validates cfg and returns a processor. workers <= 0 uses
// GOMAXPROCS.
func NewDayProcessor(cfg Config, workers int) (*DayProcessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &DayProcessor{segmenter: NewSegmenter(cfg), workers: workers}, nil
}

// Workers returns the effective per-aircraft concurrency.
func (p *DayProcessor) Workers() int {
	return p.workers
}

// Process extracts the taxi-in episodes and summary for one day of raw rows.
// The only error it returns is a context error.
func (p *DayProcessor) Process(ctx context.Context, date string, rows []adsb.RawRecord) (DayResult, error) {
	series, drops := adsb.Normalize(rows)

	perAircraft := make([][]Episode, len(series))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, s := range series {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perAircraft[i] = p.segmenter.Segment(s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DayResult{}, err
	}
	// All goroutines may have finished before a cancel was observed.
	if err := ctx.Err(); err != nil {
		return DayResult{}, err
	}

	var episodes []Episode
	for _, eps := range perAircraft {
		episodes = append(episodes, eps...)
	}

	return DayResult{
		Date:     date,
		Episodes: episodes,
		Summary:  Summarize(date, episodes),
		Drops:    drops,
	}, nil
}
