// Package pipeline runs the batch job: every day file in the data directory
// is read, segmented into taxi-in episodes and fanned out to the report
// files, the optional SQLite store and the run metrics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/taxiin.report/internal/config"
	"github.com/banshee-data/taxiin.report/internal/db"
	"github.com/banshee-data/taxiin.report/internal/fsutil"
	"github.com/banshee-data/taxiin.report/internal/ingest"
	"github.com/banshee-data/taxiin.report/internal/monitoring"
	"github.com/banshee-data/taxiin.report/internal/report"
	"github.com/banshee-data/taxiin.report/internal/taxiin"
	"github.com/banshee-data/taxiin.report/internal/timeutil"
	"github.com/banshee-data/taxiin.report/internal/version"
)

// Store persists run bookkeeping and day results. *db.DB implements it.
type Store interface {
	StartRun(ctx context.Context, run db.Run) error
	RecordDay(ctx context.Context, runID string, maxGapSeconds int, res taxiin.DayResult) error
	FinishRun(ctx context.Context, run db.Run) error
}

// Options configures a Runner. Config is required; the rest default to the
// OS filesystem, the real clock and no store or metrics.
type Options struct {
	Config  *config.RunConfig
	FS      fsutil.FileSystem
	Clock   timeutil.Clock
	Store   Store
	Metrics *monitoring.RunMetrics
	RunID   string // generated when empty
}

// Result describes a finished run.
type Result struct {
	RunID      string
	Days       []taxiin.DailySummary
	DaysFailed int
	Episodes   int
	Paths      report.Paths
	Elapsed    time.Duration
}

// Runner processes the day files of one data directory.
type Runner struct {
	cfg       *config.RunConfig
	fs        fsutil.FileSystem
	clock     timeutil.Clock
	store     Store
	metrics   *monitoring.RunMetrics
	runID     string
	processor *taxiin.DayProcessor
}

// New validates the configuration and builds a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}
	processor, err := taxiin.NewDayProcessor(opts.Config.Segmentation(), opts.Config.GetWorkers())
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:       opts.Config,
		fs:        opts.FS,
		clock:     opts.Clock,
		store:     opts.Store,
		metrics:   opts.Metrics,
		runID:     opts.RunID,
		processor: processor,
	}
	if r.fs == nil {
		r.fs = fsutil.OSFileSystem{}
	}
	if r.clock == nil {
		r.clock = timeutil.RealClock{}
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	return r, nil
}

// RunID identifies this run in logs and the store.
func (r *Runner) RunID() string {
	return r.runID
}

// Run processes every day file in order. A day file that cannot be read is
// logged and skipped; write errors and context cancellation stop the run.
// Outputs written before a stop are flushed.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	started := r.clock.Now()
	res := Result{RunID: r.runID}

	days, err := ingest.Discover(r.fs, r.cfg.GetDataDir(), r.cfg.GetInputSuffix())
	if err != nil {
		return res, err
	}
	if len(days) == 0 {
		monitoring.Logf("no %s day files found in %s", r.cfg.GetInputSuffix(), r.cfg.GetDataDir())
	}

	writer, err := report.NewWriter(r.fs, report.Options{
		Dir:       r.cfg.GetResultsDir(),
		Prefix:    r.cfg.GetOutputPrefix(),
		Chart:     r.cfg.GetChart(),
		Histogram: r.cfg.GetHistogram(),
	})
	if err != nil {
		return res, err
	}
	res.Paths = writer.Paths()

	run := db.Run{
		ID:            r.runID,
		Version:       version.String(),
		MaxGapSeconds: r.cfg.GetMaxGapSeconds(),
		StartedAt:     started,
	}
	if r.store != nil {
		if err := r.store.StartRun(ctx, run); err != nil {
			writer.Close()
			return res, err
		}
	}

	monitoring.Logf("run %s: %d day files, max gap %ds, %d workers",
		r.runID, len(days), r.cfg.GetMaxGapSeconds(), r.processor.Workers())

	runErr := r.processDays(ctx, days, writer, &res)

	errs := []error{runErr, writer.Close()}
	res.Elapsed = r.clock.Since(started)
	if r.store != nil {
		run.FinishedAt = r.clock.Now()
		run.DaysProcessed = len(res.Days)
		run.DaysFailed = res.DaysFailed
		run.EpisodeCount = res.Episodes
		// The run row is finished even when ctx was cancelled.
		errs = append(errs, r.store.FinishRun(context.WithoutCancel(ctx), run))
	}
	if path := r.cfg.GetMetricsFile(); path != "" && r.metrics != nil {
		errs = append(errs, r.metrics.WriteTextfile(path))
	}

	monitoring.Logf("run %s: %d days processed, %d failed, %d taxi-in episodes in %s",
		r.runID, len(res.Days), res.DaysFailed, res.Episodes, res.Elapsed)
	return res, errors.Join(errs...)
}

func (r *Runner) processDays(ctx context.Context, days []ingest.DayFile, writer *report.Writer, res *Result) error {
	maxGap := r.cfg.GetMaxGapSeconds()
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		monitoring.Logf("processing file %s", day.Path)
		dayStart := r.clock.Now()

		rows, err := ingest.ReadDay(r.fs, day.Path)
		if err != nil {
			monitoring.Logf("skipping %s: %v", day.Path, err)
			r.metrics.ObserveFailedDay()
			res.DaysFailed++
			continue
		}

		dr, err := r.processor.Process(ctx, day.Day, rows)
		if err != nil {
			return err
		}
		if dr.Drops.Dropped() > 0 {
			monitoring.Logf("%s: dropped %d of %d rows (%d missing fields, %d bad timestamps)",
				day.Day, dr.Drops.Dropped(), dr.Drops.Read, dr.Drops.MissingField, dr.Drops.BadTimestamp)
		}

		if err := writer.WriteDay(dr); err != nil {
			return err
		}
		if r.store != nil {
			if err := r.store.RecordDay(ctx, r.runID, maxGap, dr); err != nil {
				return fmt.Errorf("store day %s: %w", day.Day, err)
			}
		}
		r.metrics.ObserveDay(dr, r.clock.Since(dayStart))

		monitoring.Logf("%s: %d aircraft, %d taxi-in episodes, avg %.2f min",
			day.Day, dr.Drops.AircraftSeries, dr.Summary.TaxiInCount, dr.Summary.AvgDurationMin)
		res.Days = append(res.Days, dr.Summary)
		res.Episodes += len(dr.Episodes)
	}
	return nil
}
