// Package report writes the results of a taxi-in run: a daily summary CSV,
// episodes as JSON lines with their trajectories, episodes as CSV without
// trajectories, and optional charts.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/banshee-data/taxiin.report/internal/fsutil"
	"github.com/banshee-data/taxiin.report/internal/taxiin"
)

// TimeLayout is used for timestamps in CSV outputs.
const TimeLayout = "2006-01-02 15:04:05.999999999"

var (
	summaryHeader = []string{"date", "taxi_in_count", "avg_taxi_in_duration_min", "total_duration_min"}
	eventsHeader  = []string{"icao24", "callsign", "start", "end", "duration_min", "close_reason", "date", "trajectory_points"}
)

// Options selects where and what to write.
type Options struct {
	Dir       string
	Prefix    string
	Chart     bool // HTML daily summary chart
	Histogram bool // PNG histogram of episode durations
}

// Paths returns the output file paths for opts.
func (o Options) Paths() Paths {
	p := func(suffix string) string { return filepath.Join(o.Dir, o.Prefix+suffix) }
	return Paths{
		Summary:   p("_daily_summary.csv"),
		EventsJSL: p("_events.jsonl"),
		EventsCSV: p("_events.csv"),
		Chart:     p("_daily_summary.html"),
		Histogram: p("_durations.png"),
	}
}

// Paths are the files a Writer produces.
type Paths struct {
	Summary   string
	EventsJSL string
	EventsCSV string
	Chart     string
	Histogram string
}

// eventRecord is one line of the events JSON-lines file.
type eventRecord struct {
	taxiin.Episode
	Date string `json:"date"`
}

// Writer streams day results to the output files. Charts need every day and
// are rendered on Close.
type Writer struct {
	fs    fsutil.FileSystem
	opts  Options
	paths Paths

	summaryFile io.WriteCloser
	summaryCSV  *csv.Writer
	jsonlFile   io.WriteCloser
	jsonlBuf    *bufio.Writer
	jsonl       *json.Encoder
	eventsFile  io.WriteCloser
	eventsCSV   *csv.Writer

	summaries []taxiin.DailySummary
	durations []float64
	closed    bool
}

// NewWriter creates the results directory and the tabular output files.
func NewWriter(fsys fsutil.FileSystem, opts Options) (*Writer, error) {
	if opts.Prefix == "" {
		opts.Prefix = "taxi_in"
	}
	if err := fsys.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}

	w := &Writer{fs: fsys, opts: opts, paths: opts.Paths()}
	var err error
	if w.summaryFile, err = fsys.Create(w.paths.Summary); err != nil {
		return nil, fmt.Errorf("create summary file: %w", err)
	}
	if w.jsonlFile, err = fsys.Create(w.paths.EventsJSL); err != nil {
		w.summaryFile.Close()
		return nil, fmt.Errorf("create events jsonl: %w", err)
	}
	if w.eventsFile, err = fsys.Create(w.paths.EventsCSV); err != nil {
		w.summaryFile.Close()
		w.jsonlFile.Close()
		return nil, fmt.Errorf("create events csv: %w", err)
	}

	w.summaryCSV = csv.NewWriter(w.summaryFile)
	w.jsonlBuf = bufio.NewWriter(w.jsonlFile)
	w.jsonl = json.NewEncoder(w.jsonlBuf)
	w.eventsCSV = csv.NewWriter(w.eventsFile)

	if err := w.writeHeaders(); err != nil {
		w.summaryFile.Close()
		w.jsonlFile.Close()
		w.eventsFile.Close()
		return nil, fmt.Errorf("write headers: %w", err)
	}
	return w, nil
}

// writeHeaders flushes both CSV headers so an unwritable results directory
// fails before any day is processed.
func (w *Writer) writeHeaders() error {
	if err := w.summaryCSV.Write(summaryHeader); err != nil {
		return err
	}
	w.summaryCSV.Flush()
	if err := w.summaryCSV.Error(); err != nil {
		return err
	}
	if err := w.eventsCSV.Write(eventsHeader); err != nil {
		return err
	}
	w.eventsCSV.Flush()
	return w.eventsCSV.Error()
}

// Paths returns the files this writer produces.
func (w *Writer) Paths() Paths {
	return w.paths
}

// WriteDay appends one day's summary and episodes.
func (w *Writer) WriteDay(res taxiin.DayResult) error {
	if w.closed {
		return errors.New("report writer is closed")
	}
	s := res.Summary
	if err := w.summaryCSV.Write([]string{
		s.Date,
		strconv.Itoa(s.TaxiInCount),
		formatMinutes(s.AvgDurationMin),
		formatMinutes(s.TotalDurationMin),
	}); err != nil {
		return fmt.Errorf("write summary row: %w", err)
	}

	for _, e := range res.Episodes {
		if err := w.jsonl.Encode(eventRecord{Episode: e, Date: res.Date}); err != nil {
			return fmt.Errorf("write event line: %w", err)
		}
		if err := w.eventsCSV.Write([]string{
			e.ICAO24,
			e.Callsign,
			formatTime(e.Start),
			formatTime(e.End),
			formatMinutes(e.DurationMin),
			string(e.CloseReason),
			res.Date,
			strconv.Itoa(len(e.Trajectory)),
		}); err != nil {
			return fmt.Errorf("write event row: %w", err)
		}
		w.durations = append(w.durations, e.DurationMin)
	}

	w.summaries = append(w.summaries, s)
	return nil
}

// Close flushes the tabular files and renders the enabled charts.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	w.summaryCSV.Flush()
	errs = append(errs, w.summaryCSV.Error(), w.summaryFile.Close())
	errs = append(errs, w.jsonlBuf.Flush(), w.jsonlFile.Close())
	w.eventsCSV.Flush()
	errs = append(errs, w.eventsCSV.Error(), w.eventsFile.Close())

	if w.opts.Chart {
		errs = append(errs, w.writeFile(w.paths.Chart, func(out io.Writer) error {
			return RenderDailyChart(out, w.summaries)
		}))
	}
	if w.opts.Histogram && len(w.durations) > 0 {
		errs = append(errs, w.writeFile(w.paths.Histogram, func(out io.Writer) error {
			return RenderDurationHistogram(out, w.durations)
		}))
	}
	return errors.Join(errs...)
}

func (w *Writer) writeFile(path string, render func(io.Writer) error) error {
	f, err := w.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

func formatMinutes(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
