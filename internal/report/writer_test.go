package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/taxiin.report/internal/adsb"
	"github.com/banshee-data/taxiin.report/internal/fsutil"
	"github.com/banshee-data/taxiin.report/internal/taxiin"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleDay() taxiin.DayResult {
	traj := []adsb.StateVector{
		{ICAO24: "abc123", Timestamp: t0, OnGround: true, GroundSpeed: 12, Latitude: 51.47, Longitude: -0.45, Callsign: "BAW1"},
		{ICAO24: "abc123", Timestamp: t0.Add(3 * time.Minute), OnGround: true, GroundSpeed: 8, Latitude: 51.48, Longitude: -0.46, Callsign: "BAW1"},
	}
	ep := taxiin.Episode{
		ICAO24:      "abc123",
		Callsign:    "BAW1",
		Start:       t0,
		End:         t0.Add(3 * time.Minute),
		DurationMin: 3,
		CloseReason: taxiin.CloseEndOfSeries,
		Trajectory:  traj,
	}
	return taxiin.DayResult{
		Date:     "2024-03-01",
		Episodes: []taxiin.Episode{ep},
		Summary:  taxiin.Summarize("2024-03-01", []taxiin.Episode{ep}),
	}
}

func readCSV(t *testing.T, fsys fsutil.FileSystem, path string) [][]string {
	t.Helper()
	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestOptionsPaths(t *testing.T) {
	p := Options{Dir: "out", Prefix: "lhr"}.Paths()
	assert.Equal(t, "out/lhr_daily_summary.csv", p.Summary)
	assert.Equal(t, "out/lhr_events.jsonl", p.EventsJSL)
	assert.Equal(t, "out/lhr_events.csv", p.EventsCSV)
	assert.Equal(t, "out/lhr_daily_summary.html", p.Chart)
	assert.Equal(t, "out/lhr_durations.png", p.Histogram)
}

func TestWriter_WritesAllOutputs(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	w, err := NewWriter(fsys, Options{Dir: "results", Prefix: "taxi_in", Chart: true, Histogram: true})
	require.NoError(t, err)

	require.NoError(t, w.WriteDay(sampleDay()))
	require.NoError(t, w.WriteDay(taxiin.DayResult{
		Date:    "2024-03-02",
		Summary: taxiin.Summarize("2024-03-02", nil),
	}))
	require.NoError(t, w.Close())

	paths := w.Paths()

	summary := readCSV(t, fsys, paths.Summary)
	assert.Equal(t, [][]string{
		summaryHeader,
		{"2024-03-01", "1", "3.00", "3.00"},
		{"2024-03-02", "0", "0.00", "0.00"},
	}, summary)

	events := readCSV(t, fsys, paths.EventsCSV)
	require.Len(t, events, 2)
	assert.Equal(t, eventsHeader, events[0])
	assert.Equal(t, []string{
		"abc123", "BAW1", "2024-03-01 12:00:00", "2024-03-01 12:03:00",
		"3.00", "end_of_series", "2024-03-01", "2",
	}, events[1])

	data, err := fsys.ReadFile(paths.EventsJSL)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &line))
	assert.Equal(t, "2024-03-01", line["date"])
	assert.Equal(t, "abc123", line["icao24"])
	assert.Equal(t, 3.0, line["duration_min"])
	traj, ok := line["trajectory"].([]any)
	require.True(t, ok, "trajectory should be a list")
	require.Len(t, traj, 2)
	point := traj[0].(map[string]any)
	assert.ElementsMatch(t,
		[]string{"icao24", "timestamp", "onground", "groundspeed", "latitude", "longitude", "callsign"},
		keys(point))

	html, err := fsys.ReadFile(paths.Chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Taxi-in summary")
	assert.Contains(t, string(html), "2024-03-02")

	png, err := fsys.ReadFile(paths.Histogram)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "histogram should be a PNG")
}

func TestWriter_NoEpisodesSkipsHistogram(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	w, err := NewWriter(fsys, Options{Dir: "results", Chart: false, Histogram: true})
	require.NoError(t, err)
	require.NoError(t, w.WriteDay(taxiin.DayResult{Date: "2024-03-01", Summary: taxiin.Summarize("2024-03-01", nil)}))
	require.NoError(t, w.Close())

	paths := w.Paths()
	assert.Equal(t, "results/taxi_in_daily_summary.csv", paths.Summary)
	assert.False(t, fsys.Exists(paths.Histogram))
	assert.False(t, fsys.Exists(paths.Chart))
	assert.True(t, fsys.Exists(paths.EventsJSL))
}

func TestWriter_WriteAfterClose(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	w, err := NewWriter(fsys, Options{Dir: "results", Prefix: "x"})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close is a no-op")
	assert.Error(t, w.WriteDay(sampleDay()))
}

func TestRenderDurationHistogram_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, RenderDurationHistogram(&buf, nil))
}

func TestRenderDurationHistogram(t *testing.T) {
	tests := []struct {
		name      string
		durations []float64
	}{
		{"single episode", []float64{1}},
		{"all zero", []float64{0, 0, 0}},
		{"equal durations", []float64{2.5, 2.5}},
		{"spread", []float64{0.5, 1, 1.5, 3, 4.25, 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, RenderDurationHistogram(&buf, tt.durations))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
		})
	}
}

// failingFS hands out files that reject every write and records closes.
type failingFS struct {
	*fsutil.MemoryFileSystem
	closed []string
}

type failingFile struct {
	fs   *failingFS
	name string
}

func (f *failingFile) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func (f *failingFile) Close() error {
	f.fs.closed = append(f.fs.closed, f.name)
	return nil
}

func (f *failingFS) Create(name string) (io.WriteCloser, error) {
	return &failingFile{fs: f, name: name}, nil
}

func TestNewWriter_HeaderFailureClosesFiles(t *testing.T) {
	fsys := &failingFS{MemoryFileSystem: fsutil.NewMemoryFileSystem()}
	w, err := NewWriter(fsys, Options{Dir: "results"})
	require.Error(t, err)
	assert.Nil(t, w)

	p := Options{Dir: "results", Prefix: "taxi_in"}.Paths()
	assert.ElementsMatch(t, []string{p.Summary, p.EventsJSL, p.EventsCSV}, fsys.closed)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
