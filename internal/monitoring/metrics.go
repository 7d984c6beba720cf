package monitoring

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/banshee-data/taxiin.report/internal/taxiin"
)

// Day outcomes recorded in taxiin_days_processed_total.
const (
	DayStatusOK     = "ok"
	DayStatusFailed = "failed"
)

// RunMetrics bundles the Prometheus metrics of one batch run. A batch run has
// no scrape endpoint, so the metrics are written out with WriteTextfile.
type RunMetrics struct {
	gatherer prometheus.Gatherer

	RecordsRead     prometheus.Counter
	RecordsDropped  *prometheus.CounterVec
	Episodes        *prometheus.CounterVec
	DaysProcessed   *prometheus.CounterVec
	EpisodeDuration prometheus.Histogram
	DayDuration     prometheus.Histogram
}

// NewRunMetrics registers the run metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewRunMetrics(reg prometheus.Registerer) (*RunMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	read, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taxiin_records_read_total",
		Help: "Rows read from day files.",
	}), "taxiin_records_read_total")
	if err != nil {
		return nil, err
	}
	dropped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxiin_records_dropped_total",
		Help: "Rows excluded by the normaliser, labeled by reason.",
	}, []string{"reason"}), "taxiin_records_dropped_total")
	if err != nil {
		return nil, err
	}
	episodes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxiin_episodes_total",
		Help: "Taxi-in episodes extracted, labeled by close reason.",
	}, []string{"close_reason"}), "taxiin_episodes_total")
	if err != nil {
		return nil, err
	}
	days, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxiin_days_processed_total",
		Help: "Day files processed, labeled by status.",
	}, []string{"status"}), "taxiin_days_processed_total")
	if err != nil {
		return nil, err
	}
	episodeDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "taxiin_episode_duration_minutes",
		Help:    "Taxi-in episode durations in minutes.",
		Buckets: []float64{0.5, 1, 2, 3, 5, 7.5, 10, 15, 20, 30, 45, 60},
	}), "taxiin_episode_duration_minutes")
	if err != nil {
		return nil, err
	}
	dayDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "taxiin_day_processing_seconds",
		Help:    "Wall time to read, segment and write one day.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}), "taxiin_day_processing_seconds")
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		gatherer:        gatherer,
		RecordsRead:     read,
		RecordsDropped:  dropped,
		Episodes:        episodes,
		DaysProcessed:   days,
		EpisodeDuration: episodeDuration,
		DayDuration:     dayDuration,
	}, nil
}

// ObserveDay records a successfully processed day.
func (m *RunMetrics) ObserveDay(res taxiin.DayResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RecordsRead.Add(float64(res.Drops.Read))
	m.RecordsDropped.WithLabelValues("missing_field").Add(float64(res.Drops.MissingField))
	m.RecordsDropped.WithLabelValues("bad_timestamp").Add(float64(res.Drops.BadTimestamp))
	for _, e := range res.Episodes {
		m.Episodes.WithLabelValues(string(e.CloseReason)).Inc()
		m.EpisodeDuration.Observe(e.DurationMin)
	}
	m.DaysProcessed.WithLabelValues(DayStatusOK).Inc()
	m.DayDuration.Observe(elapsed.Seconds())
}

// ObserveFailedDay records a day file that could not be processed.
func (m *RunMetrics) ObserveFailedDay() {
	if m == nil {
		return
	}
	m.DaysProcessed.WithLabelValues(DayStatusFailed).Inc()
}

// WriteTextfile writes the gathered metrics to path in the Prometheus text
// format, for the node exporter textfile collector.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
