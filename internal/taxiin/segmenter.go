// Package taxiin extracts taxi-in episodes from per-aircraft ADS-B series
// and folds them into daily summaries.
package taxiin

import (
	"math"
	"time"

	"github.com/banshee-data/taxiin.report/internal/adsb"
)

// SegmenterState is the state of a segmentation run.
type SegmenterState string

const (
	StateIdle     SegmenterState = "idle"     // no open episode
	StateTracking SegmenterState = "tracking" // accumulating one open episode
)

// CloseReason records why an episode was closed.
type CloseReason string

const (
	CloseGapTimeout  CloseReason = "gap_timeout"
	CloseGroundExit  CloseReason = "ground_exit"
	CloseEndOfSeries CloseReason = "end_of_series"
)

// Episode is one taxi-in movement of one aircraft. Episodes are never
// modified after the segmenter emits them.
type Episode struct {
	ICAO24      string             `json:"icao24"`
	Callsign    string             `json:"callsign"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	DurationMin float64            `json:"duration_min"`
	CloseReason CloseReason        `json:"close_reason"`
	Trajectory  []adsb.StateVector `json:"trajectory"`
}

// LastAccepted returns the timestamp of the last trajectory record, which is
// the last movement the episode accepted.
func (e Episode) LastAccepted() time.Time {
	return e.Trajectory[len(e.Trajectory)-1].Timestamp
}

// Segmenter walks one aircraft series left to right and emits its taxi-in
// episodes. A Segmenter holds only configuration and may be shared by
// concurrent runs.
type Segmenter struct {
	maxGap time.Duration
}

// NewSegmenter returns a Segmenter for cfg. Callers validate cfg first.
func NewSegmenter(cfg Config) *Segmenter {
	return &Segmenter{maxGap: cfg.MaxGap()}
}

// segmentRun carries the in-flight fields of one pass over a series.
type segmentRun struct {
	icao   string
	maxGap time.Duration

	state        SegmenterState
	start        time.Time
	lastAccepted time.Time
	trajectory   []adsb.StateVector

	episodes []Episode
}

// Segment returns the taxi-in episodes of series in order. The result is a
// pure function of series and the configuration.
func (s *Segmenter) Segment(series adsb.AircraftSeries) []Episode {
	recs := series.Records
	if len(recs) == 0 {
		return nil
	}

	run := &segmentRun{icao: series.ICAO24, maxGap: s.maxGap, state: StateIdle}

	// Only the first record may open an episode without a preceding
	// airborne record.
	if first := recs[0]; first.OnGround && first.GroundSpeed > MinTaxiSpeed {
		run.open(first)
	}
	for i := 1; i < len(recs); i++ {
		run.step(recs[i-1], recs[i])
	}
	if run.state == StateTracking {
		run.close(recs[len(recs)-1].Timestamp, CloseEndOfSeries)
	}
	return run.episodes
}

func (r *segmentRun) open(sv adsb.StateVector) {
	r.state = StateTracking
	r.start = sv.Timestamp
	r.lastAccepted = sv.Timestamp
	r.trajectory = []adsb.StateVector{sv}
}

func (r *segmentRun) step(prev, cur adsb.StateVector) {
	if r.state == StateIdle {
		if !prev.OnGround && cur.OnGround && cur.GroundSpeed > MinTaxiSpeed {
			r.open(cur)
		}
		return
	}

	// The gap is measured from the last accepted movement, so slow records
	// neither extend the episode nor reset the gap.
	if cur.Timestamp.Sub(r.lastAccepted) > r.maxGap {
		r.close(r.lastAccepted, CloseGapTimeout)
		return
	}
	if cur.GroundSpeed > MinTaxiSpeed {
		r.trajectory = append(r.trajectory, cur)
		r.lastAccepted = cur.Timestamp
	}
	if !cur.OnGround {
		r.close(cur.Timestamp, CloseGroundExit)
	}
}

func (r *segmentRun) close(end time.Time, reason CloseReason) {
	r.episodes = append(r.episodes, Episode{
		ICAO24:      r.icao,
		Callsign:    r.trajectory[0].Callsign,
		Start:       r.start,
		End:         end,
		DurationMin: RoundMinutes(end.Sub(r.start)),
		CloseReason: reason,
		Trajectory:  r.trajectory,
	})
	r.state = StateIdle
	r.trajectory = nil
}

// RoundMinutes converts d to minutes rounded to two decimals.
func RoundMinutes(d time.Duration) float64 {
	return round2(d.Seconds() / 60)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
