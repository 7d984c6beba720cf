package db

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/taxiin.report/internal/adsb"
	"github.com/banshee-data/taxiin.report/internal/taxiin"
)

// Run is one invocation of the batch pipeline.
type Run struct {
	ID            string
	Version       string
	MaxGapSeconds int
	StartedAt     time.Time
	FinishedAt    time.Time // zero while the run is in progress
	DaysProcessed int
	DaysFailed    int
	EpisodeCount  int
}

// StoredEpisode is an episode row without its trajectory.
type StoredEpisode struct {
	ID         int64
	Key        string
	RunID      string
	Date       string
	Episode    taxiin.Episode
	PointCount int
}

// EpisodeKey derives the stable key of an episode. The end time is left out so
// that the key survives re-segmentation of a day with more data appended.
// seq counts earlier episodes of the same aircraft with the same start, which
// happens when timestamps repeat; it is 0 otherwise.
func EpisodeKey(icao24 string, start time.Time, seq, maxGapSeconds int) string {
	keyRaw := fmt.Sprintf("%s|%d|%d|%d", icao24, start.UnixNano(), seq, maxGapSeconds)
	sum := sha1.Sum([]byte(keyRaw))
	return fmt.Sprintf("%x", sum)
}

// StartRun inserts the run row.
func (db *DB) StartRun(ctx context.Context, run Run) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO taxi_in_runs (
			run_id,
			version,
			max_gap_seconds,
			started_at
		) VALUES (?, ?, ?, ?)`,
		run.ID, run.Version, run.MaxGapSeconds, unixSeconds(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records the end time and totals of a run.
func (db *DB) FinishRun(ctx context.Context, run Run) error {
	res, err := db.ExecContext(ctx, `
		UPDATE taxi_in_runs SET
			finished_at = ?,
			days_processed = ?,
			days_failed = ?,
			episode_count = ?
		WHERE run_id = ?`,
		unixSeconds(run.FinishedAt), run.DaysProcessed, run.DaysFailed, run.EpisodeCount, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// GetRun loads one run by ID.
func (db *DB) GetRun(ctx context.Context, id string) (Run, error) {
	var (
		run      Run
		started  float64
		finished sql.NullFloat64
	)
	err := db.QueryRowContext(ctx, `
		SELECT
			run_id, version, max_gap_seconds, started_at, finished_at,
			days_processed, days_failed, episode_count
		FROM taxi_in_runs
		WHERE run_id = ?`, id,
	).Scan(&run.ID, &run.Version, &run.MaxGapSeconds, &started, &finished,
		&run.DaysProcessed, &run.DaysFailed, &run.EpisodeCount)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	run.StartedAt = fromUnixSeconds(started)
	if finished.Valid {
		run.FinishedAt = fromUnixSeconds(finished.Float64)
	}
	return run, nil
}

// RecordDay replaces everything stored for res.Date with res, in one
// transaction. Episodes are keyed by EpisodeKey, so an episode already stored
// under another day moves to this one.
func (db *DB) RecordDay(ctx context.Context, runID string, maxGapSeconds int, res taxiin.DayResult) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM taxi_in_episode_points
		WHERE episode_id IN (
			SELECT episode_id FROM taxi_in_episodes WHERE date = ?
		)`, res.Date); err != nil {
		return fmt.Errorf("delete points for %s: %w", res.Date, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM taxi_in_episodes WHERE date = ?`, res.Date); err != nil {
		return fmt.Errorf("delete episodes for %s: %w", res.Date, err)
	}

	s := res.Summary
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO taxi_in_daily_summaries (
			date,
			run_id,
			taxi_in_count,
			avg_taxi_in_duration_min,
			total_duration_min,
			records_read,
			records_dropped,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, UNIXEPOCH('subsec'))
		ON CONFLICT(date) DO UPDATE SET
			run_id = excluded.run_id,
			taxi_in_count = excluded.taxi_in_count,
			avg_taxi_in_duration_min = excluded.avg_taxi_in_duration_min,
			total_duration_min = excluded.total_duration_min,
			records_read = excluded.records_read,
			records_dropped = excluded.records_dropped,
			updated_at = UNIXEPOCH('subsec')`,
		s.Date, runID, s.TaxiInCount, s.AvgDurationMin, s.TotalDurationMin,
		res.Drops.Read, res.Drops.Dropped(),
	); err != nil {
		return fmt.Errorf("upsert summary for %s: %w", res.Date, err)
	}

	upsertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO taxi_in_episodes (
			episode_key,
			run_id,
			date,
			icao24,
			callsign,
			start_unix,
			end_unix,
			duration_min,
			close_reason,
			max_gap_seconds,
			point_count,
			created_at,
			updated_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UNIXEPOCH('subsec'), UNIXEPOCH('subsec')
		)
		ON CONFLICT(episode_key) DO UPDATE SET
			run_id = excluded.run_id,
			date = excluded.date,
			callsign = excluded.callsign,
			end_unix = excluded.end_unix,
			duration_min = excluded.duration_min,
			close_reason = excluded.close_reason,
			point_count = excluded.point_count,
			updated_at = UNIXEPOCH('subsec')
	`)
	if err != nil {
		return err
	}
	defer upsertStmt.Close()

	pointStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO taxi_in_episode_points (
			episode_id,
			seq,
			ts_unix,
			onground,
			groundspeed,
			latitude,
			longitude,
			callsign
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer pointStmt.Close()

	type startKey struct {
		icao24 string
		start  int64
	}
	seen := make(map[startKey]int)
	for _, e := range res.Episodes {
		sk := startKey{e.ICAO24, e.Start.UnixNano()}
		key := EpisodeKey(e.ICAO24, e.Start, seen[sk], maxGapSeconds)
		seen[sk]++
		if _, err := upsertStmt.ExecContext(ctx, key, runID, res.Date, e.ICAO24, e.Callsign,
			unixSeconds(e.Start), unixSeconds(e.End), e.DurationMin, string(e.CloseReason),
			maxGapSeconds, len(e.Trajectory)); err != nil {
			return fmt.Errorf("upsert episode %s: %w", e.ICAO24, err)
		}

		// fetch episode_id for this key (either new or moved from another day)
		var episodeID int64
		if err := tx.QueryRowContext(ctx,
			`SELECT episode_id FROM taxi_in_episodes WHERE episode_key = ?`, key,
		).Scan(&episodeID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM taxi_in_episode_points WHERE episode_id = ?`, episodeID); err != nil {
			return err
		}

		for i, p := range e.Trajectory {
			if _, err := pointStmt.ExecContext(ctx, episodeID, i, unixSeconds(p.Timestamp),
				p.OnGround, p.GroundSpeed, p.Latitude, p.Longitude, p.Callsign); err != nil {
				return fmt.Errorf("insert point %d of %s: %w", i, e.ICAO24, err)
			}
		}
	}

	return tx.Commit()
}

// DailySummaries returns the stored summaries ordered by date.
func (db *DB) DailySummaries(ctx context.Context) ([]taxiin.DailySummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT date, taxi_in_count, avg_taxi_in_duration_min, total_duration_min
		FROM taxi_in_daily_summaries
		ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []taxiin.DailySummary
	for rows.Next() {
		var s taxiin.DailySummary
		if err := rows.Scan(&s.Date, &s.TaxiInCount, &s.AvgDurationMin, &s.TotalDurationMin); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Episodes returns the episodes stored for date, ordered by aircraft then
// start time. Trajectories are not loaded; see EpisodePoints.
func (db *DB) Episodes(ctx context.Context, date string) ([]StoredEpisode, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			episode_id, episode_key, run_id, date, icao24, COALESCE(callsign, ''),
			start_unix, end_unix, duration_min, close_reason, point_count
		FROM taxi_in_episodes
		WHERE date = ?
		ORDER BY icao24, start_unix, episode_id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredEpisode
	for rows.Next() {
		var (
			se         StoredEpisode
			start, end float64
			reason     string
		)
		if err := rows.Scan(&se.ID, &se.Key, &se.RunID, &se.Date, &se.Episode.ICAO24, &se.Episode.Callsign,
			&start, &end, &se.Episode.DurationMin, &reason, &se.PointCount); err != nil {
			return nil, err
		}
		se.Episode.Start = fromUnixSeconds(start)
		se.Episode.End = fromUnixSeconds(end)
		se.Episode.CloseReason = taxiin.CloseReason(reason)
		out = append(out, se)
	}
	return out, rows.Err()
}

// EpisodePoints loads the trajectory of one stored episode.
func (db *DB) EpisodePoints(ctx context.Context, se StoredEpisode) ([]adsb.StateVector, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ts_unix, onground, groundspeed, latitude, longitude, COALESCE(callsign, '')
		FROM taxi_in_episode_points
		WHERE episode_id = ?
		ORDER BY seq`, se.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adsb.StateVector
	for rows.Next() {
		sv := adsb.StateVector{ICAO24: se.Episode.ICAO24}
		var ts float64
		if err := rows.Scan(&ts, &sv.OnGround, &sv.GroundSpeed, &sv.Latitude, &sv.Longitude, &sv.Callsign); err != nil {
			return nil, err
		}
		sv.Timestamp = fromUnixSeconds(ts)
		out = append(out, sv)
	}
	return out, rows.Err()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// fromUnixSeconds rounds to the microsecond, the precision a float64 keeps
// for current epoch values.
func fromUnixSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*1e3).UTC()
}
