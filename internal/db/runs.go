package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one processed video.
type Run struct {
	ID        string
	Source    string
	Width     int
	Height    int
	FrameRate float64
	Started   time.Time
	Finished  *time.Time // nil while the run is in progress
	Total     int
}

// Event is one counted vehicle.
type Event struct {
	ID          int64
	RunID       string
	FrameNumber int
	Zone        int // -1 when the vehicle left the frame
	Total       int // running total after this vehicle
	Recorded    time.Time
}

// StartRun inserts r and returns its ID. A fresh UUID is assigned when
// r.ID is empty.
func (db *DB) StartRun(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := db.Exec(`
		INSERT INTO count_runs (run_id, source, width, height, frame_rate, started_unix_nanos, total)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Source, r.Width, r.Height, r.FrameRate, r.Started.UnixNano(), r.Total,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return r.ID, nil
}

// FinishRun stamps the finish time and final total.
func (db *DB) FinishRun(runID string, total int, finished time.Time) error {
	res, err := db.Exec(`
		UPDATE count_runs SET finished_unix_nanos = ?, total = ? WHERE run_id = ?`,
		finished.UnixNano(), total, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// RecordEvent inserts e.
func (db *DB) RecordEvent(e Event) error {
	_, err := db.Exec(`
		INSERT INTO count_events (run_id, frame_number, zone, total, recorded_unix_nanos)
		VALUES (?, ?, ?, ?, ?)`,
		e.RunID, e.FrameNumber, e.Zone, e.Total, e.Recorded.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert event for run %s: %w", e.RunID, err)
	}
	return nil
}

// GetRun loads one run.
func (db *DB) GetRun(runID string) (*Run, error) {
	var (
		r        Run
		started  int64
		finished sql.NullInt64
	)
	err := db.QueryRow(`
		SELECT run_id, source, width, height, frame_rate, started_unix_nanos, finished_unix_nanos, total
		FROM count_runs WHERE run_id = ?`, runID,
	).Scan(&r.ID, &r.Source, &r.Width, &r.Height, &r.FrameRate, &started, &finished, &r.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	r.Started = time.Unix(0, started)
	if finished.Valid {
		t := time.Unix(0, finished.Int64)
		r.Finished = &t
	}
	return &r, nil
}

// Events returns a run's events in frame order.
func (db *DB) Events(runID string) ([]Event, error) {
	rows, err := db.Query(`
		SELECT event_id, run_id, frame_number, zone, total, recorded_unix_nanos
		FROM count_events WHERE run_id = ? ORDER BY frame_number, event_id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events for run %s: %w", runID, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e        Event
			recorded int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.FrameNumber, &e.Zone, &e.Total, &recorded); err != nil {
			return nil, err
		}
		e.Recorded = time.Unix(0, recorded)
		events = append(events, e)
	}
	return events, rows.Err()
}

// ZoneTotals returns the number of events per zone for a run.
func (db *DB) ZoneTotals(runID string) (map[int]int, error) {
	rows, err := db.Query(`
		SELECT zone, COUNT(*) FROM count_events WHERE run_id = ? GROUP BY zone`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query zone totals for run %s: %w", runID, err)
	}
	defer rows.Close()

	totals := make(map[int]int)
	for rows.Next() {
		var zone, n int
		if err := rows.Scan(&zone, &n); err != nil {
			return nil, err
		}
		totals[zone] = n
	}
	return totals, rows.Err()
}
