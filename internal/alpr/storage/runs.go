package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image/png"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/results"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is the persisted record of one pipeline run.
type Run struct {
	ID           string
	Source       string
	Mode         alpr.Mode
	MaxFrames    int
	ConfigJSON   string
	StartedAt    time.Time
	FinishedAt   time.Time
	Frames       int
	Candidates   int
	Stored       int
	StopReason   string
	StatusCounts map[string]int
}

// PlateRead is one persisted store entry.
type PlateRead struct {
	RunID      string
	Frame      int
	TrackID    int
	Seq        int // position of the track within its frame
	Text       string
	Confidence float64
	Plate      alpr.Detection
	CropPNG    []byte
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// SaveRun writes the run, its status counts and every entry in one
// transaction. Entries must be in store order.
func (db *DB) SaveRun(ctx context.Context, run Run, entries []results.Entry) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.ConfigJSON == "" {
		run.ConfigJSON = "{}"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, source, mode, max_frames, config_json,
			started_unix_ns, finished_unix_ns, frames_processed, candidates, stored, stop_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, string(run.Mode), run.MaxFrames, run.ConfigJSON,
		run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(),
		run.Frames, run.Candidates, run.Stored, run.StopReason,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	statuses := make([]string, 0, len(run.StatusCounts))
	for s := range run.StatusCounts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_status_counts (run_id, status, count) VALUES (?, ?, ?)`,
			run.ID, s, run.StatusCounts[s]); err != nil {
			return fmt.Errorf("insert status count %s: %w", s, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO plate_reads (run_id, frame_index, track_id, seq, text, confidence,
			plate_x1, plate_y1, plate_x2, plate_y2, plate_score, crop_png)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare plate insert: %w", err)
	}
	defer stmt.Close()

	seq, lastFrame := 0, -1
	for _, e := range entries {
		if e.Frame != lastFrame {
			seq, lastFrame = 0, e.Frame
		}
		var crop []byte
		if !e.Outcome.Crop.Empty() {
			var buf bytes.Buffer
			if err := png.Encode(&buf, e.Outcome.Crop); err != nil {
				return fmt.Errorf("encode crop frame %d track %d: %w", e.Frame, e.TrackID, err)
			}
			crop = buf.Bytes()
		}
		p := e.Outcome.Plate
		if _, err := stmt.ExecContext(ctx,
			run.ID, e.Frame, e.TrackID, seq, e.Outcome.Text, e.Outcome.Confidence,
			p.Box.X1, p.Box.Y1, p.Box.X2, p.Box.Y2, p.Score, crop,
		); err != nil {
			return fmt.Errorf("insert plate read frame %d track %d: %w", e.Frame, e.TrackID, err)
		}
		seq++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRun loads a run with its status counts.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := db.QueryRowContext(ctx, `
		SELECT run_id, source, mode, max_frames, config_json, started_unix_ns,
			COALESCE(finished_unix_ns, 0), frames_processed, candidates, stored, COALESCE(stop_reason, '')
		FROM runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT status, count FROM run_status_counts WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()
	run.StatusCounts = make(map[string]int)
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		run.StatusCounts[s] = n
	}
	return run, rows.Err()
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `
		SELECT run_id, source, mode, max_frames, config_json, started_unix_ns,
			COALESCE(finished_unix_ns, 0), frames_processed, candidates, stored, COALESCE(stop_reason, '')
		FROM runs ORDER BY started_unix_ns DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r                 Run
		mode              string
		started, finished int64
	)
	if err := s.Scan(&r.ID, &r.Source, &mode, &r.MaxFrames, &r.ConfigJSON, &started, &finished,
		&r.Frames, &r.Candidates, &r.Stored, &r.StopReason); err != nil {
		return nil, err
	}
	r.Mode = alpr.Mode(mode)
	r.StartedAt = time.Unix(0, started).UTC()
	if finished != 0 {
		r.FinishedAt = time.Unix(0, finished).UTC()
	}
	return &r, nil
}

// PlateReads returns the reads of a run in store order.
func (db *DB) PlateReads(ctx context.Context, runID string) ([]PlateRead, error) {
	return db.queryReads(ctx, `WHERE run_id = ? ORDER BY frame_index, seq`, runID)
}

// FindByText returns every read of text across runs, newest run first.
func (db *DB) FindByText(ctx context.Context, text string) ([]PlateRead, error) {
	return db.queryReads(ctx, `
		WHERE text = ?
		ORDER BY (SELECT started_unix_ns FROM runs r WHERE r.run_id = plate_reads.run_id) DESC,
			frame_index, seq`, text)
}

func (db *DB) queryReads(ctx context.Context, where string, args ...interface{}) ([]PlateRead, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, frame_index, track_id, seq, text, confidence,
			COALESCE(plate_x1, 0), COALESCE(plate_y1, 0), COALESCE(plate_x2, 0), COALESCE(plate_y2, 0),
			COALESCE(plate_score, 0), crop_png
		FROM plate_reads `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query plate reads: %w", err)
	}
	defer rows.Close()

	var out []PlateRead
	for rows.Next() {
		var r PlateRead
		if err := rows.Scan(&r.RunID, &r.Frame, &r.TrackID, &r.Seq, &r.Text, &r.Confidence,
			&r.Plate.Box.X1, &r.Plate.Box.Y1, &r.Plate.Box.X2, &r.Plate.Box.Y2,
			&r.Plate.Score, &r.CropPNG); err != nil {
			return nil, fmt.Errorf("scan plate read: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
