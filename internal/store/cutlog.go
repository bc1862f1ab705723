// Package store persists the cut log, the record of every camera switch the
// director recommended during a run.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/scenecast/director/internal/director"
	"github.com/scenecast/director/internal/geom"
)

// schema.sql defines the cuts table and its run index.
//
//go:embed schema.sql
var schemaSQL string

// CutLog is a sqlite-backed record of recommendation changes.
type CutLog struct {
	*sql.DB
	runID string
}

// Cut is one stored camera switch. FromCamera is empty for the first cut of
// a run and ToCamera is empty when the subject left every frustum.
type Cut struct {
	ID             int64   `json:"id"`
	RunID          string  `json:"run_id"`
	TimestampNs    int64   `json:"timestamp_ns"`
	SubjectID      string  `json:"subject_id"`
	FromCamera     string  `json:"from_camera"`
	ToCamera       string  `json:"to_camera"`
	Score          float64 `json:"score"`
	WriteTimestamp float64 `json:"write_timestamp"`
}

// Open creates or opens the cut log at path and applies the schema.
func Open(path, runID string) (*CutLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply cut log schema: %v", err)
	}
	return &CutLog{DB: db, runID: runID}, nil
}

// RecordCut appends one camera switch to the log.
func (l *CutLog) RecordCut(timestampNanos int64, subject director.SubjectID, from, to geom.CameraID, score float64) error {
	query := `
		INSERT INTO cuts (run_id, timestamp_ns, subject_id, from_camera, to_camera, score)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := l.Exec(query, l.runID, timestampNanos, string(subject), string(from), string(to), score)
	if err != nil {
		return fmt.Errorf("failed to insert cut: %v", err)
	}

	return nil
}

// RecentCuts returns the most recent cuts for this run, newest first.
func (l *CutLog) RecentCuts(limit int) ([]Cut, error) {
	query := `
		SELECT id, run_id, timestamp_ns, subject_id, from_camera, to_camera, score, write_timestamp
		FROM cuts
		WHERE run_id = ?
		ORDER BY timestamp_ns DESC
		LIMIT ?
	`

	rows, err := l.Query(query, l.runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cuts: %v", err)
	}
	defer rows.Close()

	var cuts []Cut
	for rows.Next() {
		var c Cut
		if err := rows.Scan(&c.ID, &c.RunID, &c.TimestampNs, &c.SubjectID, &c.FromCamera, &c.ToCamera, &c.Score, &c.WriteTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan cut row: %v", err)
		}
		cuts = append(cuts, c)
	}
	return cuts, rows.Err()
}

// CutCount returns the number of cuts recorded for this run.
func (l *CutLog) CutCount() (int, error) {
	var n int
	err := l.QueryRow(`SELECT COUNT(*) FROM cuts WHERE run_id = ?`, l.runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cuts: %v", err)
	}
	return n, nil
}
