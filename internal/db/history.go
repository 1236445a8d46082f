// Package db keeps the delivery history: one row per successfully printed
// job, written when the job leaves the queue. The pending queue itself
// lives in the JSON file store, not here.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/orrn/printflow/internal/core"
)

type History struct {
	db *sql.DB
}

type Entry struct {
	ID             int64     `json:"id"`
	JobID          string    `json:"job_id"`
	DeliveryNumber string    `json:"delivery_number"`
	DisplayName    string    `json:"display_name"`
	PrinterIndex   int       `json:"printer_index"`
	Attempts       int       `json:"attempts"`
	Copies         int       `json:"copies"`
	CompletedAt    time.Time `json:"completed_at"`
}

func Open(path string) (*History, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &History{db: conn}, nil
}

func migrate(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS delivery_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL,
			delivery_number TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			printer_index INTEGER NOT NULL DEFAULT 0,
			attempts INTEGER NOT NULL DEFAULT 0,
			copies INTEGER NOT NULL DEFAULT 1,
			completed_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create delivery_history table: %w", err)
	}
	_, err = conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_delivery_history_completed_at
		ON delivery_history (completed_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to index delivery_history: %w", err)
	}
	return nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// RecordCompleted archives a job that just finished printing.
func (h *History) RecordCompleted(qj *core.QueuedJob) error {
	_, err := h.db.Exec(`
		INSERT INTO delivery_history (job_id, delivery_number, display_name, printer_index, attempts, copies, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, qj.ID, qj.Job.DeliveryNumber, qj.Job.DisplayName, qj.PrinterIndex, qj.Attempts, qj.Job.Options.Copies, time.Now())
	if err != nil {
		return fmt.Errorf("insert history row: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (h *History) List(limit, offset int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.Query(`
		SELECT id, job_id, delivery_number, display_name, printer_index, attempts, copies, completed_at
		FROM delivery_history
		ORDER BY completed_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		err := rows.Scan(&e.ID, &e.JobID, &e.DeliveryNumber, &e.DisplayName,
			&e.PrinterIndex, &e.Attempts, &e.Copies, &e.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountToday returns how many jobs completed since local midnight.
func (h *History) CountToday() (int, error) {
	var count int
	midnight := time.Now().Truncate(24 * time.Hour)
	err := h.db.QueryRow(`
		SELECT COUNT(*) FROM delivery_history WHERE completed_at >= ?
	`, midnight).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}
