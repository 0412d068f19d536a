package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Recording is a saved input recording in its JSON form.
type Recording struct {
	ID          string
	Name        string
	Touchpoints int
	DurationMs  float64
	Data        json.RawMessage
	CreatedAt   time.Time
}

// RecordingRepository provides CRUD operations for recordings.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts a recording. An empty ID is filled with a fresh UUID.
func (r *RecordingRepository) Create(rec *Recording) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO recordings (id, name, touchpoints, duration_ms, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Touchpoints, rec.DurationMs, string(rec.Data), rec.CreatedAt,
	)
	return err
}

// GetByID retrieves a recording including its data.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec := &Recording{}
	var data string

	err := r.db.QueryRow(
		`SELECT id, name, touchpoints, duration_ms, data, created_at FROM recordings WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.Name, &rec.Touchpoints, &rec.DurationMs, &data, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec.Data = json.RawMessage(data)
	return rec, nil
}

// List retrieves all recordings, newest first, without their data.
func (r *RecordingRepository) List() ([]*Recording, error) {
	rows, err := r.db.Query(
		`SELECT id, name, touchpoints, duration_ms, created_at FROM recordings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordings []*Recording
	for rows.Next() {
		rec := &Recording{}
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Touchpoints, &rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}
	return recordings, rows.Err()
}

// Delete removes a recording by its ID.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}
