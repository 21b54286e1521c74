package store

import (
	"database/sql"
	"errors"
	"time"
)

// RecordingStatus is the lifecycle state of a stored recording.
type RecordingStatus string

const (
	RecordingActive   RecordingStatus = "recording"
	RecordingFinished RecordingStatus = "finished"
	RecordingFailed   RecordingStatus = "failed"
)

// Recording is an indexed video file.
type Recording struct {
	ID        string          `json:"id"`
	Path      string          `json:"path"`
	Trigger   string          `json:"trigger"`
	Status    RecordingStatus `json:"status"`
	Frames    int             `json:"frames"`
	Error     string          `json:"error,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
}

// RecordingRepository provides CRUD operations for recordings.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

const recordingColumns = `id, path, trigger, status, frames, error, started_at, ended_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecording(row scanner) (*Recording, error) {
	r := &Recording{}
	var status string
	var endedAt sql.NullTime

	if err := row.Scan(&r.ID, &r.Path, &r.Trigger, &status, &r.Frames, &r.Error, &r.StartedAt, &endedAt); err != nil {
		return nil, err
	}

	r.Status = RecordingStatus(status)
	if endedAt.Valid {
		t := endedAt.Time
		r.EndedAt = &t
	}
	return r, nil
}

// Create inserts a new recording. Status defaults to RecordingActive.
func (r *RecordingRepository) Create(rec *Recording) error {
	if rec.Status == "" {
		rec.Status = RecordingActive
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO recordings (id, path, trigger, status, frames, error, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Path, rec.Trigger, string(rec.Status), rec.Frames, rec.Error, rec.StartedAt,
	)
	return err
}

// Finish marks a recording as ended with the given outcome.
func (r *RecordingRepository) Finish(id string, status RecordingStatus, frames int, endedAt time.Time, errMsg string) error {
	result, err := r.db.Exec(
		`UPDATE recordings SET status = ?, frames = ?, ended_at = ?, error = ? WHERE id = ?`,
		string(status), frames, endedAt, errMsg, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a recording by its ID.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec, err := scanRecording(r.db.QueryRow(
		`SELECT `+recordingColumns+` FROM recordings WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List retrieves recordings newest first. A limit of 0 or less returns all.
func (r *RecordingRepository) List(limit int) ([]*Recording, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT `+recordingColumns+` FROM recordings ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordings []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recordings, nil
}

// MarkInterrupted flags recordings left in the active state by an unclean
// shutdown as failed. It returns the number of rows changed.
func (r *RecordingRepository) MarkInterrupted() (int64, error) {
	result, err := r.db.Exec(
		`UPDATE recordings SET status = ?, error = ? WHERE status = ?`,
		string(RecordingFailed), "interrupted", string(RecordingActive),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete removes a recording from the database by its ID.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
