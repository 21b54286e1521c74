package store

import (
	"database/sql"
	"errors"
	"time"
)

// Snapshot is an indexed still image.
type Snapshot struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotRepository provides operations on saved snapshots.
type SnapshotRepository struct {
	db *sql.DB
}

// Snapshots returns the snapshot repository for this store.
func (s *Store) Snapshots() *SnapshotRepository {
	return &SnapshotRepository{db: s.db}
}

// Create inserts a new snapshot.
func (r *SnapshotRepository) Create(s *Snapshot) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO snapshots (id, path, width, height, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Path, s.Width, s.Height, s.SizeBytes, s.CreatedAt,
	)
	return err
}

// GetByID retrieves a snapshot by its ID.
func (r *SnapshotRepository) GetByID(id string) (*Snapshot, error) {
	s := &Snapshot{}
	err := r.db.QueryRow(
		`SELECT id, path, width, height, size_bytes, created_at FROM snapshots WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Path, &s.Width, &s.Height, &s.SizeBytes, &s.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List retrieves snapshots newest first. A limit of 0 or less returns all.
func (r *SnapshotRepository) List(limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, path, width, height, size_bytes, created_at
		 FROM snapshots ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		s := &Snapshot{}
		if err := rows.Scan(&s.ID, &s.Path, &s.Width, &s.Height, &s.SizeBytes, &s.CreatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}
