package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reviewsync/internal/timeline"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cameras (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS recordings (
		id TEXT PRIMARY KEY,
		camera TEXT NOT NULL REFERENCES cameras(id) ON DELETE CASCADE,
		path TEXT NOT NULL UNIQUE,
		start_time REAL NOT NULL,
		end_time REAL NOT NULL,
		duration REAL NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_recordings_camera_time ON recordings(camera, start_time, end_time);

	CREATE TABLE IF NOT EXISTS review_segments (
		id TEXT PRIMARY KEY,
		camera TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time REAL,
		severity TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_review_camera_time ON review_segments(camera, start_time);

	CREATE TABLE IF NOT EXISTS motion (
		camera TEXT NOT NULL,
		start_time REAL NOT NULL,
		motion INTEGER NOT NULL DEFAULT 0,
		audio REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (camera, start_time)
	);

	CREATE TABLE IF NOT EXISTS exports (
		id TEXT PRIMARY KEY,
		camera TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time REAL NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS playback_positions (
		camera TEXT PRIMARY KEY,
		position REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_playback_updated ON playback_positions(updated_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Cameras

func (s *SQLiteStorage) UpsertCamera(c *Camera) error {
	_, err := s.db.Exec(`
		INSERT INTO cameras (id, name, path, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, path = excluded.path
	`, c.ID, c.Name, c.Path, c.CreatedAt)
	return err
}

func (s *SQLiteStorage) ListCameras() ([]Camera, error) {
	rows, err := s.db.Query(`SELECT id, name, path, created_at FROM cameras ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cameras []Camera
	for rows.Next() {
		var c Camera
		if err := rows.Scan(&c.ID, &c.Name, &c.Path, &c.CreatedAt); err != nil {
			return nil, err
		}
		cameras = append(cameras, c)
	}

	return cameras, rows.Err()
}

// Recordings

func (s *SQLiteStorage) CreateRecording(r *Recording) error {
	_, err := s.db.Exec(`
		INSERT INTO recordings (id, camera, path, start_time, end_time, duration, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			duration = excluded.duration,
			size = excluded.size
	`, r.ID, r.Camera, r.Path, r.StartTime, r.EndTime, r.Duration, r.Size, r.CreatedAt)
	return err
}

func (s *SQLiteStorage) GetRecording(id string) (*Recording, error) {
	row := s.db.QueryRow(`
		SELECT id, camera, path, start_time, end_time, duration, size, created_at
		FROM recordings WHERE id = ?
	`, id)

	var r Recording
	err := row.Scan(&r.ID, &r.Camera, &r.Path, &r.StartTime, &r.EndTime, &r.Duration, &r.Size, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecordingsInRange returns the recordings of camera overlapping tr, oldest first.
func (s *SQLiteStorage) RecordingsInRange(camera string, tr timeline.TimeRange) ([]Recording, error) {
	rows, err := s.db.Query(`
		SELECT id, camera, path, start_time, end_time, duration, size, created_at
		FROM recordings
		WHERE camera = ? AND end_time > ? AND start_time < ?
		ORDER BY start_time
	`, camera, tr.After, tr.Before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Recording
	for rows.Next() {
		var r Recording
		if err := rows.Scan(&r.ID, &r.Camera, &r.Path, &r.StartTime, &r.EndTime, &r.Duration, &r.Size, &r.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}

	return recs, rows.Err()
}

// RecordingAt returns the recording of camera that contains ts.
func (s *SQLiteStorage) RecordingAt(camera string, ts float64) (*Recording, error) {
	row := s.db.QueryRow(`
		SELECT id, camera, path, start_time, end_time, duration, size, created_at
		FROM recordings
		WHERE camera = ? AND start_time <= ? AND end_time >= ?
		ORDER BY start_time DESC LIMIT 1
	`, camera, ts, ts)

	var r Recording
	err := row.Scan(&r.ID, &r.Camera, &r.Path, &r.StartTime, &r.EndTime, &r.Duration, &r.Size, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Coverage returns the part of window that camera has recordings for, from
// its first to its last overlapping recording.
func (s *SQLiteStorage) Coverage(camera string, window timeline.TimeRange) (timeline.TimeRange, bool, error) {
	var first, last sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT MIN(start_time), MAX(end_time)
		FROM recordings
		WHERE camera = ? AND end_time > ? AND start_time < ?
	`, camera, window.After, window.Before).Scan(&first, &last)
	if err != nil {
		return timeline.TimeRange{}, false, err
	}
	if !first.Valid || !last.Valid {
		return timeline.TimeRange{}, false, nil
	}

	covered, ok := window.Intersect(timeline.TimeRange{After: first.Float64, Before: last.Float64})
	return covered, ok, nil
}

// GetAllRecordingPaths returns all recording file paths for cleanup
func (s *SQLiteStorage) GetAllRecordingPaths() (map[string]string, error) {
	rows, err := s.db.Query("SELECT id, path FROM recordings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make(map[string]string)
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, err
		}
		paths[id] = path
	}
	return paths, rows.Err()
}

func (s *SQLiteStorage) DeleteRecording(id string) error {
	_, err := s.db.Exec("DELETE FROM recordings WHERE id = ?", id)
	return err
}

// Review segments

func (s *SQLiteStorage) CreateReviewSegment(r *ReviewSegment) error {
	_, err := s.db.Exec(`
		INSERT INTO review_segments (id, camera, start_time, end_time, severity, label)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			end_time = excluded.end_time,
			severity = excluded.severity,
			label = excluded.label
	`, r.ID, r.Camera, r.StartTime, r.EndTime, r.Severity, r.Label)
	return err
}

// ReviewSegmentsInRange returns review items of camera that start in tr or are
// still ongoing when tr begins.
func (s *SQLiteStorage) ReviewSegmentsInRange(camera string, tr timeline.TimeRange) ([]ReviewSegment, error) {
	rows, err := s.db.Query(`
		SELECT id, camera, start_time, end_time, severity, label
		FROM review_segments
		WHERE camera = ? AND start_time < ? AND (end_time IS NULL OR end_time > ?)
		ORDER BY start_time
	`, camera, tr.Before, tr.After)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ReviewSegment
	for rows.Next() {
		var r ReviewSegment
		if err := rows.Scan(&r.ID, &r.Camera, &r.StartTime, &r.EndTime, &r.Severity, &r.Label); err != nil {
			return nil, err
		}
		items = append(items, r)
	}

	return items, rows.Err()
}

// Motion

func (s *SQLiteStorage) AddMotion(m *MotionData) error {
	_, err := s.db.Exec(`
		INSERT INTO motion (camera, start_time, motion, audio)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(camera, start_time) DO UPDATE SET
			motion = excluded.motion,
			audio = excluded.audio
	`, m.Camera, m.StartTime, m.Motion, m.Audio)
	return err
}

func (s *SQLiteStorage) MotionInRange(camera string, tr timeline.TimeRange) ([]MotionData, error) {
	rows, err := s.db.Query(`
		SELECT camera, start_time, motion, audio
		FROM motion
		WHERE camera = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time
	`, camera, tr.After, tr.Before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MotionData
	for rows.Next() {
		var m MotionData
		if err := rows.Scan(&m.Camera, &m.StartTime, &m.Motion, &m.Audio); err != nil {
			return nil, err
		}
		items = append(items, m)
	}

	return items, rows.Err()
}

// Exports

func (s *SQLiteStorage) CreateExport(e *Export) error {
	_, err := s.db.Exec(`
		INSERT INTO exports (id, camera, start_time, end_time, name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Camera, e.StartTime, e.EndTime, e.Name, e.Status, e.CreatedAt)
	return err
}

func (s *SQLiteStorage) ListExports(limit int) ([]Export, error) {
	rows, err := s.db.Query(`
		SELECT id, camera, start_time, end_time, name, status, created_at
		FROM exports ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Export
	for rows.Next() {
		var e Export
		if err := rows.Scan(&e.ID, &e.Camera, &e.StartTime, &e.EndTime, &e.Name, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}

	return items, rows.Err()
}

// Playback positions

// SavePlaybackPosition saves or updates the last reviewed position of a camera
func (s *SQLiteStorage) SavePlaybackPosition(p *PlaybackPosition) error {
	_, err := s.db.Exec(`
		INSERT INTO playback_positions (camera, position, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(camera) DO UPDATE SET
			position = excluded.position,
			updated_at = excluded.updated_at
	`, p.Camera, p.Position, time.Now())
	return err
}

func (s *SQLiteStorage) GetPlaybackPosition(camera string) (*PlaybackPosition, error) {
	row := s.db.QueryRow(`
		SELECT camera, position, updated_at
		FROM playback_positions WHERE camera = ?
	`, camera)

	var p PlaybackPosition
	err := row.Scan(&p.Camera, &p.Position, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}
