// Package store persists exams, marked attempts and in-progress
// sessions. All three share one records table keyed by an opaque id,
// a kind tag and an owning user (nullable for shared exams).
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record is missing or not visible to
// the caller.
var ErrNotFound = errors.New("record not found")

// RecordKind tags what a stored record holds.
type RecordKind string

const (
	KindExam     RecordKind = "exam"
	KindAttempt  RecordKind = "attempt"
	KindProgress RecordKind = "progress"
)

// Record is one row of the shared records table.
type Record struct {
	ID        string
	Kind      RecordKind
	OwnerID   *int64 // nil for shared exams
	Label     string
	Payload   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordFilter narrows a ListRecords query. Zero values mean no
// filtering on that field.
type RecordFilter struct {
	Kind          RecordKind
	OwnerID       *int64
	LabelContains string
}

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		owner_id INTEGER,
		label TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_kind_owner ON records(kind, owner_id);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateRecord stores payload under a fresh id and returns the id.
func (s *Store) CreateRecord(kind RecordKind, ownerID *int64, label string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO records (id, kind, owner_id, label, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, kind, ownerID, label, string(data), now, now,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetRecord returns a record by id.
func (s *Store) GetRecord(id string) (*Record, error) {
	var r Record
	err := s.db.QueryRow(
		`SELECT id, kind, owner_id, label, payload, created_at, updated_at FROM records WHERE id = ?`, id,
	).Scan(&r.ID, &r.Kind, &r.OwnerID, &r.Label, (*recordPayload)(&r.Payload), &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRecordLabel renames a record without touching its payload.
func (s *Store) UpdateRecordLabel(id, label string) error {
	res, err := s.db.Exec(
		`UPDATE records SET label = ?, updated_at = ? WHERE id = ?`,
		label, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateRecordPayload replaces a record's payload.
func (s *Store) UpdateRecordPayload(id string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE records SET payload = ?, updated_at = ? WHERE id = ?`,
		string(data), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteRecord removes a record by id.
func (s *Store) DeleteRecord(id string) error {
	res, err := s.db.Exec(`DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ListRecords returns records matching the filter, newest first.
func (s *Store) ListRecords(f RecordFilter) ([]Record, error) {
	query := `SELECT id, kind, owner_id, label, payload, created_at, updated_at FROM records WHERE 1=1`
	var args []any
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	if f.OwnerID != nil {
		query += ` AND owner_id = ?`
		args = append(args, *f.OwnerID)
	}
	if f.LabelContains != "" {
		query += ` AND label LIKE '%' || ? || '%'`
		args = append(args, f.LabelContains)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Kind, &r.OwnerID, &r.Label, (*recordPayload)(&r.Payload), &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// recordPayload scans the payload TEXT column into json.RawMessage.
type recordPayload json.RawMessage

func (p *recordPayload) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*p = recordPayload(v)
	case []byte:
		*p = recordPayload(append([]byte(nil), v...))
	default:
		return fmt.Errorf("unexpected payload type %T", src)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
