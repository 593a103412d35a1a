// Package store provides storage backends for the supbridge event journal.
//
// This file implements the SQLite-backed journal.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/fernwick/supbridge/internal/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is a SQLite-backed event journal.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite journal at the configured DSN (a file
// path). The parent directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.SQLiteDSN != "")

	dsn := cfg.SQLiteDSN
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite journal ready", "db_path", dsn)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddEvent(event models.SyncEvent) error {
	_, err := s.db.Exec(
		`INSERT INTO sync_events (id, channel, chat_id, message_id, sender_id, body, is_dm, mentions, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), event.Channel, event.ChatID, event.MessageID, event.SenderID,
		event.Text, event.IsDM, mentionsToText(event.Mentions), time.Now(),
	)
	if err != nil {
		slog.Error("SQLiteStore AddEvent failed", "error", err, "message_id", event.MessageID)
		return fmt.Errorf("failed to insert event for message %s: %w", event.MessageID, err)
	}
	return nil
}

func (s *SQLiteStore) GetEvents() ([]models.EventRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, channel, chat_id, message_id, sender_id, body, is_dm, mentions, recorded_at
		 FROM sync_events ORDER BY recorded_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var records []models.EventRecord
	for rows.Next() {
		rec, err := scanEventRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) AddReceipt(r models.SendReceipt) error {
	_, err := s.db.Exec(
		`INSERT INTO send_receipts (chat_id, optimistic_id, status, time) VALUES (?, ?, ?, ?)`,
		r.ChatID, r.OptimisticID, r.Status, r.Time,
	)
	if err != nil {
		slog.Error("SQLiteStore AddReceipt failed", "error", err, "chat_id", r.ChatID)
		return fmt.Errorf("failed to insert receipt for chat %s: %w", r.ChatID, err)
	}
	return nil
}

func (s *SQLiteStore) GetReceipts() ([]models.SendReceipt, error) {
	rows, err := s.db.Query(`SELECT chat_id, optimistic_id, status, time FROM send_receipts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.SendReceipt
	for rows.Next() {
		var r models.SendReceipt
		if err := rows.Scan(&r.ChatID, &r.OptimisticID, &r.Status, &r.Time); err != nil {
			return nil, fmt.Errorf("scan receipt failed: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

func (s *SQLiteStore) ClearEvents() error {
	_, err := s.db.Exec(`DELETE FROM sync_events`)
	return err
}

func (s *SQLiteStore) ClearReceipts() error {
	_, err := s.db.Exec(`DELETE FROM send_receipts`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanEventRecord scans an EventRecord from sql.Rows.
func scanEventRecord(rows *sql.Rows) (models.EventRecord, error) {
	var rec models.EventRecord
	var mentions string
	err := rows.Scan(
		&rec.ID, &rec.Event.Channel, &rec.Event.ChatID, &rec.Event.MessageID,
		&rec.Event.SenderID, &rec.Event.Text, &rec.Event.IsDM, &mentions, &rec.RecordedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("scan event failed: %w", err)
	}
	rec.Event.Mentions = textToMentions(mentions)
	return rec, nil
}
