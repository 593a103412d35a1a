// Package store provides storage backends for the supbridge event journal.
//
// This file implements the PostgreSQL-backed journal.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/fernwick/supbridge/internal/models"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore is a PostgreSQL-backed event journal.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL journal using the configured DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.PostgresDSN != "")

	dsn := cfg.PostgresDSN
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run PostgreSQL migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL journal ready")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddEvent(event models.SyncEvent) error {
	_, err := s.db.Exec(
		`INSERT INTO sync_events (id, channel, chat_id, message_id, sender_id, body, is_dm, mentions, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), event.Channel, event.ChatID, event.MessageID, event.SenderID,
		event.Text, event.IsDM, mentionsToText(event.Mentions), time.Now(),
	)
	if err != nil {
		slog.Error("PostgresStore AddEvent failed", "error", err, "message_id", event.MessageID)
		return fmt.Errorf("failed to insert event for message %s: %w", event.MessageID, err)
	}
	return nil
}

func (s *PostgresStore) GetEvents() ([]models.EventRecord, error) {
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

func (s *PostgresStore) AddReceipt(r models.SendReceipt) error {
	_, err := s.db.Exec(
		`INSERT INTO send_receipts (chat_id, optimistic_id, status, time) VALUES ($1, $2, $3, $4)`,
		r.ChatID, r.OptimisticID, r.Status, r.Time,
	)
	if err != nil {
		slog.Error("PostgresStore AddReceipt failed", "error", err, "chat_id", r.ChatID)
		return fmt.Errorf("failed to insert receipt for chat %s: %w", r.ChatID, err)
	}
	return nil
}

func (s *PostgresStore) GetReceipts() ([]models.SendReceipt, error) {
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

func (s *PostgresStore) ClearEvents() error {
	_, err := s.db.Exec(`DELETE FROM sync_events`)
	return err
}

func (s *PostgresStore) ClearReceipts() error {
	_, err := s.db.Exec(`DELETE FROM send_receipts`)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
