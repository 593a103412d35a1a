// Package store provides storage backends for the supbridge event journal.
//
// The journal records emitted sync events and outbound send receipts for
// diagnostics and the control API. It is deliberately not used for dedup
// state, which lives in memory for the life of one sync loop.
package store

import (
	"sync"
	"time"

	"github.com/fernwick/supbridge/internal/models"
	"github.com/google/uuid"
)

// Store defines the interface for the event journal.
type Store interface {
	// AddEvent journals one emitted sync event.
	AddEvent(event models.SyncEvent) error

	// GetEvents returns all journaled events in insertion order.
	GetEvents() ([]models.EventRecord, error)

	// AddReceipt journals one outbound send receipt.
	AddReceipt(r models.SendReceipt) error

	// GetReceipts returns all journaled receipts in insertion order.
	GetReceipts() ([]models.SendReceipt, error)

	// ClearEvents removes all journaled events.
	ClearEvents() error

	// ClearReceipts removes all journaled receipts.
	ClearReceipts() error

	// Close releases any held resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	SQLiteDSN   string
	PostgresDSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.SQLiteDSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.PostgresDSN = dsn
	}
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is a simple in-memory journal, used when no database DSN is
// configured and in tests.
type InMemoryStore struct {
	mu       sync.Mutex
	events   []models.EventRecord
	receipts []models.SendReceipt
}

// NewInMemoryStore creates an empty in-memory journal.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AddEvent(event models.SyncEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, models.EventRecord{
		ID:         uuid.NewString(),
		Event:      event,
		RecordedAt: time.Now(),
	})
	return nil
}

func (s *InMemoryStore) GetEvents() ([]models.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]models.EventRecord, len(s.events))
	copy(events, s.events)
	return events, nil
}

func (s *InMemoryStore) AddReceipt(r models.SendReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

func (s *InMemoryStore) GetReceipts() ([]models.SendReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	receipts := make([]models.SendReceipt, len(s.receipts))
	copy(receipts, s.receipts)
	return receipts, nil
}

func (s *InMemoryStore) ClearEvents() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	return nil
}

func (s *InMemoryStore) ClearReceipts() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = nil
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
