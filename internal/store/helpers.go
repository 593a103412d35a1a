package store

import (
	"log/slog"
	"strings"
)

// DetectDSNType determines whether a DSN refers to PostgreSQL or SQLite.
// PostgreSQL DSNs use the postgres:// scheme or key=value connection
// strings; everything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// NewStore creates a journal store backend based on the configured DSN.
// No DSN means an in-memory journal.
func NewStore(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	switch {
	case cfg.PostgresDSN != "":
		slog.Debug("NewStore selecting PostgreSQL backend")
		return NewPostgresStore(opts...)
	case cfg.SQLiteDSN != "":
		slog.Debug("NewStore selecting SQLite backend", "db_path", cfg.SQLiteDSN)
		return NewSQLiteStore(opts...)
	default:
		slog.Debug("NewStore selecting in-memory backend")
		return NewInMemoryStore(), nil
	}
}

// mentionsToText flattens a mention list into a comma-separated column value.
func mentionsToText(mentions []string) string {
	return strings.Join(mentions, ",")
}

// textToMentions reverses mentionsToText. Empty text means no mentions.
func textToMentions(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, ",")
}
