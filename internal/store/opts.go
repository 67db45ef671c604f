package store

import "log/slog"

// Opts holds configuration options for store creation.
type Opts struct {
	// DSN is the database connection string. PostgreSQL DSNs start with
	// postgres:// or use key=value form; anything else is treated as a
	// SQLite file path. Empty means in-memory.
	DSN string
}

// Option configures store creation.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// NewStoreFromOptions selects a backend from the configured DSN: PostgreSQL
// for postgres DSNs, SQLite for file paths, in-memory when no DSN is set.
func NewStoreFromOptions(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.DSN == "":
		slog.Info("Store.NewStoreFromOptions: no DSN, using in-memory store")
		return NewInMemoryStore(), nil
	case isPostgresDSN(cfg.DSN):
		slog.Info("Store.NewStoreFromOptions: using PostgreSQL store")
		return NewPostgresStore(opts...)
	default:
		slog.Info("Store.NewStoreFromOptions: using SQLite store", "path", cfg.DSN)
		return NewSQLiteStore(opts...)
	}
}
