// Package backend selects and constructs the persistence backend from
// configuration.
package backend

import (
	"fmt"
	"log/slog"

	"tally/internal/store"
	"tally/internal/store/csv"
	"tally/internal/store/memory"
	"tally/internal/store/sqlite"
)

// Type identifies one of the supported persistence backends.
type Type string

const (
	CSVBackend    Type = "csv"
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string { return string(t) }

// IsValid reports whether the backend type is one of the supported
// values.
func (t Type) IsValid() bool {
	switch t {
	case CSVBackend, SQLiteBackend, MemoryBackend:
		return true
	}
	return false
}

// Types returns all supported backend types.
func Types() []Type {
	return []Type{CSVBackend, SQLiteBackend, MemoryBackend}
}

// Config holds everything needed to construct a backend.
type Config struct {
	Type Type

	// CSV backend
	DataDirectory string

	// SQLite backend
	SQLiteDBPath string
}

// Validate checks the configuration for the selected backend type.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %q", c.Type)
	}
	switch c.Type {
	case CSVBackend:
		if c.DataDirectory == "" {
			return fmt.Errorf("data directory is required for csv backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("database path is required for sqlite backend")
		}
	}
	return nil
}

// Open constructs the configured backend.
func Open(cfg Config, logger *slog.Logger) (store.Stores, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case CSVBackend:
		s, err := csv.Open(cfg.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("open csv backend: %w", err)
		}
		logger.Info("Initialized csv backend", "data_directory", cfg.DataDirectory)
		return s, nil

	case SQLiteBackend:
		s, err := sqlite.Open(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		logger.Info("Initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
		return s, nil

	case MemoryBackend:
		logger.Info("Initialized memory backend")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unsupported backend type: %q", cfg.Type)
}
