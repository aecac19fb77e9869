package durable

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("durable: key not found")

// Adapter is host-provided key-value storage for JSON documents.
type Adapter interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases the underlying resources.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverFile     = "file"
	DriverMemory   = "memory"
)

// Drivers lists the accepted driver names.
var Drivers = []string{DriverSQLite, DriverPostgres, DriverRedis, DriverFile, DriverMemory}

// Config selects and configures a backend.
type Config struct {
	Driver string

	// DSN is backend specific: a file path for sqlite, a connection string
	// for postgres, an address or redis:// URL for redis, a directory for file.
	DSN string

	// KeyPrefix namespaces keys in shared backends (redis only).
	KeyPrefix string
}

// Open creates the adapter described by cfg.
func Open(ctx context.Context, cfg Config) (Adapter, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverSQLite, "":
		path := cfg.DSN
		if path == "" {
			path = "coachbook.db"
		}
		return OpenSQLite(path)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires a dsn")
		}
		return OpenPostgres(cfg.DSN)
	case DriverRedis:
		return OpenRedis(ctx, cfg.DSN, cfg.KeyPrefix)
	case DriverFile:
		dir := cfg.DSN
		if dir == "" {
			dir = "coachbook-data"
		}
		return OpenFile(dir)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q: must be one of %v", cfg.Driver, Drivers)
	}
}
