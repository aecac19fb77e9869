// Package durable provides key-value adapters over host persistent storage.
//
// Every adapter stores opaque JSON documents under string keys, one key per
// entity collection. Adapters hold no business logic: a Set fully replaces the
// value under the key, so repeating a write is harmless.
//
// # Backends
//
//   - sqlite: single-file database via mattn/go-sqlite3 (default)
//   - postgres: gorm with the postgres driver
//   - redis: go-redis, with an optional key prefix
//   - file: one JSON file per key in a directory
//   - memory: process-local map, for tests
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package durable
