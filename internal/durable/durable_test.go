package durable

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// exerciseAdapter runs the behaviour every backend must share.
func exerciseAdapter(t *testing.T, a Adapter) {
	t.Helper()
	ctx := context.Background()

	_, err := a.Get(ctx, "coachees")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, a.Set(ctx, "coachees", []byte(`[{"id":"c1"}]`)))
	got, err := a.Get(ctx, "coachees")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"c1"}]`, string(got))

	// Overwrite replaces the whole value.
	require.NoError(t, a.Set(ctx, "coachees", []byte(`[]`)))
	got, err = a.Get(ctx, "coachees")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	// Repeating a write leaves the same value.
	require.NoError(t, a.Set(ctx, "coachees", []byte(`[]`)))
	got, err = a.Get(ctx, "coachees")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	// Keys are independent.
	require.NoError(t, a.Set(ctx, "settings", []byte(`{"taxRate":19}`)))
	got, err = a.Get(ctx, "coachees")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseAdapter(t, m)
	assert.Equal(t, 4, m.Writes())
	require.NoError(t, m.Close())
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", []byte("abc")))

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'x'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseAdapter(t, s)
}

func TestSQLite_ReopenKeepsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "tasks", []byte(`[{"id":"t1"}]`)))
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "tasks")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"t1"}]`, string(got))
}

func TestSQLite_SchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := OpenSQLite(path)
		require.NoError(t, err, "open iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestFile(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	exerciseAdapter(t, f)

	// Temp files are cleaned up after rename.
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"coachees.json", "settings.json"}, names)
}

func TestFile_RejectsPathKeys(t *testing.T) {
	f, err := OpenFile(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
		assert.Error(t, f.Set(context.Background(), key, []byte("x")), "key %q", key)
	}
}

func TestGorm_WithSQLiteDialector(t *testing.T) {
	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "gorm.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	g, err := NewGorm(db)
	require.NoError(t, err)
	defer g.Close()

	exerciseAdapter(t, g)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("COACHBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("COACHBOOK_TEST_REDIS_ADDR not set")
	}

	r, err := OpenRedis(context.Background(), addr, "coachbook-test:"+t.Name()+":")
	require.NoError(t, err)
	defer r.Close()

	exerciseAdapter(t, r)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  Config
		want any
	}{
		{"default is sqlite", Config{DSN: filepath.Join(dir, "a.db")}, &SQLite{}},
		{"sqlite", Config{Driver: "sqlite", DSN: filepath.Join(dir, "b.db")}, &SQLite{}},
		{"file", Config{Driver: "file", DSN: filepath.Join(dir, "files")}, &File{}},
		{"memory", Config{Driver: "MEMORY"}, &Memory{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Open(ctx, tt.cfg)
			require.NoError(t, err)
			defer a.Close()
			assert.IsType(t, tt.want, a)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Driver: "mongo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage driver")

	_, err = Open(ctx, Config{Driver: "postgres"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a dsn")
}
