package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sitewalk/planmark/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresConfigDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5433", Username: "u", Password: "p", Database: "planmark"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=planmark sslmode=disable", cfg.DSN())
}

func TestGetSqliteDB_InMemoryIsPrivate(t *testing.T) {
	a, err := GetSqliteDB("")
	require.NoError(t, err)
	b, err := GetSqliteDB("")
	require.NoError(t, err)

	require.NoError(t, Migrate(a))
	require.NoError(t, a.Create(&model.Layer{ID: "l1", ProjectID: "p1", Name: "0", Color: "#000000"}).Error)

	assert.True(t, a.Migrator().HasTable(&model.Layer{}))
	assert.False(t, b.Migrator().HasTable(&model.Layer{}))
}

func TestManager_SetupCreatesTables(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSqlite(filepath.Join(t.TempDir(), "planmark.db")))
	defer m.Close()

	require.NoError(t, m.Setup())
	for _, table := range model.DatabaseModels {
		assert.True(t, m.DB.Migrator().HasTable(table))
	}
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// dumping again overwrites
	require.NoError(t, DumpMemoryDBToDisk(db, path))
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)
	require.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestManager_SetupBeforeConnect(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.Error(t, m.Setup())
	assert.NoError(t, m.Close())
}

func TestGetSqliteDB_Pragmas(t *testing.T) {
	db, err := GetSqliteDB(filepath.Join(t.TempDir(), "planmark.db"))
	require.NoError(t, err)

	var mode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)

	var fk, version int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	require.NoError(t, db.Raw("PRAGMA user_version").Scan(&version).Error)
	assert.Equal(t, 1, fk)
	assert.Equal(t, schemaVersion, version)
}
