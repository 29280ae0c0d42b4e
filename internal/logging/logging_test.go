package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionStart = time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

func TestLogFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("planmarklogs", "planmark.20260212_213836.log"),
		LogFilePath("planmarklogs", "planmark", sessionStart))
	assert.Equal(t,
		filepath.Join("/var", "log", "planmark", "planmark.20260212_213836.log"),
		LogFilePath(filepath.Join("/var", "log", "planmark"), "planmark", sessionStart))
}

func TestActivityBackupPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("logs", "planmark_activity_20260212_213836.lp.gz"),
		ActivityBackupPath("logs", "planmark", sessionStart))
}

func TestOpenSessionLog_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	f, err := OpenSessionLog(dir, "planmark", sessionStart)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, LogFilePath(dir, "planmark", sessionStart), f.Name())
	assert.FileExists(t, f.Name())
}

func TestOpenSessionLog_RotatesExisting(t *testing.T) {
	dir := t.TempDir()
	path := LogFilePath(dir, "planmark", sessionStart)
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0644))

	f, err := OpenSessionLog(dir, "planmark", sessionStart)
	require.NoError(t, err)
	_, err = f.WriteString("this run\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "previous run\n", string(old))

	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "this run\n", string(cur))
}

func TestOpenSessionLog_DirIsFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := OpenSessionLog(blocker, "planmark", sessionStart)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logs dir")
}
