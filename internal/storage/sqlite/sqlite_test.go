package sqlitestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gormstorage "github.com/sitewalk/planmark/internal/storage/gorm"
	"github.com/sitewalk/planmark/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFileStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planmark.db")
	ctx := context.Background()
	p := core.Project{ID: core.NewID(), Name: "Depot"}

	s, err := New(Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	require.NoError(t, s.SaveProject(ctx, p))
	require.NoError(t, s.Close())

	reopened, err := New(Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, reopened.Init())
	defer reopened.Close()

	got, err := reopened.LoadProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Depot", got.Name)
}

func TestMemoryStore_DumpOnClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dump := filepath.Join(t.TempDir(), "dump.db")
	ctx := context.Background()
	p := core.Project{ID: core.NewID(), Name: "Depot"}

	s, err := New(Config{DumpPath: dump, DumpInterval: time.Hour}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	require.NoError(t, s.SaveProject(ctx, p))
	require.NoError(t, s.Close())

	_, err = os.Stat(dump)
	require.NoError(t, err)

	// the dump is a regular SQLite file readable by the GORM store
	reopened, err := New(Config{Path: dump}, nil)
	require.NoError(t, err)
	require.NoError(t, reopened.Init())
	defer reopened.Close()
	got, err := reopened.LoadProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestMemoryStore_PeriodicDump(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "periodic.db")

	s, err := New(Config{DumpPath: dump, DumpInterval: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	defer s.Close()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStoreEmbedsGormStore(t *testing.T) {
	s, err := New(Config{}, nil)
	require.NoError(t, err)
	var inner *gormstorage.Store = s.Store
	assert.NotNil(t, inner.DB())
	require.NoError(t, s.Init())
	require.NoError(t, s.Close())
}
