package postgres

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sitewalk/planmark/internal/database"
	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/internal/storage/storagetest"
	"github.com/sitewalk/planmark/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The contract runs on an in-memory SQLite connection; the wrapper only adds
// connection handling on top of the GORM store.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	m := database.NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSqlite(""))
	s, err := FromManager(m, nil)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestFromManager_NotConnected(t *testing.T) {
	_, err := FromManager(database.NewManager(zerolog.Nop()), nil)
	require.ErrorIs(t, err, core.ErrStorage)

	_, err = FromManager(nil, nil)
	require.ErrorIs(t, err, core.ErrStorage)
}

func TestNew_Unreachable(t *testing.T) {
	cfg := database.PostgresConfig{Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "none"}
	_, err := New(cfg, database.NewManager(zerolog.Nop()), nil)
	require.ErrorIs(t, err, core.ErrStorage)
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, d := storagetest.Seed(t, s)

	got, err := s.LoadDrawings(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, d.ID, got[0].ID)
}
