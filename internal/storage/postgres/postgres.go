// Package postgres implements storage.Store on a shared PostgreSQL server.
// Connection management goes through database.Manager; queries are served by the
// GORM store.
package postgres

import (
	"errors"
	"log/slog"

	"github.com/sitewalk/planmark/internal/database"
	"github.com/sitewalk/planmark/internal/storage"
	gormstorage "github.com/sitewalk/planmark/internal/storage/gorm"
)

// Store is a server-side GeometryStore.
type Store struct {
	*gormstorage.Store
	manager *database.Manager
}

var _ storage.Store = (*Store)(nil)

// New connects to the server described by cfg.
func New(cfg database.PostgresConfig, manager *database.Manager, log *slog.Logger) (*Store, error) {
	if err := manager.ConnectPostgres(cfg); err != nil {
		return nil, storage.Failed("connect", err)
	}
	return FromManager(manager, log)
}

// FromManager builds a store on an already connected manager.
func FromManager(manager *database.Manager, log *slog.Logger) (*Store, error) {
	if manager == nil || manager.DB == nil {
		return nil, storage.Failed("connect", errors.New("database manager is not connected"))
	}
	return &Store{
		Store:   gormstorage.New(gormstorage.Dependencies{DB: manager.DB, Logger: log}),
		manager: manager,
	}, nil
}

// Init runs the schema migration through the manager so progress lands in its log.
func (s *Store) Init() error {
	if err := s.manager.Setup(); err != nil {
		return storage.Failed("init", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.manager.Close()
}
