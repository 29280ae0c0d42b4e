// Package sqlitestorage implements storage.Store on a local SQLite database.
// It wraps the GORM store via composition; the only SQLite-specific concerns are
// opening the file or in-memory database and the periodic disk dump for the
// in-memory case.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sitewalk/planmark/internal/database"
	"github.com/sitewalk/planmark/internal/storage"
	gormstorage "github.com/sitewalk/planmark/internal/storage/gorm"
	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path         string        // database file; empty keeps the data in memory
	DumpInterval time.Duration // in-memory only
	DumpPath     string        // target of periodic VACUUM INTO dumps
}

// Store wraps the GORM store for SQLite-specific behavior.
type Store struct {
	*gormstorage.Store
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

var (
	_ storage.Store    = (*Store)(nil)
	_ storage.Dumpable = (*Store)(nil)
)

// New opens the SQLite database described by cfg.
func New(cfg Config, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := database.GetSqliteDB(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	return &Store{
		Store:    gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log}),
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema and, for in-memory databases, starts the dump goroutine.
func (s *Store) Init() error {
	if err := s.Store.Init(); err != nil {
		return err
	}

	if s.cfg.Path == "" && s.cfg.DumpPath != "" && s.cfg.DumpInterval > 0 {
		s.wg.Add(1)
		go s.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (s *Store) Close() error {
	close(s.stopChan)
	s.wg.Wait()
	if s.cfg.Path == "" && s.cfg.DumpPath != "" {
		if err := s.Dump(s.cfg.DumpPath); err != nil {
			s.log.Error("Final dump failed", "error", err)
		}
	}
	return s.Store.Close()
}

// Dump writes a point-in-time copy of the database to path.
func (s *Store) Dump(path string) error {
	if err := database.DumpMemoryDBToDisk(s.db, path); err != nil {
		return storage.Failed("dump", err)
	}
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (s *Store) dumpLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := s.Dump(s.cfg.DumpPath); err != nil {
				s.log.Error("Error dumping to disk", "error", err)
			} else {
				s.log.Debug("Dumped to disk", "duration", time.Since(start))
			}
		}
	}
}
