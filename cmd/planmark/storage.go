package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sitewalk/planmark/internal/config"
	"github.com/sitewalk/planmark/internal/database"
	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/internal/storage/memory"
	pgstorage "github.com/sitewalk/planmark/internal/storage/postgres"
	sqlitestorage "github.com/sitewalk/planmark/internal/storage/sqlite"
	"github.com/sitewalk/planmark/pkg/core"
)

// createStore builds the GeometryStore selected by storageCfg. It does not call Init.
func createStore(storageCfg config.StorageConfig, zlog zerolog.Logger, log *slog.Logger) (storage.Store, error) {
	switch storageCfg.Type {
	case "postgres":
		pg := storageCfg.Postgres
		s, err := pgstorage.New(database.PostgresConfig{
			Host:     pg.Host,
			Port:     pg.Port,
			Username: pg.Username,
			Password: pg.Password,
			Database: pg.Database,
		}, database.NewManager(zlog), log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres store: %w", err)
		}
		log.Info("Postgres store initialized", "host", pg.Host, "database", pg.Database)
		return s, nil

	case "sqlite", "":
		cfg := sqlitestorage.Config{Path: storageCfg.SQLite.Path}
		if storageCfg.SQLite.InMemory {
			cfg = sqlitestorage.Config{
				DumpInterval: storageCfg.SQLite.DumpInterval,
				DumpPath:     storageCfg.SQLite.DumpPath,
			}
		}
		s, err := sqlitestorage.New(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		log.Info("SQLite store initialized", "path", cfg.Path, "inMemory", storageCfg.SQLite.InMemory)
		return s, nil

	case "memory":
		log.Info("Memory store initialized")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("%w: unknown storage type %q", core.ErrValidation, storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
