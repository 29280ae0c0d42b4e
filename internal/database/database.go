// Package database opens and migrates the gorm connections behind the SQL stores.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sitewalk/planmark/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const schemaVersion = 1

// sqlitePragmas apply to every SQLite connection. WAL is added for file databases.
var sqlitePragmas = []string{
	fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
	"PRAGMA foreign_keys = ON",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA temp_store = MEMORY",
	"PRAGMA busy_timeout = 5000",
}

// PostgresConfig holds connection settings for a server-side store.
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN renders the libpq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// Manager owns one gorm connection and its pool.
type Manager struct {
	DB     *gorm.DB
	SqlDB  *sql.DB
	Logger zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// ConnectSqlite opens the SQLite file at path, or a private in-memory database
// when path is empty.
func (m *Manager) ConnectSqlite(path string) error {
	db, err := GetSqliteDB(path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	where := path
	if where == "" {
		where = ":memory:"
	}
	m.Logger.Info().Str("path", where).Msg("Opened SQLite database")
	return m.attach(db)
}

// ConnectPostgres opens a Postgres database.
func (m *Manager) ConnectPostgres(cfg PostgresConfig) error {
	m.Logger.Debug().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connecting to Postgres")
	db, err := GetPostgresDB(cfg)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	if err := m.attach(db); err != nil {
		return err
	}
	m.SqlDB.SetMaxOpenConns(10)
	m.SqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return nil
}

// attach pings db before the manager takes it over.
func (m *Manager) attach(db *gorm.DB) error {
	pool, err := db.DB()
	if err != nil {
		return fmt.Errorf("sql pool: %w", err)
	}
	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return fmt.Errorf("ping %s: %w", db.Dialector.Name(), err)
	}
	m.DB, m.SqlDB = db, pool
	m.Logger.Info().Str("dialect", db.Dialector.Name()).Msg("Database connected")
	return nil
}

// Setup migrates the schema.
func (m *Manager) Setup() error {
	if m.DB == nil {
		return errors.New("database not connected")
	}
	start := time.Now()
	if err := Migrate(m.DB); err != nil {
		return err
	}
	m.Logger.Info().Dur("took", time.Since(start)).Msg("Schema migrated")
	return nil
}

// Close releases the pool. It is safe before Connect.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}

// Migrate creates or alters the tables of every stored model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
}

// GetPostgresDB opens a Postgres connection without pinging it.
func GetPostgresDB(cfg PostgresConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{DSN: cfg.DSN(), PreferSimpleProtocol: true}), gormConfig())
}

// GetSqliteDB opens a SQLite database limited to one connection, so transactions
// must run on the tx handle. An empty path gives a private in-memory database.
func GetSqliteDB(path string) (*gorm.DB, error) {
	dsn := path
	pragmas := sqlitePragmas
	if path == "" {
		// a unique shared-cache name keeps pooled connections on the same database
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		pragmas = append(slices.Clone(pragmas), "PRAGMA journal_mode = WAL")
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql pool: %w", err)
	}
	pool.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if err := db.Exec(p).Error; err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return db, nil
}

// DumpMemoryDBToDisk writes db to path with VACUUM INTO, replacing any file there.
func DumpMemoryDBToDisk(db *gorm.DB, path string) error {
	if path == "" {
		return errors.New("dump path is empty")
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove old dump: %w", err)
	}
	start := time.Now()
	if err := db.Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("vacuum into %s after %s: %w", path, time.Since(start), err)
	}
	return nil
}
