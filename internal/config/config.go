package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "planmark.cfg.json"

// SQLiteConfig holds local database settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	InMemory     bool          `json:"inMemory" mapstructure:"inMemory"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// StorageConfig selects and configures the GeometryStore backend
type StorageConfig struct {
	Type     string       `json:"type" mapstructure:"type"` // sqlite, postgres or memory
	SQLite   SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
	Postgres DBConfig     `json:"db" mapstructure:"db"`
}

// EditorConfig holds canvas interaction settings
type EditorConfig struct {
	HitThreshold float64 `json:"hitThreshold" mapstructure:"hitThreshold"`
	MinZoom      float64 `json:"minZoom" mapstructure:"minZoom"`
	MaxZoom      float64 `json:"maxZoom" mapstructure:"maxZoom"`
}

// APIConfig holds sync backend settings
type APIConfig struct {
	ServerURL string        `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string        `json:"apiKey" mapstructure:"apiKey"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	QueueSize int           `json:"queueSize" mapstructure:"queueSize"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds the activity telemetry sink settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// FeedConfig holds the live activity feed settings
type FeedConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
	Device  string `json:"device" mapstructure:"device"`
}

// URL returns the server URL of the InfluxDB instance.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// LoadDefaults registers default values for every key.
func LoadDefaults() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./planmarklogs")

	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.sqlite.path", "./planmark.db")
	viper.SetDefault("storage.sqlite.inMemory", false)
	viper.SetDefault("storage.sqlite.dumpPath", "./planmark.snapshot.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "planmark")

	viper.SetDefault("api.serverUrl", "http://localhost:5000/api")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.timeout", "30s")
	viper.SetDefault("api.queueSize", 100)

	viper.SetDefault("editor.hitThreshold", 50.0)
	viper.SetDefault("editor.minZoom", 0.25)
	viper.SetDefault("editor.maxZoom", 8.0)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "planmark")
	viper.SetDefault("influx.bucket", "planmark-activity")

	viper.SetDefault("feed.enabled", false)
	viper.SetDefault("feed.url", "ws://localhost:5000/api/feed")
	viper.SetDefault("feed.secret", "")
	viper.SetDefault("feed.device", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "planmark")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// EnvPrefix prefixes environment overrides, e.g. PLANMARK_API_APIKEY.
const EnvPrefix = "PLANMARK"

// Load registers defaults and environment overrides, then reads FileName from
// configDir.
func Load(configDir string) error {
	LoadDefaults()

	viper.SetConfigName(FileName)
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			InMemory:     viper.GetBool("storage.sqlite.inMemory"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetEditorConfig returns the canvas interaction settings.
func GetEditorConfig() EditorConfig {
	return EditorConfig{
		HitThreshold: viper.GetFloat64("editor.hitThreshold"),
		MinZoom:      viper.GetFloat64("editor.minZoom"),
		MaxZoom:      viper.GetFloat64("editor.maxZoom"),
	}
}

// GetAPIConfig returns the sync backend settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Timeout:   viper.GetDuration("api.timeout"),
		QueueSize: viper.GetInt("api.queueSize"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB activity sink configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetFeedConfig returns the live activity feed settings.
func GetFeedConfig() FeedConfig {
	return FeedConfig{
		Enabled: viper.GetBool("feed.enabled"),
		URL:     viper.GetString("feed.url"),
		Secret:  viper.GetString("feed.secret"),
		Device:  viper.GetString("feed.device"),
	}
}
