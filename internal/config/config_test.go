package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./planmarklogs", viper.GetString("logsDir"))
	assert.Equal(t, "http://localhost:5000/api", viper.GetString("api.serverUrl"))
	assert.Equal(t, "", viper.GetString("api.apiKey"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "planmark", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "sqlite", viper.GetString("storage.type"))
	assert.Equal(t, "3m", viper.GetString("storage.sqlite.dumpInterval"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "planmark", viper.GetString("otel.serviceName"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	// defaults are still registered
	assert.Equal(t, "sqlite", GetStorageConfig().Type)
}

func TestEnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("PLANMARK_API_APIKEY", "from-env")
	t.Setenv("PLANMARK_EDITOR_HITTHRESHOLD", "12.5")

	require.NoError(t, Load(writeConfig(t, `{"api": {"apiKey": "from-file"}}`)))
	assert.Equal(t, "from-env", GetAPIConfig().APIKey)
	assert.Equal(t, 12.5, GetEditorConfig().HitThreshold)
}

func TestEnvOverride_WithoutFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("PLANMARK_STORAGE_TYPE", "memory")

	LoadDefaults()
	assert.Equal(t, "memory", GetStorageConfig().Type)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	LoadDefaults()

	cfg := GetStorageConfig()
	assert.Equal(t, "sqlite", cfg.Type)
	assert.Equal(t, "./planmark.db", cfg.SQLite.Path)
	assert.False(t, cfg.SQLite.InMemory)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "postgres", cfg.Postgres.Username)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"storage": {
			"type": "postgres",
			"sqlite": { "inMemory": true, "dumpInterval": "10m", "dumpPath": "/tmp/snap.db" }
		},
		"db": { "database": "survey" }
	}`)
	require.NoError(t, Load(dir))

	sc := GetStorageConfig()
	assert.Equal(t, "postgres", sc.Type)
	assert.True(t, sc.SQLite.InMemory)
	assert.Equal(t, "/tmp/snap.db", sc.SQLite.DumpPath)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "survey", sc.Postgres.Database)
}

func TestGetEditorConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	LoadDefaults()

	cfg := GetEditorConfig()
	assert.Equal(t, 50.0, cfg.HitThreshold)
	assert.Equal(t, 0.25, cfg.MinZoom)
	assert.Equal(t, 8.0, cfg.MaxZoom)

	viper.Set("editor.hitThreshold", 20)
	assert.Equal(t, 20.0, GetEditorConfig().HitThreshold)
}

func TestGetAPIConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{ "api": { "serverUrl": "https://sync.example.com/api", "apiKey": "k", "timeout": "5s" } }`)
	require.NoError(t, Load(dir))

	cfg := GetAPIConfig()
	assert.Equal(t, "https://sync.example.com/api", cfg.ServerURL)
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 100, cfg.QueueSize)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	LoadDefaults()

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "planmark", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)
	require.NoError(t, Load(dir))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	LoadDefaults()

	cfg := GetInfluxConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "http://localhost:8086", cfg.URL())
	assert.Equal(t, "planmark-activity", cfg.Bucket)
}

func TestGetFeedConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := writeConfig(t, `{"feed": {"enabled": true, "secret": "abc", "device": "tablet-7"}}`)
	require.NoError(t, Load(dir))

	cfg := GetFeedConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "ws://localhost:5000/api/feed", cfg.URL)
	assert.Equal(t, "abc", cfg.Secret)
	assert.Equal(t, "tablet-7", cfg.Device)
}
