package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/sitewalk/planmark/internal/config"
	"github.com/sitewalk/planmark/internal/editor"
	"github.com/sitewalk/planmark/internal/influx"
	"github.com/sitewalk/planmark/internal/livefeed"
	"github.com/sitewalk/planmark/internal/logging"
	intOtel "github.com/sitewalk/planmark/internal/otel"
	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/internal/storage/memory"
	"github.com/sitewalk/planmark/pkg/core"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// AppName prefixes log files and identifies the service in telemetry.
const AppName = "planmark"

// app holds the process-wide collaborators of one CLI invocation.
type app struct {
	configDir string
	ephemeral bool

	sessionStart time.Time
	slogManager  *logging.SlogManager
	log          *slog.Logger
	zlog         zerolog.Logger
	otelProvider *intOtel.Provider
	logFile      *os.File
	store        storage.Store

	// released in reverse order by teardown
	closers []func() error
}

func newApp() *app {
	return &app{
		sessionStart: time.Now(),
		slogManager:  logging.NewSlogManager(),
		log:          slog.Default(),
		zlog:         zerolog.Nop(),
	}
}

// setup loads the config, wires logging and telemetry and opens the store.
func (a *app) setup(ctx context.Context) error {
	cfgErr := a.loadConfig()
	if err := a.setupLogging(); err != nil {
		return err
	}
	if cfgErr != nil {
		a.log.Warn("Failed to load config, using defaults!", "error", cfgErr)
	}

	var (
		store storage.Store
		err   error
	)
	if a.ephemeral {
		a.log.Info("Using ephemeral memory store")
		store = memory.New()
	} else {
		store, err = createStore(config.GetStorageConfig(), a.zlog, a.log)
		if err != nil {
			a.log.Error("Failed to create store", "error", err)
			return err
		}
	}
	if err := store.Init(); err != nil {
		a.log.Error("Failed to initialize store", "error", err)
		return err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	return nil
}

func (a *app) loadConfig() error {
	if a.configDir == "" {
		config.LoadDefaults()
		return nil
	}
	return config.Load(a.configDir)
}

func (a *app) setupLogging() error {
	f, err := logging.OpenSessionLog(viper.GetString("logsDir"), AppName, a.sessionStart)
	if err != nil {
		return err
	}
	a.logFile = f
	level := viper.GetString("logLevel")

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		p, err := intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    f,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
		} else {
			a.otelProvider = p
		}
	}

	var extra []slog.Handler
	if viper.GetBool("graylog.enabled") {
		h, closer, err := logging.NewGraylogHandler(viper.GetString("graylog.address"), level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to Graylog: %v\n", err)
		} else {
			extra = append(extra, h)
			a.closers = append(a.closers, closer.Close)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if a.otelProvider != nil {
		otelLogProvider = a.otelProvider.LoggerProvider()
	}
	a.slogManager.Setup(f, level, otelLogProvider, extra...)
	a.log = a.slogManager.Logger()
	a.zlog = logging.NewZerolog(f, level)
	a.log.Info("Logging to file", "path", f.Name())
	return nil
}

// observers builds the editor event sinks enabled in the config. The caller owns
// the returned close function.
func (a *app) observers(ctx context.Context, drawing *core.Drawing) (editor.Observer, func()) {
	var (
		obs     editor.MultiObserver
		cleanup []func()
	)

	if m, err := editor.NewMetricsObserver(); err != nil {
		a.log.Warn("Editor metrics unavailable", "error", err)
	} else {
		obs = append(obs, m)
	}

	influxCfg := config.GetInfluxConfig()
	backup := logging.ActivityBackupPath(viper.GetString("logsDir"), AppName, a.sessionStart)
	im := influx.NewManager(influxCfg, a.zlog, backup)
	switch err := im.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
	case err != nil:
		a.log.Warn("InfluxDB sink unavailable", "error", err)
	default:
		obs = append(obs, im)
		cleanup = append(cleanup, func() {
			if err := im.Close(); err != nil {
				a.log.Warn("Failed to close InfluxDB sink", "error", err)
			}
		})
	}

	feedCfg := config.GetFeedConfig()
	if feedCfg.Enabled && drawing != nil {
		url := feedCfg.URL
		if url == "" {
			url = httpToWS(viper.GetString("api.serverUrl")) + "/feed"
		}
		feed := livefeed.New(livefeed.Config{URL: url, Secret: feedCfg.Secret, Device: feedCfg.Device}, a.log)
		if err := feed.Connect(); err != nil {
			a.log.Warn("Live feed unavailable", "url", url, "error", err)
		} else if err := feed.OpenDrawing(*drawing); err != nil {
			a.log.Warn("Live feed did not acknowledge drawing", "error", err)
			_ = feed.Close()
		} else {
			obs = append(obs, feed)
			cleanup = append(cleanup, func() {
				if err := feed.CloseDrawing(); err != nil {
					a.log.Warn("Live feed close_drawing failed", "error", err)
				}
				_ = feed.Close()
			})
		}
	}

	return obs, func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}
}

// teardown closes everything setup opened.
func (a *app) teardown(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	if err := a.slogManager.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.otelProvider != nil {
		if err := a.otelProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
		a.logFile = nil
	}
	return errors.Join(errs...)
}
