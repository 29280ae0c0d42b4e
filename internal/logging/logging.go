// Package logging wires planmark's log outputs: slog for the application, zerolog
// for the database, InfluxDB and dispatcher components, and the OTel and Graylog
// exporters.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const stampLayout = "20060102_150405"

// LogFilePath returns the log file of a CLI session started at sessionStart.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", appName, sessionStart.Format(stampLayout)))
}

// ActivityBackupPath returns the gzip line-protocol file the InfluxDB sink falls
// back to when the server is unreachable.
func ActivityBackupPath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s_activity_%s.lp.gz", appName, sessionStart.Format(stampLayout)))
}

// OpenSessionLog creates logsDir and opens the session log file for appending. A
// file left by a session started in the same second is kept as <name>.old.
func OpenSessionLog(logsDir, appName string, sessionStart time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}
	path := LogFilePath(logsDir, appName, sessionStart)
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, fmt.Errorf("failed to rotate log file: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	return f, nil
}
