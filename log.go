package pageready

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

const logPrefix = "pageready"

// NewLogger returns a structured logger writing to w at the named level
// (debug, info, warn, error). Unknown levels mean info.
func NewLogger(w io.Writer, level string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           parseLogLevel(level),
		Prefix:          logPrefix,
		TimeFormat:      time.TimeOnly,
		ReportTimestamp: true,
	})
}

func parseLogLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// testLogger routes log lines into t.Log so they are attributed to the test.
func testLogger(t testing.TB, level string) *log.Logger {
	return log.NewWithOptions(tbWriter{t}, log.Options{
		Level:  parseLogLevel(level),
		Prefix: logPrefix,
	})
}

type tbWriter struct {
	t testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
