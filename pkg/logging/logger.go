// Package logging builds the hclog loggers used across romfmt.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	EnvLogLevel = "ROMFMT_LOG_LEVEL"
	EnvJSONLog  = "ROMFMT_JSON_LOG"

	DefaultLevel = "warn"
)

// NewLogger creates a new hclog logger with standard settings
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	jsonFormat := os.Getenv(EnvJSONLog) == "1"

	// Human output gets a line prefix so it stands apart from command output
	if !jsonFormat {
		output = NewPrefixWriter("🕹️ ", output)
	}

	opts := &hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	}

	return hclog.New(opts)
}

// ResolveLevel picks the first non-empty of the flag value, the environment
// and the configured level, falling back to warn
func ResolveLevel(flag, configured string) string {
	for _, level := range []string{flag, os.Getenv(EnvLogLevel), configured} {
		level = strings.TrimSpace(level)
		if level != "" && hclog.LevelFromString(level) != hclog.NoLevel {
			return level
		}
	}
	return DefaultLevel
}
