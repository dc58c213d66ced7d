package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func TestPrefixWriter(t *testing.T) {
	var out bytes.Buffer
	pw := NewPrefixWriter("> ", &out)

	n, err := pw.Write([]byte("one\ntw"))
	assert.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "> one\n", out.String())

	_, err = pw.Write([]byte("o\nthree\n"))
	assert.NoError(t, err)
	assert.Equal(t, "> one\n> two\n> three\n", out.String())
}

func TestNewLogger(t *testing.T) {
	t.Setenv(EnvJSONLog, "")
	var out bytes.Buffer

	logger := NewLogger("romfmt", "info", &out)
	logger.Debug("hidden")
	logger.Info("shown", "type", "monster")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "🕹️ "))
	assert.Contains(t, lines[0], "romfmt: shown: type=monster")
}

func TestNewLoggerJSON(t *testing.T) {
	t.Setenv(EnvJSONLog, "1")
	var out bytes.Buffer

	NewLogger("romfmt", "info", &out).Info("shown")
	assert.True(t, strings.HasPrefix(out.String(), "{"))
}

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		name       string
		flag, env  string
		configured string
		want       string
	}{
		{"default", "", "", "", DefaultLevel},
		{"config", "", "", "info", "info"},
		{"env beats config", "", "debug", "info", "debug"},
		{"flag beats env", "trace", "debug", "info", "trace"},
		{"invalid skipped", "loud", "", "error", "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvLogLevel, tt.env)
			got := ResolveLevel(tt.flag, tt.configured)
			assert.Equal(t, tt.want, got)
			assert.NotEqual(t, hclog.NoLevel, hclog.LevelFromString(got))
		})
	}
}
