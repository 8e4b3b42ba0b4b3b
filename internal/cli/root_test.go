package cli

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		want  slog.Level
	}{
		{name: "debug", want: slog.LevelDebug},
		{name: "warn", want: slog.LevelWarn},
		{name: "error", want: slog.LevelError},
		{name: "info", want: slog.LevelInfo},
		{name: "", want: slog.LevelInfo},
		{name: "error", debug: true, want: slog.LevelDebug},
	}
	defer func() { isDebug = false }()
	for _, tt := range tests {
		isDebug = tt.debug
		assert.Equal(t, tt.want, logLevel(tt.name), "level %q debug=%t", tt.name, tt.debug)
	}
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "interfaces", "fetch", "history"})
}
