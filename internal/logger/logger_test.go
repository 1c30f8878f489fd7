package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/model"
)

func TestNewWritesFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tempmail.log")
	var console bytes.Buffer

	l, err := New(model.LogConfig{Level: "debug", File: path, MaxSizeMB: 1}, &console)
	require.NoError(t, err)

	l.Info("mailbox allocated")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mailbox allocated")
	assert.Contains(t, console.String(), `"level":"info"`)
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var console bytes.Buffer
	l, err := New(model.LogConfig{Level: "warn"}, &console)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestNewWithoutSinks(t *testing.T) {
	l, err := New(model.LogConfig{Level: "bogus"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.NotNil(t, OrNop(nil))
}
