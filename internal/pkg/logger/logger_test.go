package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggerWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "logs", "app.log")

	require.NoError(t, InitLogger(Options{OutputPath: out, ErrorPath: filepath.Join(dir, "logs", "error.log"), Level: "debug"}))
	Info("CreateFolder: created", zap.Uint64("entryID", 7))
	Sync()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"level":"INFO"`)
	assert.Contains(t, string(data), `"entryID":7`)
}

func TestInitLoggerBadLevelFallsBack(t *testing.T) {
	require.NoError(t, InitLogger(Options{Level: "loud"}))
	assert.True(t, GetLogger().Core().Enabled(zap.InfoLevel))
	assert.False(t, GetLogger().Core().Enabled(zap.DebugLevel))
}
