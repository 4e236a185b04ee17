package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/contract-wizard/internal/config"
)

func TestNewWritesToProjectLog(t *testing.T) {
	t.Setenv("CONTRACTWIZARD_LOG_LEVEL", "warn")
	projectDir := t.TempDir()
	require.NoError(t, config.InitProjectDir(projectDir))
	cfg, err := config.NewConfig(projectDir)
	require.NoError(t, err)

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Info("hidden entry")
	logger.Warn("visible entry", zap.String("contract_id", "c-1"))
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(cfg.LogsDir(), FileName))
	require.NoError(t, err)
	text := string(data)
	require.True(t, strings.Contains(text, "visible entry"), text)
	require.True(t, strings.Contains(text, `"contract_id":"c-1"`), text)
	require.False(t, strings.Contains(text, "hidden entry"), "info should be filtered at warn level")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, zapcore.InfoLevel, level)

	level, err = ParseLevel("debug")
	require.NoError(t, err)
	require.Equal(t, zapcore.DebugLevel, level)

	_, err = ParseLevel("loud")
	require.Error(t, err)

	_, err = New(nil)
	require.Error(t, err)
}
