package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigWritesDefaultFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")
	cfg, err := loadConfig(dir, nil)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, configFileExt))
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.True(t, cfg.Confirmations)
	assert.False(t, cfg.OpenAfterExport)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join(cfg.DataDir, "stickies.log"), cfg.LogFile)
	assert.Equal(t, ".", cfg.ExportDir())
}

func TestLoadConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(t.TempDir(), "data")
	exports := filepath.Join(t.TempDir(), "exports")
	yaml := "backend: fs\n" +
		"data_dir: " + data + "\n" +
		"save_directory: " + exports + "\n" +
		"confirmations: false\n" +
		"open_after_export: true\n" +
		"log_file: \"-\"\n" +
		"log_level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte(yaml), 0o644))

	cfg, err := loadConfig(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendFS, cfg.Backend)
	assert.Equal(t, data, cfg.DataDir)
	assert.Equal(t, exports, cfg.ExportDir())
	assert.False(t, cfg.Confirmations)
	assert.True(t, cfg.OpenAfterExport)
	assert.Equal(t, "-", cfg.LogFile)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigFlagsWin(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte("backend: fs\n"), 0o644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("backend", "", "")
	flags.String("data-dir", "", "")
	require.NoError(t, flags.Parse([]string{"--backend", "MEMORY"}))

	cfg, err := loadConfig(dir, flags)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("STICKIES_LOG_LEVEL", "warn")
	cfg, err := loadConfig(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfigRejectsBrokenYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte("backend: [unclosed\n"), 0o644))
	_, err := loadConfig(dir, nil)
	assert.Error(t, err)
}

func TestExportDirOnNilConfig(t *testing.T) {
	var cfg *Config
	assert.Equal(t, ".", cfg.ExportDir())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes"), expandPath("~/notes"))
	assert.Equal(t, "", expandPath(""))
	assert.True(t, filepath.IsAbs(expandPath("relative/dir")))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stickies.log")
	logger, closer, err := newLogger(&Config{LogFile: path, LogLevel: "info"})
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("visible", "k", "v")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=visible k=v")
	assert.NotContains(t, string(data), "hidden")
}
