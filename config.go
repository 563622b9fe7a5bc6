package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend         = "backend"
	cfgKeyDataDir         = "data_dir"
	cfgKeySaveDirectory   = "save_directory"
	cfgKeyConfirmations   = "confirmations"
	cfgKeyOpenAfterExport = "open_after_export"
	cfgKeyLogFile         = "log_file"
	cfgKeyLogLevel        = "log_level"
)

const defaultConfigYAML = `# stickies configuration

# Storage backend: sqlite, fs or memory
backend: sqlite

# Where the board is stored (default ~/.stickies)
# data_dir:

# Where exports are written (default: current directory)
# save_directory:

# Ask before clearing notes, deleting sheets and bulk size changes
confirmations: true

# Open PNG/SVG exports in the system viewer
open_after_export: false

# log_file defaults to <data_dir>/stickies.log; "-" logs to stderr
# log_file:
log_level: info
`

type Config struct {
	Backend         string
	DataDir         string
	SaveDirectory   string
	Confirmations   bool
	OpenAfterExport bool
	LogFile         string
	LogLevel        string
}

func defaultConfigDir() string {
	if dir := os.Getenv("STICKIES_CONFIG_DIR"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "stickies")
	}
	return ".stickies"
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".stickies")
	}
	return ".stickies"
}

// loadConfig reads config.yaml from configDir, writing a commented default on first run.
// Flags that were set on the command line win over the file and the environment.
func loadConfig(configDir string, flags *pflag.FlagSet) (*Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, BackendSQLite)
	v.SetDefault(cfgKeyDataDir, defaultDataDir())
	v.SetDefault(cfgKeySaveDirectory, "")
	v.SetDefault(cfgKeyConfirmations, true)
	v.SetDefault(cfgKeyOpenAfterExport, false)
	v.SetDefault(cfgKeyLogFile, "")
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("STICKIES")
	v.AutomaticEnv()

	if flags != nil {
		for key, flag := range map[string]string{
			cfgKeyBackend:  "backend",
			cfgKeyDataDir:  "data-dir",
			cfgKeyLogFile:  "log-file",
			cfgKeyLogLevel: "log-level",
		} {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Backend:         strings.ToLower(v.GetString(cfgKeyBackend)),
		DataDir:         expandPath(v.GetString(cfgKeyDataDir)),
		SaveDirectory:   expandPath(v.GetString(cfgKeySaveDirectory)),
		Confirmations:   v.GetBool(cfgKeyConfirmations),
		OpenAfterExport: v.GetBool(cfgKeyOpenAfterExport),
		LogFile:         v.GetString(cfgKeyLogFile),
		LogLevel:        v.GetString(cfgKeyLogLevel),
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "stickies.log")
	} else if cfg.LogFile != "-" {
		cfg.LogFile = expandPath(cfg.LogFile)
	}
	return cfg, nil
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func expandPath(value string) string {
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			value = filepath.Join(home, strings.TrimPrefix(value, "~"))
		}
	}
	if !filepath.IsAbs(value) {
		if abs, err := filepath.Abs(value); err == nil {
			value = abs
		}
	}
	return value
}

// ExportDir is where exports are written: the configured save directory or the working directory.
func (c *Config) ExportDir() string {
	if c == nil || c.SaveDirectory == "" {
		return "."
	}
	return c.SaveDirectory
}
