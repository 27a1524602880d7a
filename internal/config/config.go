// Package config resolves tool configuration from, in increasing precedence:
// defaults, sectionforge.yaml, environment (SECTIONFORGE_* with a .env file
// honored), and flags bound by the cmd package.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configBaseName = "sectionforge"
	envPrefix      = "SECTIONFORGE"

	SourceKey        = "source"
	DistKey          = "dist"
	MinifyScriptsKey = "build.minify_scripts"
	DebounceMSKey    = "watch.debounce_ms"
	ExcludeKey       = "watch.exclude"
	ServeEnabledKey  = "serve.enabled"
	ServePortKey     = "serve.port"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logToFileKey     = "log.to_file"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultSource     = "src"
	defaultDist       = "dist"
	defaultDebounceMS = 30
	defaultServePort  = 35729

	defaultLogFilename   = ".sectionforge.log"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
)

// Config is the resolved, validated configuration.
type Config struct {
	Source        string
	Dist          string
	MinifyScripts bool
	Debounce      time.Duration
	Exclude       []string
	ServeEnabled  bool
	ServePort     int

	Log LogConfig
}

// LogConfig drives the logger construction in cmd.
type LogConfig struct {
	Level      slog.Level
	ToFile     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var initOnce sync.Once

// Init wires viper to the config file, env and defaults. Safe to call more
// than once; cmd calls it before binding flags so flag defaults come from
// the resolved config.
func Init() {
	initOnce.Do(func() {
		// A .env next to the project is honored; absence is fine.
		_ = godotenv.Load()

		viper.SetConfigName(configBaseName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AutomaticEnv()
		viper.SetEnvPrefix(envPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

		viper.SetDefault(SourceKey, defaultSource)
		viper.SetDefault(DistKey, defaultDist)
		viper.SetDefault(MinifyScriptsKey, false)
		viper.SetDefault(DebounceMSKey, defaultDebounceMS)
		viper.SetDefault(ExcludeKey, []string{})
		viper.SetDefault(ServeEnabledKey, false)
		viper.SetDefault(ServePortKey, defaultServePort)

		viper.SetDefault(logFilenameKey, defaultLogFilename)
		viper.SetDefault(logLevelKey, int(slog.LevelInfo))
		viper.SetDefault(logToFileKey, false)
		viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
		viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
		viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
		viper.SetDefault(logCompressKey, true)

		// Config file is optional.
		_ = viper.ReadInConfig()
	})
}

// Load resolves and validates the configuration.
func Load() (*Config, error) {
	Init()

	cfg := &Config{
		Source:        viper.GetString(SourceKey),
		Dist:          viper.GetString(DistKey),
		MinifyScripts: viper.GetBool(MinifyScriptsKey),
		Debounce:      time.Duration(viper.GetInt(DebounceMSKey)) * time.Millisecond,
		Exclude:       viper.GetStringSlice(ExcludeKey),
		ServeEnabled:  viper.GetBool(ServeEnabledKey),
		ServePort:     viper.GetInt(ServePortKey),
		Log: LogConfig{
			Level:      slog.Level(viper.GetInt(logLevelKey)),
			ToFile:     viper.GetBool(logToFileKey),
			Filename:   viper.GetString(logFilenameKey),
			MaxSizeMB:  viper.GetInt(logMaxSizeKey),
			MaxBackups: viper.GetInt(logMaxBackupsKey),
			MaxAgeDays: viper.GetInt(logMaxAgeKey),
			Compress:   viper.GetBool(logCompressKey),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Source == "" {
		return fmt.Errorf("config: %s is required", SourceKey)
	}
	if cfg.Dist == "" {
		return fmt.Errorf("config: %s is required", DistKey)
	}
	if cfg.Debounce < 0 {
		return fmt.Errorf("config: %s must not be negative", DebounceMSKey)
	}
	if cfg.ServePort < 1 || cfg.ServePort > 65535 {
		return fmt.Errorf("config: %s must be a valid port, got %d", ServePortKey, cfg.ServePort)
	}
	return nil
}
