package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Constants
const (
	DefaultDataFile   = "data.json"
	DefaultListenAddr = "127.0.0.1:8080"
	DefaultConfigName = "daily-tracker"
	EnvPrefix         = "TRACKER"
	BackupSuffix      = ".backup"
	CorruptSuffix     = ".corrupt"
	TmpSuffix         = ".tmp"
	FilePermissions   = 0644

	// Storage drivers
	StorageJSON = "json"
	StorageBolt = "bolt"

	// Error messages
	ErrInvalidDateFormat = "Invalid date format"
	ErrInvalidYear       = "Invalid year"
	ErrInvalidMonthParam = "Invalid month"
	ErrInvalidFormat     = "Invalid format"
	ErrInvalidRequest    = "Invalid request"
	ErrInternalServer    = "Internal server error"
	ErrFailedToSave      = "Failed to save counters"

	// ICS constants
	ICSProductID = "-//Klabast//Daily Tracker//EN"
)

// Config holds the application configuration
type Config struct {
	DataFile string    `mapstructure:"data_file"`
	Storage  string    `mapstructure:"storage"`
	Listen   string    `mapstructure:"listen"`
	AuthFile string    `mapstructure:"auth_file"`
	Log      LogConfig `mapstructure:"log"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_file", DefaultDataFile)
	v.SetDefault("storage", StorageJSON)
	v.SetDefault("listen", DefaultListenAddr)
	v.SetDefault("auth_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig reads configuration from an optional .env file, an optional
// config file, TRACKER_* environment variables and flags bound to v.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	if cfg.DataFile == "" {
		cfg.DataFile = DefaultDataFile
	}
	return &cfg, nil
}
