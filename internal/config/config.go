// Package config loads VoxDesk configuration from environment variables
// (VOXDESK_ prefix) with an optional YAML file merged underneath, and
// resolves all file paths relative to the executable directory.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	License LicenseConfig `yaml:"license" envconfig:"LICENSE"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig configures the local diagnostics HTTP server.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8750" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Rate limit applied to forced revalidation requests, which hit the
	// remote service on every call.
	ForceValidateRPS   float64 `yaml:"force_validate_rps" envconfig:"FORCE_VALIDATE_RPS" default:"0.2"`
	ForceValidateBurst int     `yaml:"force_validate_burst" envconfig:"FORCE_VALIDATE_BURST" default:"3"`
}

// LicenseConfig configures the license validator.
type LicenseConfig struct {
	// Key may be empty, which is the valid unlicensed (free tier) state.
	Key string `yaml:"key" envconfig:"KEY"`

	// Endpoint overrides the production license service, typically through
	// VOXDESK_LICENSE_ENDPOINT.
	Endpoint string `yaml:"endpoint" envconfig:"ENDPOINT" validate:"omitempty,url"`

	CacheFile    string `yaml:"cache_file" envconfig:"CACHE_FILE"`
	DeviceIDFile string `yaml:"device_id_file" envconfig:"DEVICE_ID_FILE"`

	ValidationInterval time.Duration `yaml:"validation_interval" envconfig:"VALIDATION_INTERVAL" default:"24h"`
	OfflineGracePeriod time.Duration `yaml:"offline_grace_period" envconfig:"OFFLINE_GRACE_PERIOD" default:"72h"`
	RequestTimeout     time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"10s"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Load builds the configuration: defaults and environment first, then an
// optional voxdesk.yml next to the executable for values the environment
// left unset, then path resolution and validation.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("VOXDESK", &cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}

	paths, err := GetPaths()
	if err != nil {
		return nil, fmt.Errorf("resolve application paths: %w", err)
	}

	if _, err := os.Stat(paths.ConfigFile); err == nil {
		fileCfg, err := loadFromFile(paths.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", paths.ConfigFile, err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	cfg.applyPaths(paths)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeFileConfig fills values the environment left at their zero value.
// Durations and numerics already carry envconfig defaults, so only the
// string fields without defaults participate.
func mergeFileConfig(cfg, file *Config) {
	if cfg.License.Key == "" {
		cfg.License.Key = file.License.Key
	}
	if cfg.License.Endpoint == "" {
		cfg.License.Endpoint = file.License.Endpoint
	}
	if cfg.License.CacheFile == "" {
		cfg.License.CacheFile = file.License.CacheFile
	}
	if cfg.License.DeviceIDFile == "" {
		cfg.License.DeviceIDFile = file.License.DeviceIDFile
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = file.Logging.FilePath
	}
}

// applyPaths fills unset file locations from the resolved path set.
func (c *Config) applyPaths(paths *Paths) {
	if c.License.CacheFile == "" {
		c.License.CacheFile = paths.LicenseCacheFile
	}
	if c.License.DeviceIDFile == "" {
		c.License.DeviceIDFile = paths.DeviceIDFile
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = paths.LogFile
	}
}
