package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yi-nology/mediable/pkg/imageproc"
	"github.com/yi-nology/mediable/pkg/storage"
	"github.com/yi-nology/mediable/pkg/validator"
)

// Config captures service level configuration loaded from config.yaml.
type Config struct {
	Database       DatabaseConfig            `yaml:"database"`
	Log            LogConfig                 `yaml:"log"`
	Redis          RedisConfig               `yaml:"redis"`
	DefaultDisk    string                    `yaml:"default_disk"`
	Disks          map[string]storage.Config `yaml:"disks"`
	ImageMimeTypes []string                  `yaml:"image_mime_types"`
	Conversions    ConversionsConfig         `yaml:"conversions"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

// RedisConfig defines Redis connection settings for conversion locking.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`

	// KeyPrefix namespaces lock keys, e.g. "mediable:conversion:<id>:<name>".
	KeyPrefix string `yaml:"key_prefix"`
	// LockTTL bounds how long a crashed holder can block a conversion.
	LockTTL time.Duration `yaml:"lock_ttl"`
	// LockWait is how long ApplyConversion waits for a busy conversion.
	LockWait time.Duration `yaml:"lock_wait"`
}

// ConversionsConfig declares stock conversions and the global subset.
type ConversionsConfig struct {
	Presets []imageproc.Preset `yaml:"presets"`
	Global  []string           `yaml:"global"`
}

// DatabaseConfig defines the database backend configuration.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains SQLite specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// MySQLConfig contains MySQL specific connection details.
type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

// PostgresConfig contains PostgreSQL specific connection details.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// DefaultImageMimeTypes are the mime types treated as images when the
// configuration does not list any.
var DefaultImageMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

// Load reads a YAML configuration file from the provided path.
// It searches in the current working directory first, then next to the binary executable.
func Load(name string) (*Config, error) {
	cfg := defaultConfig()

	configPath := findConfigFile(name)
	if configPath == "" {
		log.Printf("Warning: config file %q not found, using defaults", name)
		return cfg, nil
	}

	log.Printf("Loading config from: %s", configPath)
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	var parsed Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&parsed)
	if err := parsed.Validate(); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Validate checks cross-field references. Conversion names are trimmed in
// place, the same way the registry trims them.
func (c *Config) Validate() error {
	if _, ok := c.Disks[c.DefaultDisk]; !ok {
		return fmt.Errorf("default disk %q is not configured", c.DefaultDisk)
	}
	presets := make(map[string]struct{}, len(c.Conversions.Presets))
	for i, p := range c.Conversions.Presets {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("conversion preset without name")
		}
		name, ok := validator.SanitizeConversionName(p.Name)
		if !ok {
			return fmt.Errorf("invalid conversion preset name %q", p.Name)
		}
		c.Conversions.Presets[i].Name = name
		presets[name] = struct{}{}
	}
	for i, name := range c.Conversions.Global {
		name = strings.TrimSpace(name)
		if _, ok := presets[name]; !ok {
			return fmt.Errorf("global conversion %q has no preset", name)
		}
		c.Conversions.Global[i] = name
	}
	return nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/media.db"
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "mediable:"
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 2 * time.Minute
	}
	if cfg.Redis.LockWait <= 0 {
		cfg.Redis.LockWait = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if len(cfg.Disks) == 0 {
		cfg.Disks = storage.DefaultConfig()
	}
	if cfg.DefaultDisk == "" {
		cfg.DefaultDisk = "public"
	}
	if len(cfg.ImageMimeTypes) == 0 {
		cfg.ImageMimeTypes = append([]string(nil), DefaultImageMimeTypes...)
	}
}

// findConfigFile searches for a config file in the current directory first,
// then next to the binary executable. Returns the full path or empty string.
func findConfigFile(name string) string {
	// 1. Current working directory
	if _, err := os.Stat(name); err == nil {
		abs, _ := filepath.Abs(name)
		return abs
	}

	// 2. Next to the binary executable
	exe, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exe)
		candidate := filepath.Join(exeDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
