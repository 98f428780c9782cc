// Package config loads gtlayout settings from TOML files and the environment.
//
// Settings are layered: built-in defaults, then the base file (gtlayout.toml by
// default), then an optional runtime file next to it (gtlayout.<runtime>.toml,
// with the runtime taken from GTLAYOUT_RUNTIME), then GTLAYOUT_DB_* variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/bdougie/gtlayout/internal/backfill"
	"github.com/bdougie/gtlayout/internal/storage"
)

const (
	DefaultConfigFile = "gtlayout.toml"
	EnvRuntime        = "GTLAYOUT_RUNTIME"
	envDBPrefix       = "GTLAYOUT_DB_"
)

// ErrNotFound is returned when an explicitly named config file is missing
var ErrNotFound = errors.New("config file not found")

// BackfillConfig tunes the ground truth layout backfill
type BackfillConfig struct {
	Workers   int `toml:"workers"`    // goroutines resolving segments
	BatchSize int `toml:"batch_size"` // layouts per COPY
	ChunkSize int `toml:"chunk_size"` // jobs per query
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Config is the root of gtlayout.toml
type Config struct {
	Database storage.PostgresConfig `toml:"database"`
	Backfill BackfillConfig         `toml:"backfill"`
	Log      LogConfig              `toml:"log"`
}

// Default returns the settings used when nothing overrides them
func Default() *Config {
	return &Config{
		Database: storage.PostgresConfig{
			Host:   "localhost",
			Port:   "5432",
			User:   "root",
			DBName: "cvat",
		},
		Backfill: BackfillConfig{
			Workers:   backfill.DefaultWorkers,
			BatchSize: storage.DefaultBatchSize,
			ChunkSize: storage.DefaultChunkSize,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the layered configuration. An empty path means DefaultConfigFile,
// which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	found, err := decodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if explicit && !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if runtime := os.Getenv(EnvRuntime); runtime != "" {
		if _, err := decodeFile(RuntimeFile(path, runtime), cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RuntimeFile names the override file for a runtime, e.g. gtlayout.test.toml
func RuntimeFile(path, runtime string) string {
	return strings.TrimSuffix(path, ".toml") + "." + runtime + ".toml"
}

func decodeFile(path string, cfg *Config) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return true, fmt.Errorf("failed to decode configuration file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return true, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return true, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"HOST":     &cfg.Database.Host,
		"PORT":     &cfg.Database.Port,
		"USER":     &cfg.Database.User,
		"PASSWORD": &cfg.Database.Password,
		"NAME":     &cfg.Database.DBName,
		"SSLMODE":  &cfg.Database.SSLMode,
	}
	for name, field := range overrides {
		if v, ok := os.LookupEnv(envDBPrefix + name); ok {
			*field = v
		}
	}
}

// Validate rejects settings the migration can't run with
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("database.port is required"))
	}
	if c.Database.DBName == "" {
		errs = append(errs, errors.New("database.dbname is required"))
	}
	if c.Backfill.Workers < 1 {
		errs = append(errs, fmt.Errorf("backfill.workers must be positive, got %d", c.Backfill.Workers))
	}
	if c.Backfill.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("backfill.batch_size must be positive, got %d", c.Backfill.BatchSize))
	}
	if c.Backfill.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("backfill.chunk_size must be positive, got %d", c.Backfill.ChunkSize))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses the configured level name
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
