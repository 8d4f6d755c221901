// Package config loads runtime configuration from defaults, an optional YAML
// file, a .env file and RUNLOG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/sstent/runlog-go/internal/chunk"
	"github.com/sstent/runlog-go/internal/parser"
)

const (
	EnvPrefix     = "RUNLOG"
	ConfigPathEnv = "RUNLOG_CONFIG"
	DotEnvFile    = ".env"
)

type Config struct {
	SourceDir      string        `yaml:"source_dir" envconfig:"SOURCE_DIR" validate:"required"`
	ParsedDir      string        `yaml:"parsed_dir" envconfig:"PARSED_DIR" validate:"required"`
	LogFile        string        `yaml:"log_file" envconfig:"LOG_FILE" validate:"required"`
	ChunkSize      int           `yaml:"chunk_size" envconfig:"CHUNK_SIZE" validate:"gte=0"`
	ChunksDir      string        `yaml:"chunks_dir" envconfig:"CHUNKS_DIR" validate:"required"`
	ChunkPattern   string        `yaml:"chunk_pattern" envconfig:"CHUNK_PATTERN" validate:"required"`
	IncludeGPS     bool          `yaml:"include_gps" envconfig:"INCLUDE_GPS"`
	StripParsedGPS bool          `yaml:"strip_parsed_gps" envconfig:"STRIP_PARSED_GPS"`
	SingleDate     string        `yaml:"single_date" envconfig:"SINGLE_DATE" validate:"omitempty,len=8,numeric"`
	MaxTrackpoints int           `yaml:"max_trackpoints" envconfig:"MAX_TRACKPOINTS" validate:"gte=0"`
	DecodeFIT      bool          `yaml:"decode_fit" envconfig:"DECODE_FIT"`
	Workers        int           `yaml:"workers" envconfig:"WORKERS" validate:"gte=1,lte=64"`
	Schedule       string        `yaml:"schedule" envconfig:"SCHEDULE" validate:"required"`
	AthleteName    string        `yaml:"athlete_name" envconfig:"ATHLETE_NAME"`
	DataSource     string        `yaml:"data_source" envconfig:"DATA_SOURCE"`
	Purpose        string        `yaml:"purpose" envconfig:"PURPOSE"`
	Logging        LoggingConfig `yaml:"logging" envconfig:"LOG"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SourceDir:      "data",
		ParsedDir:      "parsed",
		LogFile:        "training_log.json",
		ChunkSize:      0,
		ChunksDir:      "training_chunks",
		ChunkPattern:   chunk.DefaultPattern,
		MaxTrackpoints: parser.DefaultMaxTrackpoints,
		DecodeFIT:      true,
		Workers:        4,
		Schedule:       "@daily",
		AthleteName:    "Training Log",
		DataSource:     "Coros Running Watch",
		Purpose:        "AI Training Coach Analysis",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. An empty path falls back to RUNLOG_CONFIG;
// when neither is set no YAML file is read. A missing .env file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints. Callers that change fields after Load
// (CLI flag overrides) should validate again.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.ChunkSize > 0 && !strings.Contains(c.ChunkPattern, chunk.Placeholder) {
		return fmt.Errorf("config validation failed: chunk pattern %q must contain %s", c.ChunkPattern, chunk.Placeholder)
	}
	return nil
}

// Chunking reports whether chunked output was requested.
func (c *Config) Chunking() bool {
	return c.ChunkSize > 0
}

// ParserOptions maps the parsing knobs onto parser.Options.
func (c *Config) ParserOptions() parser.Options {
	return parser.Options{
		MaxTrackpoints: c.MaxTrackpoints,
		DecodeFIT:      c.DecodeFIT,
	}
}
