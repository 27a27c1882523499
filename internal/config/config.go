// =============================================================================
// Statement Ingest - Configuration Module
// =============================================================================
//
// This module loads the two configuration documents used by the application:
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, output, concurrency and limits
//      for the CLI that drives the pipeline.
//   2. Pipeline Config (pipeline.yaml, optional): the declarative tables the
//      pipeline runs on (field synonyms, fallback encodings, cleaner word
//      lists). Defaults are embedded in the binary; see pipeline.go.
//
// PRECEDENCE (main config):
//   environment (INGEST_*) > config file > built-in defaults
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Output formats supported by the report writers.
const (
	OutputJSON = "json"
	OutputXML  = "xml"
)

// DefaultConfigFile is the main config path used when --config is not given.
const DefaultConfigFile = "config.yaml"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for statement files to ingest.
	// Default: "./input"
	InputDir string `yaml:"input_dir" env:"INGEST_INPUT_DIR"`

	// OutputDir receives one report per ingested statement.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" env:"INGEST_OUTPUT_DIR"`

	// InputArchiveDir receives statements after successful ingestion.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir" env:"INGEST_INPUT_ARCHIVE_DIR"`

	// OutputArchiveDir keeps a copy of every report written.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir" env:"INGEST_OUTPUT_ARCHIVE_DIR"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" env:"INGEST_LOG_LEVEL"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFormat selects the report writer: "json" or "xml".
	// Default: "json"
	OutputFormat string `yaml:"output_format" env:"INGEST_OUTPUT_FORMAT"`

	// UUIDFormat defines the report file name.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {original}  - Input file name without extension
	//   {type}      - Detected file type (csv, excel, pdf)
	// Default: "{original}_{timestamp}_{uuid}"
	UUIDFormat string `yaml:"uuid_format" env:"INGEST_UUID_FORMAT"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files ingested concurrently.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" env:"INGEST_MAX_CONCURRENCY"`

	// StopOnError aborts the remaining files once one file fails.
	// Default: false
	StopOnError bool `yaml:"stop_on_error" env:"INGEST_STOP_ON_ERROR"`

	// MaxFileSize caps the size of a statement in bytes.
	// Default: 10 MiB
	MaxFileSize int64 `yaml:"max_file_size" env:"INGEST_MAX_FILE_SIZE"`

	// ProcessTimeout bounds the time spent on a single statement.
	// Default: 30s
	ProcessTimeout time.Duration `yaml:"process_timeout" env:"INGEST_PROCESS_TIMEOUT"`

	// DisableCategorize turns off category suggestions in the reports.
	// Default: false
	DisableCategorize bool `yaml:"disable_categorize" env:"INGEST_DISABLE_CATEGORIZE"`

	// =========================================================================
	// PIPELINE AND MODEL FILES
	// =========================================================================

	// PipelineConfig is an optional pipeline.yaml overriding or extending
	// the embedded synonym and keyword tables.
	PipelineConfig string `yaml:"pipeline_config" env:"INGEST_PIPELINE_CONFIG"`

	// TrainingFile is an optional YAML corpus for the category classifier.
	TrainingFile string `yaml:"training_file" env:"INGEST_TRAINING_FILE"`

	// Schedule is the cron expression used by the watch command.
	// Default: "@every 1m"
	Schedule string `yaml:"schedule" env:"INGEST_SCHEDULE"`
}

// DefaultMainConfig returns the built-in defaults.
func DefaultMainConfig() MainConfig {
	return MainConfig{
		InputDir:         "./input",
		OutputDir:        "./output",
		InputArchiveDir:  "./input_archive",
		OutputArchiveDir: "./output_archive",
		LogLevel:         "info",
		OutputFormat:     OutputJSON,
		UUIDFormat:       "{original}_{timestamp}_{uuid}",
		MaxConcurrency:   4,
		MaxFileSize:      10 * 1024 * 1024,
		ProcessTimeout:   30 * time.Second,
		Schedule:         "@every 1m",
	}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file is
//     only tolerated for DefaultConfigFile, in which case the defaults and
//     environment are used.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && configPath == DefaultConfigFile:
		// No config file: defaults and environment only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment overrides the file.
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	// Fill everything still unset with the defaults.
	if err := applyMainConfigDefaults(&config); err != nil {
		return nil, err
	}

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset option.
func applyMainConfigDefaults(config *MainConfig) error {
	if err := mergo.Merge(config, DefaultMainConfig()); err != nil {
		return fmt.Errorf("failed to apply config defaults: %w", err)
	}
	config.OutputFormat = strings.ToLower(strings.TrimSpace(config.OutputFormat))
	return nil
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch config.OutputFormat {
	case OutputJSON, OutputXML:
	default:
		return fmt.Errorf("output_format must be %q or %q, got %q", OutputJSON, OutputXML, config.OutputFormat)
	}

	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency)
	}
	if config.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must not be negative")
	}
	if config.ProcessTimeout < 0 {
		return fmt.Errorf("process_timeout must not be negative")
	}

	return nil
}
