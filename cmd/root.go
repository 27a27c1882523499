// =============================================================================
// Statement Ingest - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI.
//
// COBRA CLI STRUCTURE:
//   rootCmd (ingest)
//   ├── processCmd (ingest process)
//   ├── watchCmd (ingest watch)
//   ├── validateCmd (ingest validate)
//   ├── schemaCmd (ingest schema)
//   └── versionCmd (ingest version)
//
// The root command owns the global flags and the shared setup: logging,
// the main configuration and the pipeline tables.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/statement-ingest/internal/config"
	"github.com/ginjaninja78/statement-ingest/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging regardless of log_level.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Statement Ingest - Normalize bank statements into clean transactions",
	Long: `Statement Ingest reads bank statement exports (CSV, Excel and PDF),
recognizes their columns, and produces cleaned, deduplicated transactions
with a suggested spending category.

Key Features:
  - Encoding detection for CSV exports
  - Header synonym tables configurable per institution
  - Ruled-table and text-line extraction from PDF statements
  - Deduplication, description cleanup and merchant extraction
  - JSON or XML reports with extraction and cleaning diagnostics

Example Usage:
  ingest process                       # Ingest all files in the input directory
  ingest process --file ./march.pdf    # Ingest a single statement
  ingest watch                         # Ingest on the configured schedule
  ingest validate                      # Validate configuration without processing`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// environment is everything a command needs to run the pipeline.
type environment struct {
	main     *config.MainConfig
	pipeline *config.PipelineConfig
	log      zerolog.Logger
}

// loadEnvironment loads both configuration documents and builds the logger.
//
// PARAMETERS:
//   - pipelineOverride: A pipeline.yaml path taking precedence over the
//     pipeline_config setting. Empty keeps the setting.
func loadEnvironment(pipelineOverride string) (*environment, error) {
	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	level := logger.ParseLevel(mainConfig.LogLevel)
	if verbose {
		level = zerolog.DebugLevel
	}
	log := logger.New(level)

	pipelinePath := mainConfig.PipelineConfig
	if pipelineOverride != "" {
		pipelinePath = pipelineOverride
	}

	pipelineConfig, err := config.LoadPipelineConfig(pipelinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}

	log.Debug().
		Str("config", cfgFile).
		Str("pipeline_config", pipelinePath).
		Msg("configuration loaded")

	return &environment{main: mainConfig, pipeline: pipelineConfig, log: log}, nil
}
