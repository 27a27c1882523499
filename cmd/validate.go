// =============================================================================
// Statement Ingest - Validate Command
// =============================================================================
//
// The 'validate' command checks the configuration without processing any
// statement: the main config, the pipeline tables, the training corpus and
// the watch schedule. It prints the effective header synonym table.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/statement-ingest/internal/categorizer"
)

var validatePipelineConfig string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration files without processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(validatePipelineConfig)
		if err != nil {
			return err
		}
		return runValidate(env, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(
		&validatePipelineConfig,
		"pipeline-config",
		"",
		"Pipeline tables to validate instead of the pipeline_config setting",
	)
}

// runValidate checks the parts of env not covered by loading it.
func runValidate(env *environment, out io.Writer) error {
	ok := color.New(color.FgGreen)

	ok.Fprintln(out, "✓ main configuration")
	ok.Fprintln(out, "✓ pipeline configuration")

	corpus, err := categorizer.LoadCorpus(env.main.TrainingFile)
	if err != nil {
		return err
	}
	ok.Fprintf(out, "✓ training corpus (%d categories)\n", len(corpus.Categories))

	if _, err := cron.Parse(env.main.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", env.main.Schedule, err)
	}
	ok.Fprintf(out, "✓ schedule %q\n", env.main.Schedule)

	fmt.Fprintln(out, "\nHeader synonyms (first match wins):")
	for _, entry := range env.pipeline.FieldSynonyms {
		fmt.Fprintf(out, "  %-18s %s\n", entry.Field, strings.Join(entry.Synonyms, ", "))
	}
	fmt.Fprintf(out, "\nPositive amounts are treated as: %s\n", env.pipeline.PositiveAmountType)
	fmt.Fprintf(out, "Negative amounts are treated as: %s\n", env.pipeline.NegativeAmountType)

	return nil
}
