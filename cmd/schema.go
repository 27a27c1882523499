package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/statement-ingest/internal/xmlwriter"
)

// schemaCmd prints the XSD describing XML reports.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the XML Schema for XML reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cmd.OutOrStdout().Write(xmlwriter.GenerateXSD())
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
