// =============================================================================
// Statement Ingest - Main Entry Point
// =============================================================================
//
// This is the main entry point for the statement ingestion CLI. It delegates
// command execution to the cmd package.
//
// USAGE:
//   ingest process       - Ingest all statements in the input directory
//   ingest watch         - Ingest on a cron schedule
//   ingest validate      - Validate configuration files without processing
//   ingest schema        - Print the XSD of the XML report
//   ingest version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Extraction, mapping, cleaning, categorization
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/statement-ingest/cmd"
)

func main() {
	cmd.Execute()
}
