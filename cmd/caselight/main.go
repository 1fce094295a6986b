package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caselight/caselight/cmd/caselight/commands"
	"github.com/caselight/caselight/logger"
)

var rootCmd = &cobra.Command{
	Use:   "caselight",
	Short: "caselight - Entity canonicalization for document collections",
	Long: `caselight - Entity canonicalization and resolution for document collections.

caselight ingests named-entity mentions extracted from documents and
resolves each one to a canonical entity, so every way a person, place, or
organization is written converges on a single record. Mentions the engine
cannot place with confidence are escalated for human adjudication.

Available commands:
  ingest     - Resolve extraction files into the canonical store
  entity     - Look up canonical entities by name
  mentions   - List mentions of an entity across documents
  pending    - List candidate links awaiting adjudication
  adjudicate - Accept or reject a pending candidate link
  config     - Manage caselight configuration
  db         - Manage the caselight database

Examples:
  caselight ingest extractions/*.json    # Resolve extraction output
  caselight ingest --watch extractions/  # Resolve new files as they appear
  caselight entity "Jeffrey Epstein"     # Find a canonical entity
  caselight pending                      # Review ambiguous mentions
  caselight adjudicate accept CL...      # Confirm a candidate link`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Root().PersistentFlags().GetBool("json")
		verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
		if err := logger.Initialize(jsonOutput, verbose); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output machine-readable JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(commands.IngestCmd)
	rootCmd.AddCommand(commands.EntityCmd)
	rootCmd.AddCommand(commands.MentionsCmd)
	rootCmd.AddCommand(commands.PendingCmd)
	rootCmd.AddCommand(commands.AdjudicateCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
