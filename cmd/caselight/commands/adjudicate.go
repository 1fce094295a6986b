package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caselight/caselight/display"
	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/logger"
)

// AdjudicateCmd represents the adjudicate command
var AdjudicateCmd = &cobra.Command{
	Use:   "adjudicate",
	Short: "Accept or reject a pending candidate link",
	Long: `Adjudicate a candidate link recorded for an ambiguous mention.

Accepting a link merges the ambiguity placeholder into the chosen
entity: its mentions and aliases move over, the placeholder is deleted,
and every sibling link of the same mention is rejected.

Rejecting a link rules one candidate out. If every candidate of a
mention is rejected, the placeholder stands as an entity of its own.

Examples:
  caselight pending                  # Find link ids
  caselight adjudicate accept CL...
  caselight adjudicate reject CL...`,
}

var adjudicateAcceptCmd = &cobra.Command{
	Use:   "accept <link-id>",
	Short: "Accept a candidate link and merge the placeholder",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdjudicateAccept,
}

var adjudicateRejectCmd = &cobra.Command{
	Use:   "reject <link-id>",
	Short: "Reject a candidate link",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdjudicateReject,
}

func init() {
	AdjudicateCmd.AddCommand(adjudicateAcceptCmd)
	AdjudicateCmd.AddCommand(adjudicateRejectCmd)
}

func runAdjudicateAccept(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	store := storage.NewStore(database, logger.Logger)

	result, err := store.AcceptLink(context.Background(), args[0])
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(result)
	}

	fmt.Printf("Accepted %s\n", result.LinkID)
	fmt.Printf("  Merged placeholder %s into %s\n", result.PlaceholderID, result.AcceptedEntityID)
	fmt.Printf("  Mentions moved:      %d\n", result.MentionsMoved)
	fmt.Printf("  Aliases transferred: %d\n", result.AliasesTransferred)
	return nil
}

func runAdjudicateReject(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	store := storage.NewStore(database, logger.Logger)

	if err := store.RejectLink(context.Background(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Rejected %s\n", args[0])
	return nil
}
