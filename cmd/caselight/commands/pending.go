package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caselight/caselight/display"
	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/logger"
)

var pendingLimit int

// PendingCmd represents the pending command
var PendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List candidate links awaiting adjudication",
	Long: `List PENDING candidate links, oldest first.

Each line is one (mention, candidate entity) pair recorded when a
mention matched more than one entity. Resolve them with
'caselight adjudicate accept|reject <link-id>'.

Examples:
  caselight pending
  caselight pending --limit 50`,
	RunE: runPending,
}

func init() {
	PendingCmd.Flags().IntVarP(&pendingLimit, "limit", "l", 20, "Maximum number of links to show")
}

func runPending(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	store := storage.NewStore(database, logger.Logger)
	ctx := context.Background()

	links, err := store.PendingLinks(ctx, nil, pendingLimit)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(links)
	}

	if len(links) == 0 {
		fmt.Println("No candidate links awaiting adjudication")
		return nil
	}

	fmt.Printf("%d candidate links awaiting adjudication\n\n", len(links))
	for _, l := range links {
		mention, err := store.GetMention(ctx, nil, l.MentionID)
		if err != nil {
			return err
		}
		candidate, err := store.GetEntity(ctx, nil, l.CandidateEntityID)
		if err != nil {
			return err
		}
		doc, err := store.GetDocument(ctx, nil, mention.DocumentID)
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", l.ID)
		fmt.Printf("  Mention:   %q in %s\n", mention.MentionText, doc.Filename)
		fmt.Printf("  Candidate: %s [%s]\n", candidate.CanonicalText, candidate.Type)
		fmt.Printf("  Score:     %.2f (%s)\n", l.Score, l.Reason)
		fmt.Println()
	}

	return nil
}
