package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caselight/caselight/display"
	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/logger"
)

var entityType string

// EntityCmd represents the entity command
var EntityCmd = &cobra.Command{
	Use:   "entity <name>",
	Short: "Look up canonical entities by name",
	Long: `Look up canonical entities matching a name.

The query is normalized the same way mentions are, so honorifics and
punctuation do not matter: "Mr. Epstein" finds the same entity as
"epstein". A name shared by several entities returns all of them.

Examples:
  caselight entity "Jeffrey Epstein"
  caselight entity --type LOCATION paris
  caselight entity clinton --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEntity,
}

func init() {
	EntityCmd.Flags().StringVarP(&entityType, "type", "t", "", "Restrict to one entity type (PERSON, LOCATION, ORGANIZATION)")
}

func runEntity(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	store := storage.NewStore(database, logger.Logger)
	ctx := context.Background()

	entities, err := store.ResolveQueryText(ctx, query, types.EntityType(strings.ToUpper(entityType)))
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(entities)
	}

	if len(entities) == 0 {
		fmt.Printf("No entities match %q\n", query)
		return nil
	}

	fmt.Printf("Found %d entities matching %q\n\n", len(entities), query)
	for _, e := range entities {
		aliases, err := store.AliasesForEntity(ctx, nil, e.ID)
		if err != nil {
			return err
		}
		mentions, err := store.MentionsForEntity(ctx, nil, e.ID)
		if err != nil {
			return err
		}

		fmt.Printf("%s  [%s]\n", e.CanonicalText, e.Type)
		fmt.Printf("  ID:       %s\n", e.ID)
		if e.IsUnresolved() {
			fmt.Printf("  Status:   unresolved (awaiting adjudication)\n")
		}
		names := make([]string, 0, len(aliases))
		for _, a := range aliases {
			names = append(names, a.AliasNormalized)
		}
		fmt.Printf("  Aliases:  %s\n", strings.Join(names, ", "))
		fmt.Printf("  Mentions: %d\n", len(mentions))
		fmt.Println()
	}

	return nil
}
