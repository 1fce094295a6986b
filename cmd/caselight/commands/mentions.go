package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caselight/caselight/display"
	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
	"github.com/caselight/caselight/logger"
)

var mentionsWith string

// MentionsCmd represents the mentions command
var MentionsCmd = &cobra.Command{
	Use:   "mentions <entity-id|name>",
	Short: "List mentions of an entity across documents",
	Long: `List every mention of an entity, with document and context.

The argument is either a canonical entity id (EN...) or a name, which is
resolved the same way 'caselight entity' resolves it. A name matching
several entities is an error; disambiguate with the id.

With --with, only documents that also mention the second entity are
listed, answering "where do these two appear together".

Examples:
  caselight mentions "Jeffrey Epstein"
  caselight mentions ENd4c9...
  caselight mentions "Jeffrey Epstein" --with "Ghislaine Maxwell"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMentions,
}

func init() {
	MentionsCmd.Flags().StringVar(&mentionsWith, "with", "", "Only documents that also mention this entity (id or name)")
}

func runMentions(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	store := storage.NewStore(database, logger.Logger)
	ctx := context.Background()

	entity, err := resolveEntityArg(ctx, store, strings.Join(args, " "))
	if err != nil {
		return err
	}

	mentions, err := store.MentionsForEntity(ctx, nil, entity.ID)
	if err != nil {
		return err
	}

	if mentionsWith != "" {
		other, err := resolveEntityArg(ctx, store, mentionsWith)
		if err != nil {
			return err
		}
		docIDs, err := store.DocumentsMentioningAll(ctx, entity.ID, other.ID)
		if err != nil {
			return err
		}
		keep := make(map[string]bool, len(docIDs))
		for _, id := range docIDs {
			keep[id] = true
		}
		filtered := mentions[:0]
		for _, m := range mentions {
			if keep[m.DocumentID] {
				filtered = append(filtered, m)
			}
		}
		mentions = filtered
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(mentions)
	}

	fmt.Printf("%s  [%s]  %d mentions\n\n", entity.CanonicalText, entity.Type, len(mentions))
	for _, m := range mentions {
		doc, err := store.GetDocument(ctx, nil, m.DocumentID)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %q\n", doc.Filename, m.MentionText)
		if m.ContextSnippet != "" {
			fmt.Printf("  ...%s...\n", m.ContextSnippet)
		}
		fmt.Println()
	}

	return nil
}

// resolveEntityArg accepts either a canonical entity id or a name.
func resolveEntityArg(ctx context.Context, store *storage.Store, arg string) (*types.CanonicalEntity, error) {
	if strings.HasPrefix(arg, "EN") {
		if e, err := store.GetEntity(ctx, nil, arg); err == nil {
			return e, nil
		}
	}

	entities, err := store.ResolveQueryText(ctx, arg, "")
	if err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, errors.NewNotFoundf("no entity matches %q", arg)
	case 1:
		return entities[0], nil
	default:
		ids := make([]string, len(entities))
		for i, e := range entities {
			ids[i] = fmt.Sprintf("%s (%s %s)", e.ID, e.Type, e.CanonicalText)
		}
		return nil, errors.Newf("%q matches %d entities, use an id: %s",
			arg, len(entities), strings.Join(ids, ", "))
	}
}
