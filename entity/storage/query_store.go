package storage

import (
	"context"
	"strings"

	"github.com/caselight/caselight/entity/normalize"
	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
)

// The read-only query surface for downstream consumers. Nothing in this
// file writes; callers pass a nil Querier and read committed state.

// ResolveQueryText resolves a user's free-text query to canonical entities
// by normalizing it and looking up matching alias rows. When entityType is
// empty, all three types are searched.
func (s *Store) ResolveQueryText(ctx context.Context, queryText string, entityType types.EntityType) ([]*types.CanonicalEntity, error) {
	normalized := normalize.Normalize(queryText)
	if normalized == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "query %q has no matchable content", queryText)
	}

	searchTypes := types.ValidEntityTypes
	if entityType != "" {
		if !entityType.IsValid() {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown entity type %q", entityType)
		}
		searchTypes = []types.EntityType{entityType}
	}

	seen := make(map[string]bool)
	var entities []*types.CanonicalEntity
	for _, et := range searchTypes {
		aliases, err := s.FindAliasesByNormalized(ctx, nil, et, normalized, DefaultCandidateLimit)
		if err != nil {
			return nil, err
		}
		for _, a := range aliases {
			if seen[a.EntityID] {
				continue
			}
			seen[a.EntityID] = true

			e, err := s.GetEntity(ctx, nil, a.EntityID)
			if err != nil {
				return nil, err
			}
			entities = append(entities, e)
		}
	}
	return entities, nil
}

// DocumentsMentioningAll answers "which documents mention both X and Y":
// document ids containing at least one mention of every given entity.
func (s *Store) DocumentsMentioningAll(ctx context.Context, entityIDs ...string) ([]string, error) {
	if len(entityIDs) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "no entity ids given")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(entityIDs)), ", ")
	query := `
		SELECT document_id
		FROM entity_mentions
		WHERE canonical_entity_id IN (` + placeholders + `)
		GROUP BY document_id
		HAVING COUNT(DISTINCT canonical_entity_id) = ?
		ORDER BY document_id`

	args := make([]interface{}, 0, len(entityIDs)+1)
	for _, id := range entityIDs {
		args = append(args, id)
	}
	args = append(args, len(entityIDs))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query co-mentioning documents")
	}
	defer rows.Close()

	var docIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan document id")
		}
		docIDs = append(docIDs, id)
	}
	return docIDs, rows.Err()
}

// TableCounts reports row counts per table for `db stats`.
func (s *Store) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, table := range []string{
		"documents",
		"canonical_entities",
		"entity_aliases",
		"entity_mentions",
		"entity_candidate_links",
	} {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, errors.Wrapf(err, "failed to count %s", table)
		}
		counts[table] = n
	}
	return counts, nil
}
