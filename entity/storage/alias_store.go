package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
)

// DefaultCandidateLimit bounds rows fetched per matching mechanism so that
// per-mention cost stays constant regardless of corpus size. Pathologically
// common surnames may not surface every historical candidate; that is a
// deliberate precision/scale trade-off.
const DefaultCandidateLimit = 20

// Query constants
const (
	aliasInsertQuery = `
		INSERT INTO entity_aliases (id, entity_type, canonical_entity_id, alias_text, alias_normalized, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	aliasInsertIgnoreQuery = `
		INSERT OR IGNORE INTO entity_aliases (id, entity_type, canonical_entity_id, alias_text, alias_normalized, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	aliasSelectColumns = `id, entity_type, canonical_entity_id, alias_text, alias_normalized, created_at`

	aliasByNormalizedQuery = `
		SELECT ` + aliasSelectColumns + `
		FROM entity_aliases
		WHERE entity_type = ? AND alias_normalized = ?
		ORDER BY created_at
		LIMIT ?`

	aliasByEntityAndNormalizedQuery = `
		SELECT ` + aliasSelectColumns + `
		FROM entity_aliases
		WHERE canonical_entity_id = ? AND alias_normalized = ?`

	aliasesForEntityQuery = `
		SELECT ` + aliasSelectColumns + `
		FROM entity_aliases
		WHERE canonical_entity_id = ?
		ORDER BY created_at`
)

// CreateAlias inserts a new alias row. A unique-constraint violation on
// (canonical_entity_id, alias_normalized) surfaces to the caller:
// the resolution engine treats it as "another writer got here first"
// and re-resolves.
func (s *Store) CreateAlias(ctx context.Context, q Querier, a *types.EntityAlias) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.q(q).ExecContext(ctx, aliasInsertQuery,
		a.ID, string(a.Type), a.EntityID, a.AliasText, a.AliasNormalized, a.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "failed to create alias %q for entity %s", a.AliasNormalized, a.EntityID)
	}
	return nil
}

// EnsureAlias registers an alias for an entity if not already present and
// returns the surviving row (existing or newly created). This is the
// idempotent path adjudication uses when transferring a placeholder's
// aliases onto the accepted entity.
func (s *Store) EnsureAlias(ctx context.Context, q Querier, a *types.EntityAlias) (*types.EntityAlias, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.q(q).ExecContext(ctx, aliasInsertIgnoreQuery,
		a.ID, string(a.Type), a.EntityID, a.AliasText, a.AliasNormalized, a.CreatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to ensure alias %q for entity %s", a.AliasNormalized, a.EntityID)
	}

	return s.GetAliasForEntity(ctx, q, a.EntityID, a.AliasNormalized)
}

// GetAliasForEntity fetches the alias row for one (entity, normalized) pair.
func (s *Store) GetAliasForEntity(ctx context.Context, q Querier, entityID, normalized string) (*types.EntityAlias, error) {
	row := s.q(q).QueryRowContext(ctx, aliasByEntityAndNormalizedQuery, entityID, normalized)
	a, err := scanAlias(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundf("alias %q for entity %s", normalized, entityID)
		}
		return nil, errors.Wrapf(err, "failed to get alias %q for entity %s", normalized, entityID)
	}
	return a, nil
}

// FindAliasesByNormalized returns alias rows of the given type matching the
// normalized text exactly, oldest first, bounded by limit.
func (s *Store) FindAliasesByNormalized(ctx context.Context, q Querier, entityType types.EntityType, normalized string, limit int) ([]*types.EntityAlias, error) {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	rows, err := s.q(q).QueryContext(ctx, aliasByNormalizedQuery, string(entityType), normalized, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find aliases for %q", normalized)
	}
	defer rows.Close()

	var aliases []*types.EntityAlias
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan alias")
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// AliasesForEntity returns every alias registered for one canonical entity.
func (s *Store) AliasesForEntity(ctx context.Context, q Querier, entityID string) ([]*types.EntityAlias, error) {
	rows, err := s.q(q).QueryContext(ctx, aliasesForEntityQuery, entityID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list aliases for entity %s", entityID)
	}
	defer rows.Close()

	var aliases []*types.EntityAlias
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan alias")
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

func scanAlias(sc scanner) (*types.EntityAlias, error) {
	var a types.EntityAlias
	var entityType string
	if err := sc.Scan(&a.ID, &entityType, &a.EntityID, &a.AliasText, &a.AliasNormalized, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Type = types.EntityType(entityType)
	return &a, nil
}
