package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
)

// Query constants
const (
	entityInsertQuery = `
		INSERT INTO canonical_entities (id, entity_type, canonical_text, canonical_normalized, meta, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	entitySelectColumns = `id, entity_type, canonical_text, canonical_normalized, meta, created_at, updated_at`

	entityByIDQuery = `
		SELECT ` + entitySelectColumns + `
		FROM canonical_entities WHERE id = ?`

	entityByNormalizedQuery = `
		SELECT ` + entitySelectColumns + `
		FROM canonical_entities
		WHERE entity_type = ? AND canonical_normalized = ?
		ORDER BY created_at
		LIMIT ?`

	entityTouchQuery = `
		UPDATE canonical_entities SET updated_at = ? WHERE id = ?`

	entityDeleteQuery = `
		DELETE FROM canonical_entities WHERE id = ?`
)

// CreateEntity persists a new canonical entity. The caller provides the
// normalized form; it must be the normalizer's output for CanonicalText.
func (s *Store) CreateEntity(ctx context.Context, q Querier, e *types.CanonicalEntity) error {
	if !e.Type.IsValid() {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown entity type %q", e.Type)
	}

	metaJSON, err := marshalMeta(e.Meta)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	_, err = s.q(q).ExecContext(ctx, entityInsertQuery,
		e.ID, string(e.Type), e.CanonicalText, e.CanonicalNormalized, metaJSON, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "failed to create entity %s (%s)", e.ID, e.CanonicalText)
	}
	return nil
}

// GetEntity fetches one canonical entity by id.
// Returns errors.ErrNotFound when no row exists.
func (s *Store) GetEntity(ctx context.Context, q Querier, id string) (*types.CanonicalEntity, error) {
	row := s.q(q).QueryRowContext(ctx, entityByIDQuery, id)
	e, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundf("entity %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get entity %s", id)
	}
	return e, nil
}

// FindEntitiesByNormalized returns entities of the given type whose canonical
// normalized text matches exactly, oldest first.
func (s *Store) FindEntitiesByNormalized(ctx context.Context, q Querier, entityType types.EntityType, normalized string, limit int) ([]*types.CanonicalEntity, error) {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	rows, err := s.q(q).QueryContext(ctx, entityByNormalizedQuery, string(entityType), normalized, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find entities for %q", normalized)
	}
	defer rows.Close()

	var entities []*types.CanonicalEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan entity")
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// TouchEntity bumps an entity's updated_at, marking that resolution
// attached new evidence (aliases or mentions) to it.
func (s *Store) TouchEntity(ctx context.Context, q Querier, id string) error {
	if _, err := s.q(q).ExecContext(ctx, entityTouchQuery, time.Now().UTC(), id); err != nil {
		return errors.Wrapf(err, "failed to touch entity %s", id)
	}
	return nil
}

// DeleteEntity removes a canonical entity. Alias rows cascade; mention rows
// do not, so callers must re-point mentions first (adjudication does).
func (s *Store) DeleteEntity(ctx context.Context, q Querier, id string) error {
	if _, err := s.q(q).ExecContext(ctx, entityDeleteQuery, id); err != nil {
		return errors.Wrapf(err, "failed to delete entity %s", id)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(sc scanner) (*types.CanonicalEntity, error) {
	var e types.CanonicalEntity
	var entityType, metaJSON string
	if err := sc.Scan(&e.ID, &entityType, &e.CanonicalText, &e.CanonicalNormalized, &metaJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Type = types.EntityType(entityType)

	if metaJSON != "" && metaJSON != "{}" {
		if err := json.Unmarshal([]byte(metaJSON), &e.Meta); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal meta for entity %s", e.ID)
		}
	}
	return &e, nil
}

func marshalMeta(meta map[string]interface{}) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal entity meta")
	}
	return string(raw), nil
}
