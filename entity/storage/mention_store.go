package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
)

// Query constants
const (
	mentionInsertQuery = `
		INSERT INTO entity_mentions (id, document_id, canonical_entity_id, alias_id, mention_text, mention_normalized, context_snippet, char_position, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	mentionSelectColumns = `id, document_id, canonical_entity_id, alias_id, mention_text, mention_normalized, context_snippet, char_position, confidence, created_at`

	mentionsForEntityQuery = `
		SELECT ` + mentionSelectColumns + `
		FROM entity_mentions
		WHERE canonical_entity_id = ?
		ORDER BY document_id, char_position`

	mentionsForDocumentQuery = `
		SELECT ` + mentionSelectColumns + `
		FROM entity_mentions
		WHERE document_id = ?
		ORDER BY char_position`

	mentionRepointQuery = `
		UPDATE entity_mentions
		SET canonical_entity_id = ?
		WHERE canonical_entity_id = ?`

	mentionRepointAliasQuery = `
		UPDATE entity_mentions
		SET alias_id = ?
		WHERE alias_id = ?`

	mentionByIDQuery = `
		SELECT ` + mentionSelectColumns + `
		FROM entity_mentions WHERE id = ?`
)

// CreateMention persists one resolved mention occurrence.
func (s *Store) CreateMention(ctx context.Context, q Querier, m *types.EntityMention) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := s.q(q).ExecContext(ctx, mentionInsertQuery,
		m.ID, m.DocumentID, m.EntityID, nullIfEmpty(m.AliasID),
		m.MentionText, m.MentionNormalized, m.ContextSnippet,
		nullableInt(m.CharPosition), m.Confidence, m.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "failed to create mention %q in document %s", m.MentionText, m.DocumentID)
	}
	return nil
}

// GetMention fetches one mention by id.
func (s *Store) GetMention(ctx context.Context, q Querier, id string) (*types.EntityMention, error) {
	row := s.q(q).QueryRowContext(ctx, mentionByIDQuery, id)
	m, err := scanMention(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundf("mention %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get mention %s", id)
	}
	return m, nil
}

// MentionsForEntity answers "where is entity X mentioned".
func (s *Store) MentionsForEntity(ctx context.Context, q Querier, entityID string) ([]*types.EntityMention, error) {
	return s.queryMentions(ctx, q, mentionsForEntityQuery, entityID)
}

// MentionsForDocument returns a document's mentions for per-document
// entity summaries.
func (s *Store) MentionsForDocument(ctx context.Context, q Querier, documentID string) ([]*types.EntityMention, error) {
	return s.queryMentions(ctx, q, mentionsForDocumentQuery, documentID)
}

// RepointMentions moves every mention of fromEntity onto toEntity.
// Used by adjudication before a placeholder entity is deleted.
// Returns the number of mentions moved.
func (s *Store) RepointMentions(ctx context.Context, q Querier, fromEntityID, toEntityID string) (int64, error) {
	res, err := s.q(q).ExecContext(ctx, mentionRepointQuery, toEntityID, fromEntityID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to re-point mentions from %s to %s", fromEntityID, toEntityID)
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count re-pointed mentions")
	}
	return moved, nil
}

// RepointMentionAliases moves mention alias references from one alias row to
// another. Adjudication uses this while transferring a placeholder's aliases
// so the alias rows can cascade away with the placeholder.
func (s *Store) RepointMentionAliases(ctx context.Context, q Querier, fromAliasID, toAliasID string) error {
	if _, err := s.q(q).ExecContext(ctx, mentionRepointAliasQuery, toAliasID, fromAliasID); err != nil {
		return errors.Wrapf(err, "failed to re-point mention aliases from %s to %s", fromAliasID, toAliasID)
	}
	return nil
}

func (s *Store) queryMentions(ctx context.Context, q Querier, query string, args ...interface{}) ([]*types.EntityMention, error) {
	rows, err := s.q(q).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query mentions")
	}
	defer rows.Close()

	var mentions []*types.EntityMention
	for rows.Next() {
		m, err := scanMention(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan mention")
		}
		mentions = append(mentions, m)
	}
	return mentions, rows.Err()
}

func scanMention(sc scanner) (*types.EntityMention, error) {
	var m types.EntityMention
	var aliasID sql.NullString
	var position sql.NullInt64
	if err := sc.Scan(&m.ID, &m.DocumentID, &m.EntityID, &aliasID,
		&m.MentionText, &m.MentionNormalized, &m.ContextSnippet,
		&position, &m.Confidence, &m.CreatedAt); err != nil {
		return nil, err
	}
	if aliasID.Valid {
		m.AliasID = aliasID.String
	}
	if position.Valid {
		p := int(position.Int64)
		m.CharPosition = &p
	}
	return &m, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
