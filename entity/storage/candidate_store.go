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
	linkInsertQuery = `
		INSERT INTO entity_candidate_links (id, mention_id, candidate_entity_id, score, reason, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	linkSelectColumns = `id, mention_id, candidate_entity_id, score, reason, status, created_at, updated_at`

	linkByIDQuery = `
		SELECT ` + linkSelectColumns + `
		FROM entity_candidate_links WHERE id = ?`

	linksByStatusQuery = `
		SELECT ` + linkSelectColumns + `
		FROM entity_candidate_links
		WHERE status = ?
		ORDER BY created_at
		LIMIT ?`

	linksForMentionQuery = `
		SELECT ` + linkSelectColumns + `
		FROM entity_candidate_links
		WHERE mention_id = ?
		ORDER BY score DESC, created_at`

	linkSetStatusQuery = `
		UPDATE entity_candidate_links SET status = ?, updated_at = ? WHERE id = ?`

	linksRejectSiblingsQuery = `
		UPDATE entity_candidate_links
		SET status = ?, updated_at = ?
		WHERE mention_id = ? AND id != ? AND status = ?`
)

// CreateLink records one PENDING candidate for an ambiguous mention.
// (mention_id, candidate_entity_id) is unique.
func (s *Store) CreateLink(ctx context.Context, q Querier, l *types.CandidateLink) error {
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	if l.Status == "" {
		l.Status = types.StatusPending
	}

	_, err := s.q(q).ExecContext(ctx, linkInsertQuery,
		l.ID, l.MentionID, l.CandidateEntityID, l.Score, l.Reason, string(l.Status), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "failed to create candidate link %s -> %s", l.MentionID, l.CandidateEntityID)
	}
	return nil
}

// GetLink fetches one candidate link by id.
func (s *Store) GetLink(ctx context.Context, q Querier, id string) (*types.CandidateLink, error) {
	row := s.q(q).QueryRowContext(ctx, linkByIDQuery, id)
	l, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundf("candidate link %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get candidate link %s", id)
	}
	return l, nil
}

// PendingLinks lists candidate links awaiting adjudication, oldest first.
func (s *Store) PendingLinks(ctx context.Context, q Querier, limit int) ([]*types.CandidateLink, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryLinks(ctx, q, linksByStatusQuery, string(types.StatusPending), limit)
}

// LinksForMention lists every candidate recorded for one mention,
// highest score first.
func (s *Store) LinksForMention(ctx context.Context, q Querier, mentionID string) ([]*types.CandidateLink, error) {
	return s.queryLinks(ctx, q, linksForMentionQuery, mentionID)
}

// SetLinkStatus moves a link to ACCEPTED or REJECTED.
func (s *Store) SetLinkStatus(ctx context.Context, q Querier, id string, status types.CandidateStatus) error {
	if _, err := s.q(q).ExecContext(ctx, linkSetStatusQuery, string(status), time.Now().UTC(), id); err != nil {
		return errors.Wrapf(err, "failed to set link %s status to %s", id, status)
	}
	return nil
}

// RejectSiblingLinks rejects every other PENDING link of the same mention.
// Accepting one candidate settles the whole ambiguity.
func (s *Store) RejectSiblingLinks(ctx context.Context, q Querier, mentionID, acceptedLinkID string) error {
	_, err := s.q(q).ExecContext(ctx, linksRejectSiblingsQuery,
		string(types.StatusRejected), time.Now().UTC(), mentionID, acceptedLinkID, string(types.StatusPending))
	if err != nil {
		return errors.Wrapf(err, "failed to reject sibling links for mention %s", mentionID)
	}
	return nil
}

func (s *Store) queryLinks(ctx context.Context, q Querier, query string, args ...interface{}) ([]*types.CandidateLink, error) {
	rows, err := s.q(q).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query candidate links")
	}
	defer rows.Close()

	var links []*types.CandidateLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan candidate link")
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func scanLink(sc scanner) (*types.CandidateLink, error) {
	var l types.CandidateLink
	var status string
	if err := sc.Scan(&l.ID, &l.MentionID, &l.CandidateEntityID, &l.Score, &l.Reason, &status, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Status = types.CandidateStatus(status)
	return &l, nil
}
