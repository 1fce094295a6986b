package storage

import (
	"context"
	"database/sql"

	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
)

// Adjudication resolves PENDING candidate links left behind by ambiguous
// resolutions. It is the only code path that deletes a canonical entity.

// AcceptResult summarizes one accepted adjudication.
type AcceptResult struct {
	LinkID             string `json:"link_id"`
	PlaceholderID      string `json:"placeholder_entity_id"`
	AcceptedEntityID   string `json:"accepted_entity_id"`
	MentionsMoved      int64  `json:"mentions_moved"`
	AliasesTransferred int    `json:"aliases_transferred"`
}

// AcceptLink merges an ambiguity placeholder into the accepted candidate:
// the placeholder's aliases are re-registered on the candidate (keeping the
// audit trail intact on collisions), its mentions are re-pointed, the
// placeholder is deleted, the link is marked ACCEPTED and every sibling
// PENDING link of the same mention is rejected.
func (s *Store) AcceptLink(ctx context.Context, linkID string) (*AcceptResult, error) {
	var result *AcceptResult

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		link, err := s.GetLink(ctx, tx, linkID)
		if err != nil {
			return err
		}
		if link.Status != types.StatusPending {
			return errors.Wrapf(errors.ErrConflict, "link %s already adjudicated (%s)", linkID, link.Status)
		}

		mention, err := s.GetMention(ctx, tx, link.MentionID)
		if err != nil {
			return err
		}

		placeholder, err := s.GetEntity(ctx, tx, mention.EntityID)
		if err != nil {
			return err
		}
		if !placeholder.IsUnresolved() {
			return errors.Wrapf(errors.ErrConflict,
				"mention %s no longer points at an unresolved placeholder", mention.ID)
		}

		accepted, err := s.GetEntity(ctx, tx, link.CandidateEntityID)
		if err != nil {
			return err
		}

		// Transfer the placeholder's aliases before deleting it; OR IGNORE
		// keeps the accepted entity's existing rows.
		aliases, err := s.AliasesForEntity(ctx, tx, placeholder.ID)
		if err != nil {
			return err
		}
		for _, a := range aliases {
			transferred, err := s.EnsureAlias(ctx, tx, &types.EntityAlias{
				ID:              types.NewAliasID(),
				Type:            a.Type,
				EntityID:        accepted.ID,
				AliasText:       a.AliasText,
				AliasNormalized: a.AliasNormalized,
			})
			if err != nil {
				return err
			}
			// Mentions referencing the placeholder's alias row must follow it
			// before the row cascades away with the placeholder.
			if err := s.RepointMentionAliases(ctx, tx, a.ID, transferred.ID); err != nil {
				return err
			}
		}

		moved, err := s.RepointMentions(ctx, tx, placeholder.ID, accepted.ID)
		if err != nil {
			return err
		}

		if err := s.SetLinkStatus(ctx, tx, link.ID, types.StatusAccepted); err != nil {
			return err
		}
		if err := s.RejectSiblingLinks(ctx, tx, mention.ID, link.ID); err != nil {
			return err
		}

		// Candidate links of this placeholder's mention are settled; the
		// placeholder itself can go. Alias rows cascade.
		if err := s.DeleteEntity(ctx, tx, placeholder.ID); err != nil {
			return err
		}

		if err := s.TouchEntity(ctx, tx, accepted.ID); err != nil {
			return err
		}

		result = &AcceptResult{
			LinkID:             link.ID,
			PlaceholderID:      placeholder.ID,
			AcceptedEntityID:   accepted.ID,
			MentionsMoved:      moved,
			AliasesTransferred: len(aliases),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.Infow("Accepted candidate link",
			"link_id", result.LinkID,
			"placeholder", result.PlaceholderID,
			"entity", result.AcceptedEntityID,
			"mentions_moved", result.MentionsMoved,
		)
	}
	return result, nil
}

// RejectLink marks one candidate link REJECTED. The placeholder entity
// stands; if every link of a mention ends up rejected, the placeholder
// remains a canonical entity in its own right.
func (s *Store) RejectLink(ctx context.Context, linkID string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		link, err := s.GetLink(ctx, tx, linkID)
		if err != nil {
			return err
		}
		if link.Status != types.StatusPending {
			return errors.Wrapf(errors.ErrConflict, "link %s already adjudicated (%s)", linkID, link.Status)
		}
		return s.SetLinkStatus(ctx, tx, link.ID, types.StatusRejected)
	})
}
