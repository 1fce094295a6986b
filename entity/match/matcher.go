// Package match finds candidate canonical entities for a normalized mention
// by querying the alias table, first for exact matches and then by the
// weaker last-token fingerprint.
package match

import (
	"context"

	"go.uber.org/zap"

	"github.com/caselight/caselight/entity/normalize"
	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/entity/types"
)

// Candidate is one canonical entity that plausibly matches a mention.
type Candidate struct {
	EntityID string  `json:"entity_id"`
	AliasID  string  `json:"alias_id"`
	Reason   string  `json:"reason"`
	Score    float64 `json:"score"`
}

// Matcher queries the canonical store for candidates.
type Matcher struct {
	store *storage.Store
	log   *zap.SugaredLogger
}

// NewMatcher creates a candidate matcher over the given store.
// logger may be nil.
func NewMatcher(store *storage.Store, logger *zap.SugaredLogger) *Matcher {
	return &Matcher{store: store, log: logger}
}

// FindCandidates returns scored candidates for a mention, deduplicated by
// canonical entity id: an entity that matches both exactly and by
// fingerprint appears once with the exact_alias reason.
//
// Each mechanism is bounded to storage.DefaultCandidateLimit rows, keeping
// per-mention cost constant regardless of corpus size.
func (m *Matcher) FindCandidates(ctx context.Context, q storage.Querier, entityType types.EntityType, mentionNormalized string) ([]Candidate, error) {
	if mentionNormalized == "" {
		return nil, nil
	}

	var candidates []Candidate
	seen := make(map[string]bool)

	// Mechanism 1: exact alias match.
	exact, err := m.store.FindAliasesByNormalized(ctx, q, entityType, mentionNormalized, storage.DefaultCandidateLimit)
	if err != nil {
		return nil, err
	}
	for _, a := range exact {
		if seen[a.EntityID] {
			continue
		}
		seen[a.EntityID] = true
		candidates = append(candidates, Candidate{
			EntityID: a.EntityID,
			AliasID:  a.ID,
			Reason:   types.ReasonExactAlias,
			Score:    types.ScoreExactAlias,
		})
	}

	// Mechanism 2: last-token fingerprint, PERSON/ORGANIZATION only and
	// only when it differs from the full normalized text.
	fingerprint := normalize.KeyFingerprint(entityType, mentionNormalized)
	if fingerprint != "" {
		weak, err := m.store.FindAliasesByNormalized(ctx, q, entityType, fingerprint, storage.DefaultCandidateLimit)
		if err != nil {
			return nil, err
		}
		for _, a := range weak {
			if seen[a.EntityID] {
				continue
			}
			seen[a.EntityID] = true
			candidates = append(candidates, Candidate{
				EntityID: a.EntityID,
				AliasID:  a.ID,
				Reason:   types.ReasonKeyFingerprint,
				Score:    types.ScoreKeyFingerprint,
			})
		}
	}

	if m.log != nil && len(candidates) > 0 {
		m.log.Debugw("Found candidates",
			"mention", mentionNormalized,
			"type", entityType,
			"count", len(candidates),
		)
	}
	return candidates, nil
}

// Partition splits candidates into the distinct entity id sets the decision
// policy reasons about.
func Partition(candidates []Candidate) (exact, fingerprint []Candidate) {
	for _, c := range candidates {
		switch c.Reason {
		case types.ReasonExactAlias:
			exact = append(exact, c)
		case types.ReasonKeyFingerprint:
			fingerprint = append(fingerprint, c)
		}
	}
	return exact, fingerprint
}
