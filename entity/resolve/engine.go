package resolve

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/caselight/caselight/db"
	"github.com/caselight/caselight/entity/match"
	"github.com/caselight/caselight/entity/normalize"
	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
)

// Resolution is the final assignment for one mention. EntityID is always
// set; for an ambiguous mention it is the new placeholder entity, and
// Candidates carries the entities the mention might actually belong to so
// the pipeline can record candidate links against the written mention.
type Resolution struct {
	EntityID    string
	AliasID     string
	IsNew       bool
	IsAmbiguous bool
	Confidence  float64
	Candidates  []match.Candidate
}

// Engine performs resolution lookups and the writes each decision implies.
// All methods run against the caller's transaction; the engine never opens
// its own.
type Engine struct {
	store   *storage.Store
	matcher *match.Matcher
	log     *zap.SugaredLogger
}

// NewEngine creates a resolution engine. logger may be nil.
func NewEngine(store *storage.Store, matcher *match.Matcher, logger *zap.SugaredLogger) *Engine {
	return &Engine{store: store, matcher: matcher, log: logger}
}

// Resolve decides where one mention belongs and applies the decision's
// writes inside tx. Re-running with an identical mention against an
// unchanged store is idempotent: the already-registered alias is found and
// the same canonical entity returned without new rows.
//
// A unique-constraint violation during alias or entity creation means a
// concurrent writer registered the same alias first; the engine retries the
// candidate lookup once and re-decides instead of failing the document.
func (e *Engine) Resolve(ctx context.Context, tx *sql.Tx, entityType types.EntityType, mentionText, mentionNormalized string) (*Resolution, error) {
	if mentionNormalized == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "mention %q normalizes to nothing", mentionText)
	}

	res, err := e.resolveOnce(ctx, tx, entityType, mentionText, mentionNormalized)
	if err == nil {
		return res, nil
	}
	if !db.IsUniqueViolation(err) {
		return nil, err
	}

	if e.log != nil {
		e.log.Debugw("Alias creation raced a concurrent writer, re-resolving",
			"mention", mentionNormalized,
			"type", entityType,
		)
	}
	return e.resolveOnce(ctx, tx, entityType, mentionText, mentionNormalized)
}

func (e *Engine) resolveOnce(ctx context.Context, tx *sql.Tx, entityType types.EntityType, mentionText, mentionNormalized string) (*Resolution, error) {
	candidates, err := e.matcher.FindCandidates(ctx, tx, entityType, mentionNormalized)
	if err != nil {
		return nil, err
	}

	decision := Decide(candidates)

	switch decision.Outcome {
	case OutcomeMergeExact, OutcomeMergeFingerprint:
		return e.merge(ctx, tx, entityType, mentionText, mentionNormalized, decision)
	case OutcomeAmbiguous:
		return e.escalate(ctx, tx, entityType, mentionText, mentionNormalized, decision)
	default:
		return e.create(ctx, tx, entityType, mentionText, mentionNormalized)
	}
}

// merge attaches the mention to the decided entity and registers the
// mention's normalized text and fingerprints as aliases so future mentions
// sharing only a fingerprint still find this entity.
func (e *Engine) merge(ctx context.Context, tx *sql.Tx, entityType types.EntityType, mentionText, mentionNormalized string, decision Decision) (*Resolution, error) {
	entityID := decision.Target.EntityID

	aliasID, err := e.registerAliases(ctx, tx, entityType, entityID, mentionText, mentionNormalized)
	if err != nil {
		return nil, err
	}

	if err := e.store.TouchEntity(ctx, tx, entityID); err != nil {
		return nil, err
	}

	return &Resolution{
		EntityID:   entityID,
		AliasID:    aliasID,
		Confidence: decision.Confidence,
		Candidates: decision.Candidates,
	}, nil
}

// create makes a brand-new canonical entity from the mention itself.
func (e *Engine) create(ctx context.Context, tx *sql.Tx, entityType types.EntityType, mentionText, mentionNormalized string) (*Resolution, error) {
	entity := &types.CanonicalEntity{
		ID:                  types.NewEntityID(),
		Type:                entityType,
		CanonicalText:       mentionText,
		CanonicalNormalized: mentionNormalized,
	}
	if err := e.store.CreateEntity(ctx, tx, entity); err != nil {
		return nil, err
	}

	aliasID, err := e.registerAliases(ctx, tx, entityType, entity.ID, mentionText, mentionNormalized)
	if err != nil {
		return nil, err
	}

	if e.log != nil {
		e.log.Debugw("Created canonical entity",
			"entity_id", entity.ID,
			"type", entityType,
			"text", mentionText,
		)
	}

	return &Resolution{
		EntityID:   entity.ID,
		AliasID:    aliasID,
		IsNew:      true,
		Confidence: types.ScoreExactAlias,
	}, nil
}

// escalate handles the ambiguous outcome: a placeholder entity tagged
// unresolved, its own aliases registered, and the original candidates
// carried out for link creation. The mention resolves to the placeholder,
// never to any of the ambiguous candidates.
func (e *Engine) escalate(ctx context.Context, tx *sql.Tx, entityType types.EntityType, mentionText, mentionNormalized string, decision Decision) (*Resolution, error) {
	placeholder := &types.CanonicalEntity{
		ID:                  types.NewEntityID(),
		Type:                entityType,
		CanonicalText:       mentionText,
		CanonicalNormalized: mentionNormalized,
		Meta: map[string]interface{}{
			types.MetaUnresolved: true,
			types.MetaReason:     types.ReasonAmbiguous,
		},
	}
	if err := e.store.CreateEntity(ctx, tx, placeholder); err != nil {
		return nil, err
	}

	aliasID, err := e.registerAliases(ctx, tx, entityType, placeholder.ID, mentionText, mentionNormalized)
	if err != nil {
		return nil, err
	}

	if e.log != nil {
		e.log.Infow("Ambiguous mention escalated",
			"mention", mentionText,
			"type", entityType,
			"placeholder", placeholder.ID,
			"candidates", len(decision.Candidates),
		)
	}

	return &Resolution{
		EntityID:    placeholder.ID,
		AliasID:     aliasID,
		IsNew:       true,
		IsAmbiguous: true,
		Confidence:  decision.Confidence,
		Candidates:  decision.Candidates,
	}, nil
}

// registerAliases makes sure every fingerprint of the mention exists as an
// alias of the entity and returns the alias id of the full normalized form.
// The lookup-miss-then-insert window can race a concurrent writer
// registering the same alias; the unique violation surfaces to Resolve,
// which re-resolves against the winner's rows.
func (e *Engine) registerAliases(ctx context.Context, tx *sql.Tx, entityType types.EntityType, entityID, mentionText, mentionNormalized string) (string, error) {
	var matchedAliasID string

	for _, fp := range normalize.Fingerprints(entityType, mentionText) {
		aliasText := mentionText
		if fp != mentionNormalized {
			// Secondary fingerprints record the key itself as first-seen text.
			aliasText = fp
		}

		alias, err := e.store.GetAliasForEntity(ctx, tx, entityID, fp)
		if errors.IsNotFound(err) {
			alias = &types.EntityAlias{
				ID:              types.NewAliasID(),
				Type:            entityType,
				EntityID:        entityID,
				AliasText:       aliasText,
				AliasNormalized: fp,
			}
			err = e.store.CreateAlias(ctx, tx, alias)
		}
		if err != nil {
			return "", err
		}
		if fp == mentionNormalized {
			matchedAliasID = alias.ID
		}
	}

	return matchedAliasID, nil
}
