package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
)

// ambiguityFixture sets up the canonical ambiguous state: a placeholder
// entity holding one mention, with PENDING links to two real candidates.
type ambiguityFixture struct {
	store       *storage.Store
	placeholder *types.CanonicalEntity
	bill        *types.CanonicalEntity
	hillary     *types.CanonicalEntity
	mention     *types.EntityMention
	links       []*types.CandidateLink
}

func newAmbiguityFixture(t *testing.T) *ambiguityFixture {
	t.Helper()
	store := newTestStore(t)
	ctx := context.Background()

	bill := seedEntity(t, store, types.TypePerson, "Bill Clinton", "clinton")
	hillary := seedEntity(t, store, types.TypePerson, "Hillary Clinton", "clinton")

	placeholder := &types.CanonicalEntity{
		ID:                  types.NewEntityID(),
		Type:                types.TypePerson,
		CanonicalText:       "Clinton",
		CanonicalNormalized: "clinton",
		Meta: map[string]interface{}{
			types.MetaUnresolved: true,
			types.MetaReason:     types.ReasonAmbiguous,
		},
	}
	require.NoError(t, store.CreateEntity(ctx, nil, placeholder))
	placeholderAlias, err := store.EnsureAlias(ctx, nil, &types.EntityAlias{
		ID:              types.NewAliasID(),
		Type:            types.TypePerson,
		EntityID:        placeholder.ID,
		AliasText:       "Clinton",
		AliasNormalized: "clinton",
	})
	require.NoError(t, err)

	doc := seedDocument(t, store, "ds", "a.txt")
	mention := &types.EntityMention{
		ID:                types.NewMentionID(),
		DocumentID:        doc.ID,
		EntityID:          placeholder.ID,
		AliasID:           placeholderAlias.ID,
		MentionText:       "Clinton",
		MentionNormalized: "clinton",
		Confidence:        types.ScoreAmbiguous,
	}
	require.NoError(t, store.CreateMention(ctx, nil, mention))

	var links []*types.CandidateLink
	for _, candidate := range []*types.CanonicalEntity{bill, hillary} {
		l := &types.CandidateLink{
			ID:                types.NewLinkID(),
			MentionID:         mention.ID,
			CandidateEntityID: candidate.ID,
			Score:             types.ScoreExactAlias,
			Reason:            types.ReasonExactAlias,
		}
		require.NoError(t, store.CreateLink(ctx, nil, l))
		links = append(links, l)
	}

	return &ambiguityFixture{
		store:       store,
		placeholder: placeholder,
		bill:        bill,
		hillary:     hillary,
		mention:     mention,
		links:       links,
	}
}

func (f *ambiguityFixture) linkFor(entityID string) *types.CandidateLink {
	for _, l := range f.links {
		if l.CandidateEntityID == entityID {
			return l
		}
	}
	return nil
}

func TestAcceptLink(t *testing.T) {
	f := newAmbiguityFixture(t)
	ctx := context.Background()

	result, err := f.store.AcceptLink(ctx, f.linkFor(f.bill.ID).ID)
	require.NoError(t, err)

	assert.Equal(t, f.placeholder.ID, result.PlaceholderID)
	assert.Equal(t, f.bill.ID, result.AcceptedEntityID)
	assert.Equal(t, int64(1), result.MentionsMoved)
	assert.Equal(t, 1, result.AliasesTransferred)

	// Mention now belongs to the accepted entity, and its alias reference
	// followed the transferred alias row.
	mention, err := f.store.GetMention(ctx, nil, f.mention.ID)
	require.NoError(t, err)
	assert.Equal(t, f.bill.ID, mention.EntityID)
	assert.NotEqual(t, f.mention.AliasID, mention.AliasID)
	transferred, err := f.store.GetAliasForEntity(ctx, nil, f.bill.ID, "clinton")
	require.NoError(t, err)
	assert.Equal(t, transferred.ID, mention.AliasID)

	// Placeholder is gone.
	_, err = f.store.GetEntity(ctx, nil, f.placeholder.ID)
	assert.True(t, errors.IsNotFound(err))

	// Accepted link ACCEPTED, sibling REJECTED, nothing PENDING.
	accepted, err := f.store.GetLink(ctx, nil, f.linkFor(f.bill.ID).ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAccepted, accepted.Status)

	sibling, err := f.store.GetLink(ctx, nil, f.linkFor(f.hillary.ID).ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, sibling.Status)

	pending, err := f.store.PendingLinks(ctx, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// The placeholder's alias survives on the accepted entity, so a future
	// "Clinton" mention finds Bill as a candidate.
	aliases, err := f.store.FindAliasesByNormalized(ctx, nil, types.TypePerson, "clinton", 0)
	require.NoError(t, err)
	ids := make(map[string]bool)
	for _, a := range aliases {
		ids[a.EntityID] = true
	}
	assert.True(t, ids[f.bill.ID])
	assert.False(t, ids[f.placeholder.ID], "placeholder aliases must not survive deletion")
}

func TestAcceptLink_AlreadyAdjudicated(t *testing.T) {
	f := newAmbiguityFixture(t)
	ctx := context.Background()

	linkID := f.linkFor(f.bill.ID).ID
	_, err := f.store.AcceptLink(ctx, linkID)
	require.NoError(t, err)

	_, err = f.store.AcceptLink(ctx, linkID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestAcceptLink_SiblingAfterAcceptIsConflict(t *testing.T) {
	f := newAmbiguityFixture(t)
	ctx := context.Background()

	_, err := f.store.AcceptLink(ctx, f.linkFor(f.bill.ID).ID)
	require.NoError(t, err)

	// The sibling was auto-rejected; accepting it now must fail cleanly.
	_, err = f.store.AcceptLink(ctx, f.linkFor(f.hillary.ID).ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestAcceptLink_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AcceptLink(context.Background(), "CLmissing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRejectLink(t *testing.T) {
	f := newAmbiguityFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.RejectLink(ctx, f.linkFor(f.bill.ID).ID))

	rejected, err := f.store.GetLink(ctx, nil, f.linkFor(f.bill.ID).ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, rejected.Status)

	// The other link is untouched and the placeholder still stands.
	other, err := f.store.GetLink(ctx, nil, f.linkFor(f.hillary.ID).ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, other.Status)

	placeholder, err := f.store.GetEntity(ctx, nil, f.placeholder.ID)
	require.NoError(t, err)
	assert.True(t, placeholder.IsUnresolved())
}

func TestRejectLink_AllRejectedPlaceholderStands(t *testing.T) {
	f := newAmbiguityFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.RejectLink(ctx, f.linkFor(f.bill.ID).ID))
	require.NoError(t, f.store.RejectLink(ctx, f.linkFor(f.hillary.ID).ID))

	// Every candidate rejected: the placeholder remains a canonical entity
	// in its own right, still flagged unresolved.
	placeholder, err := f.store.GetEntity(ctx, nil, f.placeholder.ID)
	require.NoError(t, err)
	assert.True(t, placeholder.IsUnresolved())

	mentions, err := f.store.MentionsForEntity(ctx, nil, f.placeholder.ID)
	require.NoError(t, err)
	assert.Len(t, mentions, 1)
}

func TestRejectLink_AlreadyAdjudicated(t *testing.T) {
	f := newAmbiguityFixture(t)
	ctx := context.Background()

	linkID := f.linkFor(f.bill.ID).ID
	require.NoError(t, f.store.RejectLink(ctx, linkID))

	err := f.store.RejectLink(ctx, linkID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}
