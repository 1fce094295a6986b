package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
)

func TestResolveQueryText(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	epstein := seedEntity(t, store, types.TypePerson, "Jeffrey Epstein", "Jeffrey Epstein", "Epstein")
	seedEntity(t, store, types.TypeLocation, "Paris", "Paris")

	// Raw query text goes through the same normalizer as mentions.
	entities, err := store.ResolveQueryText(ctx, "Mr. Epstein", types.TypePerson)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, epstein.ID, entities[0].ID)

	// Untyped query searches all types.
	entities, err = store.ResolveQueryText(ctx, "paris", "")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, types.TypeLocation, entities[0].Type)
}

func TestResolveQueryText_NoMatch(t *testing.T) {
	store := newTestStore(t)

	entities, err := store.ResolveQueryText(context.Background(), "Nobody Special", types.TypePerson)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestResolveQueryText_EmptyQuery(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ResolveQueryText(context.Background(), "  !!! ", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestResolveQueryText_InvalidType(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ResolveQueryText(context.Background(), "epstein", "ANIMAL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestDocumentsMentioningAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	epstein := seedEntity(t, store, types.TypePerson, "Jeffrey Epstein")
	maxwell := seedEntity(t, store, types.TypePerson, "Ghislaine Maxwell")

	both := seedDocument(t, store, "ds", "both.txt")
	onlyEpstein := seedDocument(t, store, "ds", "epstein-only.txt")
	neither := seedDocument(t, store, "ds", "neither.txt")
	_ = neither

	seedMention(t, store, both.ID, epstein.ID, "Epstein")
	seedMention(t, store, both.ID, maxwell.ID, "Maxwell")
	seedMention(t, store, onlyEpstein.ID, epstein.ID, "Epstein")

	docs, err := store.DocumentsMentioningAll(ctx, epstein.ID, maxwell.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, both.ID, docs[0])

	// Single entity degenerates to "documents mentioning X".
	docs, err = store.DocumentsMentioningAll(ctx, epstein.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDocumentsMentioningAll_NoIDs(t *testing.T) {
	store := newTestStore(t)

	_, err := store.DocumentsMentioningAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestTableCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := seedEntity(t, store, types.TypePerson, "Jeffrey Epstein", "Epstein")
	doc := seedDocument(t, store, "ds", "a.txt")
	seedMention(t, store, doc.ID, e.ID, "Epstein")

	counts, err := store.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["documents"])
	assert.Equal(t, int64(1), counts["canonical_entities"])
	assert.Equal(t, int64(1), counts["entity_aliases"])
	assert.Equal(t, int64(1), counts["entity_mentions"])
	assert.Equal(t, int64(0), counts["entity_candidate_links"])
}
