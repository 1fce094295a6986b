package resolve_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselight/caselight/entity/match"
	"github.com/caselight/caselight/entity/normalize"
	"github.com/caselight/caselight/entity/resolve"
	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
	testdb "github.com/caselight/caselight/internal/testing"
)

func newEngine(t *testing.T) (*storage.Store, *resolve.Engine) {
	t.Helper()
	store := storage.NewStore(testdb.CreateTestDB(t), nil)
	return store, resolve.NewEngine(store, match.NewMatcher(store, nil), nil)
}

// resolveText runs one mention through the engine inside its own
// transaction, the way the ingestion pipeline does.
func resolveText(t *testing.T, store *storage.Store, engine *resolve.Engine, entityType types.EntityType, text string) *resolve.Resolution {
	t.Helper()
	var res *resolve.Resolution
	err := store.WithTx(context.Background(), func(tx *sql.Tx) error {
		var err error
		res, err = engine.Resolve(context.Background(), tx, entityType, text, normalize.Normalize(text))
		return err
	})
	require.NoError(t, err)
	return res
}

func seedPerson(t *testing.T, store *storage.Store, text string, aliases ...string) *types.CanonicalEntity {
	t.Helper()
	ctx := context.Background()
	e := &types.CanonicalEntity{
		ID:                  types.NewEntityID(),
		Type:                types.TypePerson,
		CanonicalText:       text,
		CanonicalNormalized: aliases[0],
	}
	require.NoError(t, store.CreateEntity(ctx, nil, e))
	for _, a := range aliases {
		require.NoError(t, store.CreateAlias(ctx, nil, &types.EntityAlias{
			ID:              types.NewAliasID(),
			Type:            types.TypePerson,
			EntityID:        e.ID,
			AliasText:       a,
			AliasNormalized: a,
		}))
	}
	return e
}

func TestResolve_NewEntity(t *testing.T) {
	store, engine := newEngine(t)
	ctx := context.Background()

	res := resolveText(t, store, engine, types.TypePerson, "Jeffrey Epstein")
	assert.True(t, res.IsNew)
	assert.False(t, res.IsAmbiguous)
	assert.Equal(t, types.ScoreExactAlias, res.Confidence)
	assert.NotEmpty(t, res.AliasID)

	e, err := store.GetEntity(ctx, nil, res.EntityID)
	require.NoError(t, err)
	assert.Equal(t, "Jeffrey Epstein", e.CanonicalText)
	assert.Equal(t, "jeffrey epstein", e.CanonicalNormalized)

	// Both the full form and the surname fingerprint are registered.
	aliases, err := store.AliasesForEntity(ctx, nil, res.EntityID)
	require.NoError(t, err)
	normalized := make(map[string]bool)
	for _, a := range aliases {
		normalized[a.AliasNormalized] = true
	}
	assert.True(t, normalized["jeffrey epstein"])
	assert.True(t, normalized["epstein"])
}

func TestResolve_Idempotent(t *testing.T) {
	store, engine := newEngine(t)
	ctx := context.Background()

	first := resolveText(t, store, engine, types.TypePerson, "Jeffrey Epstein")
	second := resolveText(t, store, engine, types.TypePerson, "Jeffrey Epstein")

	assert.Equal(t, first.EntityID, second.EntityID)
	assert.True(t, first.IsNew)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.AliasID, second.AliasID)

	counts, err := store.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["canonical_entities"])
	assert.Equal(t, int64(2), counts["entity_aliases"], "no duplicate alias rows")
}

func TestResolve_MergeByExactAlias(t *testing.T) {
	store, engine := newEngine(t)

	first := resolveText(t, store, engine, types.TypePerson, "Jeffrey Epstein")

	// The surname was registered as an alias, so a bare "Epstein" mention
	// is an exact hit.
	second := resolveText(t, store, engine, types.TypePerson, "Epstein")
	assert.Equal(t, first.EntityID, second.EntityID)
	assert.False(t, second.IsNew)
	assert.Equal(t, types.ScoreExactAlias, second.Confidence)
}

func TestResolve_MergeByFingerprint(t *testing.T) {
	store, engine := newEngine(t)
	ctx := context.Background()

	first := resolveText(t, store, engine, types.TypePerson, "Jeffrey Epstein")

	// "Mark Epstein" matches nothing exactly; the shared surname
	// fingerprint is the single weaker candidate.
	second := resolveText(t, store, engine, types.TypePerson, "Mark Epstein")
	assert.Equal(t, first.EntityID, second.EntityID)
	assert.Equal(t, types.ScoreKeyFingerprint, second.Confidence)

	// The merged mention's own full form becomes an alias of the entity.
	aliases, err := store.AliasesForEntity(ctx, nil, first.EntityID)
	require.NoError(t, err)
	normalized := make(map[string]bool)
	for _, a := range aliases {
		normalized[a.AliasNormalized] = true
	}
	assert.True(t, normalized["mark epstein"])
}

func TestResolve_AmbiguousEscalates(t *testing.T) {
	store, engine := newEngine(t)
	ctx := context.Background()

	// Two established Clintons, both carrying the shared "clinton" alias.
	// Resolving them through the engine would fingerprint-merge the second
	// into the first, so they are seeded as distinct entities directly.
	bill := seedPerson(t, store, "Bill Clinton", "bill clinton", "clinton")
	hillary := seedPerson(t, store, "Hillary Clinton", "hillary clinton", "clinton")

	// A bare "Clinton" mention now matches two entities exactly.
	res := resolveText(t, store, engine, types.TypePerson, "Clinton")
	assert.True(t, res.IsAmbiguous)
	assert.True(t, res.IsNew)
	assert.Equal(t, types.ScoreAmbiguous, res.Confidence)
	assert.NotEqual(t, bill.ID, res.EntityID)
	assert.NotEqual(t, hillary.ID, res.EntityID)

	require.Len(t, res.Candidates, 2)
	candidateIDs := map[string]bool{}
	for _, c := range res.Candidates {
		candidateIDs[c.EntityID] = true
	}
	assert.True(t, candidateIDs[bill.ID])
	assert.True(t, candidateIDs[hillary.ID])

	placeholder, err := store.GetEntity(ctx, nil, res.EntityID)
	require.NoError(t, err)
	assert.True(t, placeholder.IsUnresolved())
	assert.Equal(t, types.ReasonAmbiguous, placeholder.Meta[types.MetaReason])
}

func TestResolve_TypeIsolation(t *testing.T) {
	store, engine := newEngine(t)

	person := resolveText(t, store, engine, types.TypePerson, "Paris")
	place := resolveText(t, store, engine, types.TypeLocation, "Paris")

	assert.NotEqual(t, person.EntityID, place.EntityID)
	assert.True(t, person.IsNew)
	assert.True(t, place.IsNew)
}

func TestResolve_EmptyNormalizedRejected(t *testing.T) {
	store, engine := newEngine(t)

	err := store.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := engine.Resolve(context.Background(), tx, types.TypePerson, "!!!", "")
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestResolve_BareFirstNameStaysSeparate(t *testing.T) {
	store, engine := newEngine(t)

	full := resolveText(t, store, engine, types.TypePerson, "Jeffrey Epstein")

	// A bare first name carries no surname fingerprint and no exact alias;
	// it becomes its own entity rather than guessing at the full name.
	bare := resolveText(t, store, engine, types.TypePerson, "Jeffrey")
	assert.True(t, bare.IsNew)
	assert.NotEqual(t, full.EntityID, bare.EntityID)
}
