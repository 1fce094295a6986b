package resolve_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselight/caselight/entity/match"
	"github.com/caselight/caselight/entity/resolve"
	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
)

// Failure injection for paths an in-memory database cannot produce: a
// concurrent writer's alias row has to appear between the engine's lookup
// and its insert.

func aliasRows(aliases ...*types.EntityAlias) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "entity_type", "canonical_entity_id", "alias_text", "alias_normalized", "created_at",
	})
	for _, a := range aliases {
		rows.AddRow(a.ID, string(a.Type), a.EntityID, a.AliasText, a.AliasNormalized, time.Now().UTC())
	}
	return rows
}

func TestResolve_UniqueViolationReResolves(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	store := storage.NewStore(mockDB, nil)
	engine := resolve.NewEngine(store, match.NewMatcher(store, nil), nil)

	winner := &types.EntityAlias{
		ID:              "ALwinner",
		Type:            types.TypePerson,
		EntityID:        "ENwinner",
		AliasText:       "Jeffrey Epstein",
		AliasNormalized: "jeffrey epstein",
	}

	mock.ExpectBegin()

	// First pass: no candidates by either mechanism, so a fresh entity is
	// created, but the alias insert loses to a concurrent writer.
	mock.ExpectQuery("FROM entity_aliases").
		WithArgs("PERSON", "jeffrey epstein", storage.DefaultCandidateLimit).
		WillReturnRows(aliasRows())
	mock.ExpectQuery("FROM entity_aliases").
		WithArgs("PERSON", "epstein", storage.DefaultCandidateLimit).
		WillReturnRows(aliasRows())
	mock.ExpectExec("INSERT INTO canonical_entities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("FROM entity_aliases").
		WithArgs(sqlmock.AnyArg(), "jeffrey epstein").
		WillReturnRows(aliasRows())
	mock.ExpectExec("INSERT INTO entity_aliases").
		WillReturnError(errors.New("UNIQUE constraint failed: entity_aliases.canonical_entity_id, entity_aliases.alias_normalized"))

	// Second pass: the winner's row is visible now, so the mention merges
	// into the winner instead of failing the document.
	mock.ExpectQuery("FROM entity_aliases").
		WithArgs("PERSON", "jeffrey epstein", storage.DefaultCandidateLimit).
		WillReturnRows(aliasRows(winner))
	mock.ExpectQuery("FROM entity_aliases").
		WithArgs("PERSON", "epstein", storage.DefaultCandidateLimit).
		WillReturnRows(aliasRows())
	mock.ExpectQuery("FROM entity_aliases").
		WithArgs("ENwinner", "jeffrey epstein").
		WillReturnRows(aliasRows(winner))
	mock.ExpectQuery("FROM entity_aliases").
		WithArgs("ENwinner", "epstein").
		WillReturnRows(aliasRows())
	mock.ExpectExec("INSERT INTO entity_aliases").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE canonical_entities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	var res *resolve.Resolution
	err = store.WithTx(context.Background(), func(tx *sql.Tx) error {
		var err error
		res, err = engine.Resolve(context.Background(), tx, types.TypePerson, "Jeffrey Epstein", "jeffrey epstein")
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, "ENwinner", res.EntityID)
	assert.Equal(t, "ALwinner", res.AliasID)
	assert.False(t, res.IsNew)
	assert.Equal(t, types.ScoreExactAlias, res.Confidence)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_OtherErrorsAreNotRetried(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	store := storage.NewStore(mockDB, nil)
	engine := resolve.NewEngine(store, match.NewMatcher(store, nil), nil)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM entity_aliases").
		WithArgs("PERSON", "jeffrey epstein", storage.DefaultCandidateLimit).
		WillReturnRows(aliasRows())
	mock.ExpectQuery("FROM entity_aliases").
		WithArgs("PERSON", "epstein", storage.DefaultCandidateLimit).
		WillReturnRows(aliasRows())
	mock.ExpectExec("INSERT INTO canonical_entities").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = store.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := engine.Resolve(context.Background(), tx, types.TypePerson, "Jeffrey Epstein", "jeffrey epstein")
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")

	require.NoError(t, mock.ExpectationsWereMet())
}
