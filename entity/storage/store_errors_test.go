package storage_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
)

// Failure injection for paths an in-memory database cannot produce.

// queryMatcherAny matches every query, regardless of the expectation string.
var queryMatcherAny = sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error {
	return nil
})

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(queryMatcherAny))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return storage.NewStore(mockDB, nil), mock
}

func TestWithTx_BeginFails(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	err := store.WithTx(context.Background(), func(tx *sql.Tx) error {
		t.Fatal("fn must not run when begin fails")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}

func TestWithTx_CommitFails(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	err := store.WithTx(context.Background(), func(tx *sql.Tx) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
}

func TestCreateEntity_ExecFails(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO canonical_entities").WillReturnError(errors.New("disk I/O error"))

	err := store.CreateEntity(context.Background(), nil, &types.CanonicalEntity{
		ID:                  types.NewEntityID(),
		Type:                types.TypePerson,
		CanonicalText:       "Jeffrey Epstein",
		CanonicalNormalized: "jeffrey epstein",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create entity")
}

func TestFindAliasesByNormalized_QueryFails(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("disk I/O error"))

	_, err := store.FindAliasesByNormalized(context.Background(), nil, types.TypePerson, "epstein", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to find aliases")
}
