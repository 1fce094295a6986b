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
	documentUpsertQuery = `
		INSERT INTO documents (id, dataset, filepath, filename, status, text_chars, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dataset, filepath) DO UPDATE SET
			filename = excluded.filename,
			text_chars = excluded.text_chars,
			updated_at = excluded.updated_at`

	documentSelectColumns = `id, dataset, filepath, filename, status, text_chars, created_at, updated_at`

	documentByIDQuery = `
		SELECT ` + documentSelectColumns + `
		FROM documents WHERE id = ?`

	documentByPathQuery = `
		SELECT ` + documentSelectColumns + `
		FROM documents WHERE dataset = ? AND filepath = ?`

	documentSetStatusQuery = `
		UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`

	documentsByStatusQuery = `
		SELECT ` + documentSelectColumns + `
		FROM documents WHERE status = ?
		ORDER BY created_at
		LIMIT ?`
)

// UpsertDocument registers a document, keyed by (dataset, filepath).
// Re-ingesting an existing document keeps its id and status but refreshes
// filename and size. Returns the surviving row.
func (s *Store) UpsertDocument(ctx context.Context, q Querier, d *types.Document) (*types.Document, error) {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.Status == "" {
		d.Status = types.DocumentPending
	}
	d.UpdatedAt = now

	_, err := s.q(q).ExecContext(ctx, documentUpsertQuery,
		d.ID, d.Dataset, d.Filepath, d.Filename, string(d.Status), d.TextChars, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to upsert document %s", d.Filepath)
	}

	return s.GetDocumentByPath(ctx, q, d.Dataset, d.Filepath)
}

// GetDocument fetches one document by id.
func (s *Store) GetDocument(ctx context.Context, q Querier, id string) (*types.Document, error) {
	row := s.q(q).QueryRowContext(ctx, documentByIDQuery, id)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundf("document %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get document %s", id)
	}
	return d, nil
}

// GetDocumentByPath fetches one document by its (dataset, filepath) key.
func (s *Store) GetDocumentByPath(ctx context.Context, q Querier, dataset, filepath string) (*types.Document, error) {
	row := s.q(q).QueryRowContext(ctx, documentByPathQuery, dataset, filepath)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundf("document %s/%s", dataset, filepath)
		}
		return nil, errors.Wrapf(err, "failed to get document %s/%s", dataset, filepath)
	}
	return d, nil
}

// SetDocumentStatus moves a document between pending/resolved/failed.
// The ingestion pipeline marks resolved on commit and pending again on
// rollback so a retry reprocesses the document from scratch.
func (s *Store) SetDocumentStatus(ctx context.Context, q Querier, id string, status types.DocumentStatus) error {
	if _, err := s.q(q).ExecContext(ctx, documentSetStatusQuery, string(status), time.Now().UTC(), id); err != nil {
		return errors.Wrapf(err, "failed to set document %s status to %s", id, status)
	}
	return nil
}

// DocumentsByStatus lists documents in the given state, oldest first.
func (s *Store) DocumentsByStatus(ctx context.Context, q Querier, status types.DocumentStatus, limit int) ([]*types.Document, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.q(q).QueryContext(ctx, documentsByStatusQuery, string(status), limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s documents", status)
	}
	defer rows.Close()

	var docs []*types.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanDocument(sc scanner) (*types.Document, error) {
	var d types.Document
	var status string
	if err := sc.Scan(&d.ID, &d.Dataset, &d.Filepath, &d.Filename, &status, &d.TextChars, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Status = types.DocumentStatus(status)
	return &d, nil
}
