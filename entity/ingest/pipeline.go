// Package ingest drives mention resolution document by document. Each
// document's mentions are deduplicated, resolved through the decision
// engine, and committed as one atomic unit; a failure rolls the whole
// document back and the run moves on to the next one.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/caselight/caselight/entity/normalize"
	"github.com/caselight/caselight/entity/resolve"
	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
)

// DocumentInput pairs a document with its raw extracted mentions.
// Extraction always completes before ingestion starts, so resolution never
// blocks on upstream I/O while holding a transaction.
type DocumentInput struct {
	Document *types.Document
	Mentions []types.RawMention
}

// DocumentResult summarizes resolution of one document.
type DocumentResult struct {
	DocumentID string                   `json:"document_id"`
	Mentions   int                      `json:"mentions"`
	Created    int                      `json:"created"`
	Merged     int                      `json:"merged"`
	Ambiguous  int                      `json:"ambiguous"`
	Skipped    int                      `json:"skipped"`
	ByType     map[types.EntityType]int `json:"by_type"`
}

// RunResult accumulates an ingestion run over many documents.
type RunResult struct {
	Documents       int                      `json:"documents"`
	FailedDocuments int                      `json:"failed_documents"`
	Mentions        int                      `json:"mentions"`
	Created         int                      `json:"created"`
	Merged          int                      `json:"merged"`
	Ambiguous       int                      `json:"ambiguous"`
	Skipped         int                      `json:"skipped"`
	ByType          map[types.EntityType]int `json:"by_type"`
	Failures        []DocumentFailure        `json:"failures,omitempty"`
	Duration        time.Duration            `json:"duration"`
}

// DocumentFailure records one recovered per-document failure.
type DocumentFailure struct {
	DocumentID string `json:"document_id"`
	Error      string `json:"error"`
}

// Pipeline owns all writes to the canonical store. No other component
// creates entities, aliases, mentions or candidate links.
type Pipeline struct {
	store   *storage.Store
	engine  *resolve.Engine
	emitter ProgressEmitter
	log     *zap.SugaredLogger
}

// NewPipeline creates an ingestion pipeline. emitter and logger may be nil.
func NewPipeline(store *storage.Store, engine *resolve.Engine, emitter ProgressEmitter, logger *zap.SugaredLogger) *Pipeline {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Pipeline{store: store, engine: engine, emitter: emitter, log: logger}
}

// Run ingests documents sequentially, isolating failures per document.
// A failed document is counted, reported, and left pending for retry;
// it never aborts the run.
func (p *Pipeline) Run(ctx context.Context, inputs []DocumentInput) *RunResult {
	start := time.Now()
	run := &RunResult{ByType: make(map[types.EntityType]int)}

	p.emitter.EmitStage("resolve", fmt.Sprintf("resolving %d documents", len(inputs)))

	for _, input := range inputs {
		run.Documents++

		result, err := p.IngestDocument(ctx, input.Document, input.Mentions)
		if err != nil {
			run.FailedDocuments++
			run.Failures = append(run.Failures, DocumentFailure{
				DocumentID: input.Document.ID,
				Error:      err.Error(),
			})
			p.emitter.EmitError(input.Document.ID, err)
			if p.log != nil {
				p.log.Errorw("Document resolution failed",
					"document_id", input.Document.ID,
					"error", err,
				)
			}
			continue
		}

		run.Mentions += result.Mentions
		run.Created += result.Created
		run.Merged += result.Merged
		run.Ambiguous += result.Ambiguous
		run.Skipped += result.Skipped
		for et, n := range result.ByType {
			run.ByType[et] += n
		}
		p.emitter.EmitDocument(result)
	}

	run.Duration = time.Since(start)
	p.emitter.EmitComplete(run)
	return run
}

// IngestDocument resolves one document's mentions inside a single
// transaction. On any error the transaction rolls back, the document is
// marked pending again, and the error is returned for the run summary.
func (p *Pipeline) IngestDocument(ctx context.Context, doc *types.Document, rawMentions []types.RawMention) (*DocumentResult, error) {
	if doc == nil || doc.ID == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "document is missing an id")
	}

	result := &DocumentResult{
		DocumentID: doc.ID,
		ByType:     make(map[types.EntityType]int),
	}

	deduped, skipped := dedupeMentions(rawMentions)
	result.Skipped = skipped

	err := p.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, raw := range deduped {
			if err := p.resolveMention(ctx, tx, doc, raw, result); err != nil {
				return err
			}
		}
		return p.store.SetDocumentStatus(ctx, tx, doc.ID, types.DocumentResolved)
	})
	if err != nil {
		// Whole document rolled back; leave it pending so a retry
		// reprocesses it from scratch.
		if markErr := p.store.SetDocumentStatus(ctx, nil, doc.ID, types.DocumentPending); markErr != nil && p.log != nil {
			p.log.Warnw("Failed to mark document pending after rollback",
				"document_id", doc.ID,
				"error", markErr,
			)
		}
		return nil, errors.Wrapf(err, "failed to resolve document %s", doc.ID)
	}

	return result, nil
}

func (p *Pipeline) resolveMention(ctx context.Context, tx *sql.Tx, doc *types.Document, raw types.RawMention, result *DocumentResult) error {
	if !raw.Type.IsValid() {
		return errors.Wrapf(errors.ErrInvalidInput, "mention %q has unknown type %q", raw.Text, raw.Type)
	}

	normalized := normalize.Normalize(raw.Text)
	if normalized == "" {
		// No matchable signal; dropped before resolution.
		result.Skipped++
		return nil
	}

	resolution, err := p.engine.Resolve(ctx, tx, raw.Type, raw.Text, normalized)
	if err != nil {
		return err
	}

	mention := &types.EntityMention{
		ID:                types.NewMentionID(),
		DocumentID:        doc.ID,
		EntityID:          resolution.EntityID,
		AliasID:           resolution.AliasID,
		MentionText:       raw.Text,
		MentionNormalized: normalized,
		ContextSnippet:    raw.Context,
		CharPosition:      raw.Position,
		Confidence:        resolution.Confidence,
	}
	if err := p.store.CreateMention(ctx, tx, mention); err != nil {
		return err
	}

	// Ambiguity bookkeeping: one PENDING link per originally-found
	// candidate, scored as matched.
	if resolution.IsAmbiguous {
		for _, c := range resolution.Candidates {
			if err := p.store.CreateLink(ctx, tx, &types.CandidateLink{
				ID:                types.NewLinkID(),
				MentionID:         mention.ID,
				CandidateEntityID: c.EntityID,
				Score:             c.Score,
				Reason:            c.Reason,
				Status:            types.StatusPending,
			}); err != nil {
				return err
			}
		}
	}

	result.Mentions++
	result.ByType[raw.Type]++
	switch {
	case resolution.IsAmbiguous:
		result.Ambiguous++
	case resolution.IsNew:
		result.Created++
	default:
		result.Merged++
	}
	return nil
}

// dedupeMentions drops repeated extractor output for the same span, keyed by
// (type, normalized text, position). Returns survivors in input order and
// the number dropped.
func dedupeMentions(raw []types.RawMention) ([]types.RawMention, int) {
	seen := make(map[string]bool, len(raw))
	deduped := make([]types.RawMention, 0, len(raw))
	skipped := 0

	for _, m := range raw {
		position := -1
		if m.Position != nil {
			position = *m.Position
		}
		key := fmt.Sprintf("%s\x00%s\x00%d", m.Type, normalize.Normalize(m.Text), position)
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true
		deduped = append(deduped, m)
	}
	return deduped, skipped
}
