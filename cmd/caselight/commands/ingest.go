package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/caselight/caselight/config"
	"github.com/caselight/caselight/db"
	"github.com/caselight/caselight/display"
	"github.com/caselight/caselight/entity/ingest"
	"github.com/caselight/caselight/entity/match"
	"github.com/caselight/caselight/entity/resolve"
	"github.com/caselight/caselight/entity/storage"
	"github.com/caselight/caselight/errors"
	"github.com/caselight/caselight/extract"
	"github.com/caselight/caselight/logger"
)

var (
	ingestDataset string
	ingestWatch   string
	ingestText    bool
)

// IngestCmd represents the ingest command
var IngestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Resolve extraction files into the canonical store",
	Long: `Resolve named-entity extraction output into the canonical store.

Each argument is an extraction JSON file produced by the upstream NER
pass. Every document in a file is resolved in its own transaction; a
document that fails is rolled back and left pending while the rest of
the run continues.

With --text, arguments are raw text files instead: each one is sent to
the configured NER sidecar for extraction before resolution.

With --watch, caselight processes every extraction file already in the
directory and then keeps running, resolving new files as they appear.

Examples:
  caselight ingest extractions/run1.json
  caselight ingest --dataset prod extractions/*.json
  caselight ingest --text --dataset letters letters/*.txt
  caselight ingest --watch extractions/`,
	RunE: runIngest,
}

func init() {
	IngestCmd.Flags().StringVar(&ingestDataset, "dataset", "", "Dataset label recorded on ingested documents")
	IngestCmd.Flags().StringVar(&ingestWatch, "watch", "", "Directory to watch for new extraction files")
	IngestCmd.Flags().BoolVar(&ingestText, "text", false, "Treat arguments as raw text files and extract via the NER sidecar")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestWatch == "" && len(args) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "no extraction files given (and no --watch directory)")
	}

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	store := storage.NewStore(database, logger.Logger)
	engine := resolve.NewEngine(store, match.NewMatcher(store, logger.Logger), logger.Logger)

	var emitter ingest.ProgressEmitter
	if display.ShouldOutputJSON(cmd) {
		emitter = &ingest.JSONEmitter{}
	} else {
		emitter = &ingest.CLIEmitter{}
	}
	pipeline := ingest.NewPipeline(store, engine, emitter, logger.Logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if ingestWatch != "" {
		return runIngestWatch(ctx, store, pipeline)
	}
	if ingestText {
		return runIngestText(ctx, store, pipeline, args)
	}

	for _, path := range args {
		if err := ingestExtractionFile(ctx, store, pipeline, path); err != nil {
			return err
		}
	}
	return nil
}

// ingestExtractionFile resolves one extraction file end to end.
func ingestExtractionFile(ctx context.Context, store *storage.Store, pipeline *ingest.Pipeline, path string) error {
	result, err := extract.NewFileSource(path).Extract(ctx)
	if err != nil {
		return err
	}
	return ingestResult(ctx, store, pipeline, result)
}

// runIngestText sends raw text files through the NER sidecar, then
// resolves the extracted mentions.
func runIngestText(ctx context.Context, store *storage.Store, pipeline *ingest.Pipeline, paths []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	docs := make([]extract.DocumentText, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read text file %s", path)
		}
		docs = append(docs, extract.DocumentText{
			Dataset:  ingestDataset,
			Filepath: path,
			Filename: filepath.Base(path),
			Text:     string(data),
		})
	}

	source := extract.NewHTTPSource(extract.HTTPConfig{
		URL:           cfg.Extractor.URL,
		RatePerMinute: cfg.Extractor.RatePerMinute,
		MaxRetries:    cfg.Extractor.MaxRetries,
		Timeout:       time.Duration(cfg.Extractor.TimeoutSeconds) * time.Second,
		AllowLoopback: cfg.Extractor.AllowLoopback,
	}, docs, logger.Logger)

	result, err := source.Extract(ctx)
	if err != nil {
		return err
	}
	return ingestResult(ctx, store, pipeline, result)
}

// runIngestWatch drains the watch directory, then resolves new extraction
// files as they settle, until interrupted.
func runIngestWatch(ctx context.Context, store *storage.Store, pipeline *ingest.Pipeline) error {
	existing, err := filepath.Glob(filepath.Join(ingestWatch, "*.json"))
	if err != nil {
		return errors.Wrapf(err, "list extraction files in %s", ingestWatch)
	}
	for _, path := range existing {
		if err := ingestExtractionFile(ctx, store, pipeline, path); err != nil {
			logger.Logger.Errorw("Failed to ingest extraction file",
				"file", path,
				"error", err,
			)
		}
	}

	watcher, err := extract.NewDirWatcher(ingestWatch, func(path string) error {
		err := ingestExtractionFile(ctx, store, pipeline, path)
		if db.IsDatabaseClosed(err) {
			// A debounced event fired after shutdown closed the database.
			return nil
		}
		return err
	}, logger.Logger)
	if err != nil {
		return err
	}
	watcher.Start()
	defer watcher.Stop()

	logger.Logger.Infow("Watching for extraction files", "dir", ingestWatch)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Logger.Infow("Shutting down", "signal", sig.String())
		return nil
	}
}

// ingestResult registers each extracted document and runs resolution.
func ingestResult(ctx context.Context, store *storage.Store, pipeline *ingest.Pipeline, result *extract.Result) error {
	inputs := make([]ingest.DocumentInput, 0, len(result.Files))
	for i := range result.Files {
		fr := &result.Files[i]
		doc, err := store.UpsertDocument(ctx, nil, fr.ToDocument(ingestDataset))
		if err != nil {
			return err
		}
		inputs = append(inputs, ingest.DocumentInput{
			Document: doc,
			Mentions: fr.ToRawMentions(),
		})
	}

	run := pipeline.Run(ctx, inputs)
	if run.FailedDocuments > 0 {
		return errors.Newf("%d of %d documents failed to resolve", run.FailedDocuments, run.Documents)
	}
	return nil
}
