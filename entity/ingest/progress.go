package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
)

// ProgressEmitter receives pipeline progress. Implementations:
//   - CLIEmitter: pretty-printed terminal output using pterm
//   - JSONEmitter: structured JSON lines for machine consumption
//   - NopEmitter: silence, used by tests
type ProgressEmitter interface {
	// EmitStage announces a pipeline stage change.
	EmitStage(stage, message string)

	// EmitDocument reports one finished document.
	EmitDocument(result *DocumentResult)

	// EmitError reports a per-document failure (recovered, run continues).
	EmitError(documentID string, err error)

	// EmitComplete reports the finished run.
	EmitComplete(result *RunResult)
}

// CLIEmitter outputs pretty-printed progress to the terminal.
type CLIEmitter struct{}

func (e *CLIEmitter) EmitStage(stage, message string) {
	pterm.Printf("🔄 %s: %s\n", pterm.LightCyan(stage), message)
}

func (e *CLIEmitter) EmitDocument(result *DocumentResult) {
	pterm.Printf("✅ %s: %s mentions (%s new, %s merged, %s ambiguous)\n",
		result.DocumentID,
		pterm.Green(fmt.Sprintf("%d", result.Mentions)),
		pterm.Green(fmt.Sprintf("%d", result.Created)),
		pterm.Green(fmt.Sprintf("%d", result.Merged)),
		pterm.Yellow(fmt.Sprintf("%d", result.Ambiguous)),
	)
}

func (e *CLIEmitter) EmitError(documentID string, err error) {
	pterm.Error.Printf("Document %s failed: %v\n", documentID, err)
}

func (e *CLIEmitter) EmitComplete(result *RunResult) {
	if result.FailedDocuments > 0 {
		pterm.Warning.Printf("Run complete with failures: %d/%d documents resolved\n",
			result.Documents-result.FailedDocuments, result.Documents)
		return
	}
	pterm.Success.Printf("Resolved %d documents, %d mentions (%d entities created)\n",
		result.Documents, result.Mentions, result.Created)
}

// progressEvent is one structured JSON progress line.
type progressEvent struct {
	Type      string      `json:"type"` // "stage", "document", "error", "complete"
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// JSONEmitter writes one JSON object per event to stdout.
type JSONEmitter struct{}

func (e *JSONEmitter) emit(eventType string, data interface{}) {
	event := progressEvent{Type: eventType, Timestamp: time.Now().UTC(), Data: data}
	raw, err := json.Marshal(event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal progress event: %v\n", err)
		return
	}
	fmt.Println(string(raw))
}

func (e *JSONEmitter) EmitStage(stage, message string) {
	e.emit("stage", map[string]string{"stage": stage, "message": message})
}

func (e *JSONEmitter) EmitDocument(result *DocumentResult) {
	e.emit("document", result)
}

func (e *JSONEmitter) EmitError(documentID string, err error) {
	e.emit("error", map[string]string{"document_id": documentID, "error": err.Error()})
}

func (e *JSONEmitter) EmitComplete(result *RunResult) {
	e.emit("complete", result)
}

// NopEmitter discards all progress.
type NopEmitter struct{}

func (NopEmitter) EmitStage(stage, message string)        {}
func (NopEmitter) EmitDocument(result *DocumentResult)    {}
func (NopEmitter) EmitError(documentID string, err error) {}
func (NopEmitter) EmitComplete(result *RunResult)         {}
