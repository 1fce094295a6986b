// Package extract is the boundary to the upstream NER extractor. It never
// touches the canonical store: a Source produces a Result of raw mentions,
// and extraction always finishes before any resolution transaction opens.
package extract

import (
	"context"
	"path/filepath"

	"github.com/caselight/caselight/entity/types"
)

// Source produces one extraction Result. Implementations classify transient
// failures with errors.ErrRetryable so WithRetry knows what to retry.
type Source interface {
	Extract(ctx context.Context) (*Result, error)
}

// spacyLabelToEntityType maps spaCy NER labels onto the canonical entity
// types. Labels outside this map are dropped.
var spacyLabelToEntityType = map[string]types.EntityType{
	"PERSON": types.TypePerson,
	"ORG":    types.TypeOrganization,
	"GPE":    types.TypeLocation,
	"LOC":    types.TypeLocation,
	"FAC":    types.TypeLocation,
}

// MapLabel translates a spaCy NER label to an entity type.
func MapLabel(label string) (types.EntityType, bool) {
	et, ok := spacyLabelToEntityType[label]
	return et, ok
}

// Context snippet window, in characters on each side of the mention span.
const snippetWindow = 100

// BuildContextSnippet cuts a snippet of fullText around [start, end),
// clamped to the text bounds.
func BuildContextSnippet(fullText string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(fullText) {
		end = len(fullText)
	}
	if start > end {
		return ""
	}
	s := start - snippetWindow
	if s < 0 {
		s = 0
	}
	e := end + snippetWindow
	if e > len(fullText) {
		e = len(fullText)
	}
	return fullText[s:e]
}

// Mention is one extracted entity occurrence as the upstream extractor
// reports it.
type Mention struct {
	Text           string `json:"text"`
	Type           string `json:"type"`
	SpacyLabel     string `json:"spacyLabel,omitempty"`
	StartChar      int    `json:"startChar"`
	EndChar        int    `json:"endChar"`
	Position       int    `json:"position"`
	NormalizedText string `json:"normalizedText,omitempty"`
	Context        string `json:"context,omitempty"`
}

// FileResult is the extraction output for one source file.
type FileResult struct {
	ID                   int64          `json:"id"`
	Dataset              string         `json:"dataset"`
	Filepath             string         `json:"filepath"`
	Filename             string         `json:"filename"`
	TextChars            int            `json:"textChars"`
	MentionsRawCount     int            `json:"mentionsRawCount"`
	MentionsDedupedCount int            `json:"mentionsDedupedCount"`
	CountsByType         map[string]int `json:"countsByType,omitempty"`
	Mentions             []Mention      `json:"mentions"`
}

// Stats summarizes one extraction run.
type Stats struct {
	TotalFiles           int            `json:"totalFiles"`
	Processed            int            `json:"processed"`
	SkippedNoText        int            `json:"skippedNoText"`
	TotalMentionsRaw     int            `json:"totalMentionsRaw"`
	TotalMentionsDeduped int            `json:"totalMentionsDeduped"`
	ByType               map[string]int `json:"byType,omitempty"`
}

// Result is a full extraction run: per-file mention lists plus run stats.
type Result struct {
	GeneratedAt string       `json:"generatedAt,omitempty"`
	Source      string       `json:"source,omitempty"`
	SpacyModel  string       `json:"spacyModel,omitempty"`
	Stats       Stats        `json:"stats"`
	Files       []FileResult `json:"files"`
}

// ToDocument builds the document record for this file. dataset overrides the
// extractor's dataset when non-empty.
func (f *FileResult) ToDocument(dataset string) *types.Document {
	if dataset == "" {
		dataset = f.Dataset
	}
	filename := f.Filename
	if filename == "" && f.Filepath != "" {
		filename = filepath.Base(f.Filepath)
	}
	return &types.Document{
		ID:        types.NewDocumentID(),
		Dataset:   dataset,
		Filepath:  f.Filepath,
		Filename:  filename,
		Status:    types.DocumentPending,
		TextChars: f.TextChars,
	}
}

// ToRawMentions converts the file's mentions to the resolution input shape,
// dropping mentions whose type is neither a canonical entity type nor a
// mappable spaCy label.
func (f *FileResult) ToRawMentions() []types.RawMention {
	raws := make([]types.RawMention, 0, len(f.Mentions))
	for _, m := range f.Mentions {
		et := types.EntityType(m.Type)
		if !et.IsValid() {
			mapped, ok := MapLabel(m.Type)
			if !ok {
				continue
			}
			et = mapped
		}
		if m.Text == "" {
			continue
		}
		pos := m.Position
		raws = append(raws, types.RawMention{
			Text:     m.Text,
			Type:     et,
			Context:  m.Context,
			Position: &pos,
		})
	}
	return raws
}
