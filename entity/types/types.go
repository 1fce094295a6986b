// Package types defines the data model for entity canonicalization:
// canonical entities, their aliases, per-document mentions, and the
// candidate links recorded for ambiguous resolutions.
package types

import (
	"time"

	"github.com/google/uuid"
)

// EntityType classifies a mention or canonical entity.
// Matching is always scoped by type: a PERSON "Paris" and a LOCATION "Paris"
// never share a canonical entity.
type EntityType string

const (
	TypePerson       EntityType = "PERSON"
	TypeLocation     EntityType = "LOCATION"
	TypeOrganization EntityType = "ORGANIZATION"
)

// ValidEntityTypes is the set of all recognized entity types.
var ValidEntityTypes = []EntityType{TypePerson, TypeLocation, TypeOrganization}

// IsValid returns true if the entity type is recognized.
func (et EntityType) IsValid() bool {
	switch et {
	case TypePerson, TypeLocation, TypeOrganization:
		return true
	}
	return false
}

// Match reasons recorded on candidates and candidate links.
const (
	ReasonExactAlias     = "exact_alias"
	ReasonKeyFingerprint = "key_fingerprint"
	ReasonAmbiguous      = "ambiguous_alias_match"
)

// Match scores. An exact alias hit is authoritative; a bare
// surname/org-root fingerprint is a weaker signal.
const (
	ScoreExactAlias     = 1.0
	ScoreKeyFingerprint = 0.6
	ScoreAmbiguous      = 0.5
)

// CandidateStatus is the adjudication state of a candidate link.
type CandidateStatus string

const (
	StatusPending  CandidateStatus = "PENDING"
	StatusAccepted CandidateStatus = "ACCEPTED"
	StatusRejected CandidateStatus = "REJECTED"
)

// Document statuses. Resolution only processes 'pending' documents;
// a rolled-back document returns to 'pending' so a retry reprocesses it
// from scratch.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentResolved DocumentStatus = "resolved"
	DocumentFailed   DocumentStatus = "failed"
)

// Document is one ingested source file.
type Document struct {
	ID        string         `db:"id" json:"id"`
	Dataset   string         `db:"dataset" json:"dataset,omitempty"`
	Filepath  string         `db:"filepath" json:"filepath"`
	Filename  string         `db:"filename" json:"filename"`
	Status    DocumentStatus `db:"status" json:"status"`
	TextChars int            `db:"text_chars" json:"text_chars"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Meta keys used on canonical entities.
const (
	MetaUnresolved = "unresolved"
	MetaReason     = "reason"
)

// CanonicalEntity is the single record representing one real-world
// person, location, or organization. CanonicalNormalized is always derived
// from CanonicalText by the normalizer; Type is immutable once set.
type CanonicalEntity struct {
	ID                  string                 `db:"id" json:"id"`
	Type                EntityType             `db:"entity_type" json:"entity_type"`
	CanonicalText       string                 `db:"canonical_text" json:"canonical_text"`
	CanonicalNormalized string                 `db:"canonical_normalized" json:"canonical_normalized"`
	Meta                map[string]interface{} `db:"meta" json:"meta,omitempty"`
	CreatedAt           time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time              `db:"updated_at" json:"updated_at"`
}

// IsUnresolved reports whether this entity is an ambiguity placeholder
// awaiting adjudication.
func (e *CanonicalEntity) IsUnresolved() bool {
	if e.Meta == nil {
		return false
	}
	v, ok := e.Meta[MetaUnresolved].(bool)
	return ok && v
}

// EntityAlias is one known surface form of a canonical entity.
// (canonical_entity_id, alias_normalized) is unique; the same normalized
// alias may still belong to multiple different entities, which is the
// ambiguity case.
type EntityAlias struct {
	ID              string     `db:"id" json:"id"`
	Type            EntityType `db:"entity_type" json:"entity_type"`
	EntityID        string     `db:"canonical_entity_id" json:"canonical_entity_id"`
	AliasText       string     `db:"alias_text" json:"alias_text"`
	AliasNormalized string     `db:"alias_normalized" json:"alias_normalized"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// EntityMention is one occurrence of an entity inside a document.
// EntityID is always set after resolution; an ambiguous mention points at
// its placeholder entity. AliasID is empty only if no alias row matched.
type EntityMention struct {
	ID                string    `db:"id" json:"id"`
	DocumentID        string    `db:"document_id" json:"document_id"`
	EntityID          string    `db:"canonical_entity_id" json:"canonical_entity_id"`
	AliasID           string    `db:"alias_id" json:"alias_id,omitempty"`
	MentionText       string    `db:"mention_text" json:"mention_text"`
	MentionNormalized string    `db:"mention_normalized" json:"mention_normalized"`
	ContextSnippet    string    `db:"context_snippet" json:"context_snippet,omitempty"`
	CharPosition      *int      `db:"char_position" json:"char_position,omitempty"`
	Confidence        float64   `db:"confidence" json:"confidence"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// CandidateLink records one (mention, candidate entity) pair for an
// ambiguous mention. Created PENDING; only adjudication mutates status.
type CandidateLink struct {
	ID                string          `db:"id" json:"id"`
	MentionID         string          `db:"mention_id" json:"mention_id"`
	CandidateEntityID string          `db:"candidate_entity_id" json:"candidate_entity_id"`
	Score             float64         `db:"score" json:"score"`
	Reason            string          `db:"reason" json:"reason"`
	Status            CandidateStatus `db:"status" json:"status"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// RawMention is the extractor's view of one mention occurrence.
// Position is advisory: used for dedup keys and context snippets only.
type RawMention struct {
	Text     string     `json:"text"`
	Type     EntityType `json:"type"`
	Context  string     `json:"context,omitempty"`
	Position *int       `json:"position,omitempty"`
}

// ID prefixes make row origins obvious in logs and ad hoc queries.
func NewEntityID() string   { return "EN" + uuid.NewString() }
func NewAliasID() string    { return "AL" + uuid.NewString() }
func NewMentionID() string  { return "EM" + uuid.NewString() }
func NewLinkID() string     { return "CL" + uuid.NewString() }
func NewDocumentID() string { return "DOC" + uuid.NewString() }
