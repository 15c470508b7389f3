package model

import (
	"time"

	"github.com/google/uuid"
)

type DocumentID string

type UserID string

// DocumentKind identifies the source collection of a document
type DocumentKind string

const (
	DocumentKindPlan  DocumentKind = "plan"
	DocumentKindEntry DocumentKind = "entry"
)

// NewDocumentID generates a new unique DocumentID
func NewDocumentID() DocumentID {
	return DocumentID(uuid.New().String())
}

// Embedding is a fixed-dimension numeric representation of a text
type Embedding []float32

// SourceDocument is a plan or journal entry read from the document store.
// The pipeline only reads it and flips IsEmbedded.
type SourceDocument struct {
	ID     DocumentID
	UserID UserID
	Kind   DocumentKind

	Title       string
	Name        string
	Description string
	Content     string
	Notes       string

	// Plan specific
	PlanText    string
	GeneratedAt *time.Time

	// Entry specific
	EntryType string
	Timestamp *time.Time

	IsEmbedded bool
}

// IsPlan reports whether the document is a plan. Documents carrying plan text
// are plans even if they were not loaded from the plans collection.
func (d *SourceDocument) IsPlan() bool {
	return d.Kind == DocumentKindPlan || d.PlanText != ""
}

// EmbeddedDocument is a SourceDocument with its embedding attached. It only
// lives for the duration of a pipeline run.
type EmbeddedDocument struct {
	SourceDocument
	Embedding Embedding
}
