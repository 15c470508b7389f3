package model

import (
	"time"

	"github.com/google/uuid"
)

type VectorRecordID string

// NewVectorRecordID generates a new unique VectorRecordID
func NewVectorRecordID() VectorRecordID {
	return VectorRecordID(uuid.New().String())
}

// VectorRecordTypePlan is the record type of embedded plans. Entries use
// their own entry type.
const VectorRecordTypePlan = "plan"

// VectorRecord is the unit persisted into the AI document store
type VectorRecord struct {
	ID             VectorRecordID
	UserID         UserID
	Type           string
	Content        string
	Vector         Embedding
	EmbeddingModel string
	Metadata       VectorMetadata
	CreatedAt      time.Time
}

// VectorMetadata holds the source reference and type specific fields of a
// VectorRecord
type VectorMetadata struct {
	SourceID    DocumentID `json:"source_id"`
	EntryType   string     `json:"entry_type,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

// RagContextDocument is a nearest-neighbour result used as prompt context
type RagContextDocument struct {
	Content    string
	Metadata   ContextMetadata
	Similarity float64
}

type ContextMetadata struct {
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}
