package repository

import (
	"context"

	"github.com/m-mizutani/fitplan/pkg/model"
)

// contextMetadata maps stored record metadata to the date fields of a context
// document. The record's own insert time is not a document date.
func contextMetadata(meta model.VectorMetadata) model.ContextMetadata {
	return model.ContextMetadata{
		CreatedAt: meta.GeneratedAt,
		Timestamp: meta.Timestamp,
	}
}

// Repository defines the document store contract used by the RAG pipeline
type Repository interface {
	// ListUnembeddedPlans returns the user's plans that have no vector record yet
	ListUnembeddedPlans(ctx context.Context, userID model.UserID) ([]*model.SourceDocument, error)

	// ListUnembeddedEntries returns the user's journal entries that have no vector record yet
	ListUnembeddedEntries(ctx context.Context, userID model.UserID) ([]*model.SourceDocument, error)

	// MarkEmbedded sets is_embedded on the source document
	MarkEmbedded(ctx context.Context, kind model.DocumentKind, id model.DocumentID) error

	// PutVectorRecord inserts a record into the AI document store
	PutVectorRecord(ctx context.Context, record *model.VectorRecord) error

	// GetUserGoal returns the goal stored for the user
	GetUserGoal(ctx context.Context, userID model.UserID) (string, error)

	// SearchVectorRecords returns up to limit records of the user ordered by
	// similarity to vector, most similar first
	SearchVectorRecords(ctx context.Context, userID model.UserID, vector model.Embedding, limit int) ([]*model.RagContextDocument, error)

	// PutPlan stores a plan document
	PutPlan(ctx context.Context, plan *model.SourceDocument) error

	// Close releases underlying connections
	Close() error
}

// Journal writes the user-owned records the pipeline reads from. The
// pipeline itself never calls it; it backs the journal and goal commands.
type Journal interface {
	// PutEntry stores a journal entry
	PutEntry(ctx context.Context, entry *model.SourceDocument) error

	// PutUserGoal stores the goal of a user
	PutUserGoal(ctx context.Context, userID model.UserID, goal string) error
}

// Store is a repository that also accepts journal writes
type Store interface {
	Repository
	Journal
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Firestore)(nil)
	_ Store = (*Postgres)(nil)
)
