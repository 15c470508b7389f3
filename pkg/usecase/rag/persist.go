package rag

import (
	"context"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// SaveEmbeddings marks each source document as embedded and then inserts its
// vector record. Writes are not transactional: the first failure stops the
// batch and earlier writes stay committed. The returned error carries the
// failing source_id and the number of committed documents.
func (u *UseCase) SaveEmbeddings(ctx context.Context, docs []*model.EmbeddedDocument, userID model.UserID) error {
	if userID == "" {
		return goerr.Wrap(model.ErrUserIDRequired, "user id is required to save embeddings")
	}

	if u.dimension > 0 {
		for _, doc := range docs {
			if len(doc.Embedding) != u.dimension {
				return goerr.Wrap(model.ErrDimensionMismatch, "embedding has unexpected dimension",
					goerr.V("source_id", doc.ID),
					goerr.V("expected", u.dimension),
					goerr.V("actual", len(doc.Embedding)))
			}
		}
	}

	for i, doc := range docs {
		kind, record := u.vectorRecord(doc, userID)

		if err := u.repo.MarkEmbedded(ctx, kind, doc.ID); err != nil {
			return goerr.Wrap(err, "failed to mark document as embedded",
				goerr.V("source_id", doc.ID),
				goerr.V("committed", i))
		}

		if err := u.repo.PutVectorRecord(ctx, record); err != nil {
			return goerr.Wrap(err, "failed to insert vector record",
				goerr.V("source_id", doc.ID),
				goerr.V("committed", i))
		}
	}

	logging.From(ctx).Debug("saved embeddings", "user_id", userID, "count", len(docs))
	return nil
}

func (u *UseCase) vectorRecord(doc *model.EmbeddedDocument, userID model.UserID) (model.DocumentKind, *model.VectorRecord) {
	record := &model.VectorRecord{
		UserID:         userID,
		Content:        ExtractText(&doc.SourceDocument),
		Vector:         doc.Embedding,
		EmbeddingModel: u.embedder.Model(),
		Metadata: model.VectorMetadata{
			SourceID: doc.ID,
		},
	}

	if doc.IsPlan() {
		record.Type = model.VectorRecordTypePlan
		record.Metadata.GeneratedAt = doc.GeneratedAt
		return model.DocumentKindPlan, record
	}

	record.Type = doc.EntryType
	if record.Type == "" {
		record.Type = string(model.DocumentKindEntry)
	}
	record.Metadata.EntryType = doc.EntryType
	record.Metadata.Timestamp = doc.Timestamp
	return model.DocumentKindEntry, record
}
