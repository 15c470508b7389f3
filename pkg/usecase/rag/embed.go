package rag

import (
	"context"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// UpdateEmbeddings embeds the extracted text of every document with a single
// EmbedDocuments call. The returned slice is index aligned with docs. Inputs
// are not modified and nothing is returned when embedding fails.
func (u *UseCase) UpdateEmbeddings(ctx context.Context, docs []*model.SourceDocument) ([]*model.EmbeddedDocument, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = ExtractText(doc)
	}

	vectors, err := u.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed documents", goerr.V("count", len(docs)))
	}
	if len(vectors) != len(docs) {
		return nil, goerr.Wrap(model.ErrInvalidResponseShape, "embedding count does not match document count",
			goerr.V("documents", len(docs)),
			goerr.V("embeddings", len(vectors)))
	}

	result := make([]*model.EmbeddedDocument, len(docs))
	for i, doc := range docs {
		copied := *doc
		copied.IsEmbedded = true
		result[i] = &model.EmbeddedDocument{
			SourceDocument: copied,
			Embedding:      vectors[i],
		}
	}

	return result, nil
}
