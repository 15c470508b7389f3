package repository

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionPlans       = "plans"
	collectionEntries     = "entries"
	collectionUsers       = "users"
	collectionAIDocuments = "ai_documents"

	distanceResultField = "vector_distance"
)

// Firestore implements Repository on Cloud Firestore. Nearest-neighbour
// search requires a vector index on ai_documents.vector with user_id as a
// prefix field.
type Firestore struct {
	client *firestore.Client
}

type firestoreSource struct {
	UserID      string     `firestore:"user_id"`
	Title       string     `firestore:"title,omitempty"`
	Name        string     `firestore:"name,omitempty"`
	Description string     `firestore:"description,omitempty"`
	Content     string     `firestore:"content,omitempty"`
	Notes       string     `firestore:"notes,omitempty"`
	PlanText    string     `firestore:"plan_text,omitempty"`
	GeneratedAt *time.Time `firestore:"generated_at,omitempty"`
	Type        string     `firestore:"type,omitempty"`
	Timestamp   *time.Time `firestore:"timestamp,omitempty"`
	IsEmbedded  bool       `firestore:"is_embedded"`
}

type firestoreUser struct {
	Goal string `firestore:"goal"`
}

type firestoreVectorMetadata struct {
	SourceID    string     `firestore:"source_id"`
	EntryType   string     `firestore:"entry_type,omitempty"`
	Timestamp   *time.Time `firestore:"timestamp,omitempty"`
	GeneratedAt *time.Time `firestore:"generated_at,omitempty"`
}

type firestoreVectorRecord struct {
	UserID         string                  `firestore:"user_id"`
	Type           string                  `firestore:"type"`
	Content        string                  `firestore:"content"`
	Vector         firestore.Vector32      `firestore:"vector"`
	EmbeddingModel string                  `firestore:"embedding_model"`
	Metadata       firestoreVectorMetadata `firestore:"metadata"`
	CreatedAt      time.Time               `firestore:"created_at"`
}

// NewFirestore connects to the Firestore database of the project
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}

	return &Firestore{client: client}, nil
}

func collectionOf(kind model.DocumentKind) string {
	if kind == model.DocumentKindPlan {
		return collectionPlans
	}
	return collectionEntries
}

func (r *Firestore) ListUnembeddedPlans(ctx context.Context, userID model.UserID) ([]*model.SourceDocument, error) {
	return r.listUnembedded(ctx, model.DocumentKindPlan, userID)
}

func (r *Firestore) ListUnembeddedEntries(ctx context.Context, userID model.UserID) ([]*model.SourceDocument, error) {
	return r.listUnembedded(ctx, model.DocumentKindEntry, userID)
}

func (r *Firestore) listUnembedded(ctx context.Context, kind model.DocumentKind, userID model.UserID) ([]*model.SourceDocument, error) {
	iter := r.client.Collection(collectionOf(kind)).
		Where("user_id", "==", string(userID)).
		Where("is_embedded", "==", false).
		Documents(ctx)
	defer iter.Stop()

	var docs []*model.SourceDocument
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate source documents",
				goerr.V("kind", kind), goerr.V("user_id", userID))
		}

		var src firestoreSource
		if err := snap.DataTo(&src); err != nil {
			return nil, goerr.Wrap(err, "failed to decode source document", goerr.V("id", snap.Ref.ID))
		}

		docs = append(docs, &model.SourceDocument{
			ID:          model.DocumentID(snap.Ref.ID),
			UserID:      model.UserID(src.UserID),
			Kind:        kind,
			Title:       src.Title,
			Name:        src.Name,
			Description: src.Description,
			Content:     src.Content,
			Notes:       src.Notes,
			PlanText:    src.PlanText,
			GeneratedAt: src.GeneratedAt,
			EntryType:   src.Type,
			Timestamp:   src.Timestamp,
			IsEmbedded:  src.IsEmbedded,
		})
	}

	return docs, nil
}

func (r *Firestore) MarkEmbedded(ctx context.Context, kind model.DocumentKind, id model.DocumentID) error {
	_, err := r.client.Collection(collectionOf(kind)).Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "is_embedded", Value: true},
	})
	if status.Code(err) == codes.NotFound {
		return goerr.Wrap(model.ErrNotFound, "source document not found", goerr.V("kind", kind), goerr.V("id", id))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to mark document embedded", goerr.V("kind", kind), goerr.V("id", id))
	}
	return nil
}

func (r *Firestore) PutVectorRecord(ctx context.Context, record *model.VectorRecord) error {
	if record.ID == "" {
		record.ID = model.NewVectorRecordID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	doc := firestoreVectorRecord{
		UserID:         string(record.UserID),
		Type:           record.Type,
		Content:        record.Content,
		Vector:         firestore.Vector32(record.Vector),
		EmbeddingModel: record.EmbeddingModel,
		Metadata: firestoreVectorMetadata{
			SourceID:    string(record.Metadata.SourceID),
			EntryType:   record.Metadata.EntryType,
			Timestamp:   record.Metadata.Timestamp,
			GeneratedAt: record.Metadata.GeneratedAt,
		},
		CreatedAt: record.CreatedAt,
	}

	if _, err := r.client.Collection(collectionAIDocuments).Doc(string(record.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put vector record",
			goerr.V("id", record.ID), goerr.V("source_id", record.Metadata.SourceID))
	}
	return nil
}

func (r *Firestore) GetUserGoal(ctx context.Context, userID model.UserID) (string, error) {
	snap, err := r.client.Collection(collectionUsers).Doc(string(userID)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", goerr.Wrap(model.ErrNotFound, "user not found", goerr.V("user_id", userID))
	}
	if err != nil {
		return "", goerr.Wrap(err, "failed to get user", goerr.V("user_id", userID))
	}

	var user firestoreUser
	if err := snap.DataTo(&user); err != nil {
		return "", goerr.Wrap(err, "failed to decode user", goerr.V("user_id", userID))
	}
	return user.Goal, nil
}

func (r *Firestore) SearchVectorRecords(ctx context.Context, userID model.UserID, vector model.Embedding, limit int) ([]*model.RagContextDocument, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := r.client.Collection(collectionAIDocuments).
		Where("user_id", "==", string(userID)).
		FindNearest("vector", firestore.Vector32(vector), limit, firestore.DistanceMeasureCosine,
			&firestore.FindNearestOptions{DistanceResultField: distanceResultField})

	iter := query.Documents(ctx)
	defer iter.Stop()

	var results []*model.RagContextDocument
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to search vector records", goerr.V("user_id", userID))
		}

		var rec firestoreVectorRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, goerr.Wrap(err, "failed to decode vector record", goerr.V("id", snap.Ref.ID))
		}

		// cosine distance is in [0, 2]
		similarity := 0.0
		if d, ok := snap.Data()[distanceResultField].(float64); ok {
			similarity = 1 - d
		}

		results = append(results, &model.RagContextDocument{
			Content: rec.Content,
			Metadata: contextMetadata(model.VectorMetadata{
				SourceID:    model.DocumentID(rec.Metadata.SourceID),
				EntryType:   rec.Metadata.EntryType,
				Timestamp:   rec.Metadata.Timestamp,
				GeneratedAt: rec.Metadata.GeneratedAt,
			}),
			Similarity: similarity,
		})
	}

	return results, nil
}

func (r *Firestore) PutPlan(ctx context.Context, plan *model.SourceDocument) error {
	if plan.ID == "" {
		plan.ID = model.NewDocumentID()
	}

	doc := firestoreSource{
		UserID:      string(plan.UserID),
		Title:       plan.Title,
		Name:        plan.Name,
		Description: plan.Description,
		Content:     plan.Content,
		Notes:       plan.Notes,
		PlanText:    plan.PlanText,
		GeneratedAt: plan.GeneratedAt,
		IsEmbedded:  plan.IsEmbedded,
	}

	if _, err := r.client.Collection(collectionPlans).Doc(string(plan.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put plan", goerr.V("id", plan.ID))
	}
	return nil
}

func (r *Firestore) PutEntry(ctx context.Context, entry *model.SourceDocument) error {
	if entry.ID == "" {
		entry.ID = model.NewDocumentID()
	}

	doc := firestoreSource{
		UserID:      string(entry.UserID),
		Title:       entry.Title,
		Name:        entry.Name,
		Description: entry.Description,
		Content:     entry.Content,
		Notes:       entry.Notes,
		Type:        entry.EntryType,
		Timestamp:   entry.Timestamp,
		IsEmbedded:  entry.IsEmbedded,
	}

	if _, err := r.client.Collection(collectionEntries).Doc(string(entry.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put entry", goerr.V("id", entry.ID))
	}
	return nil
}

func (r *Firestore) PutUserGoal(ctx context.Context, userID model.UserID, goal string) error {
	_, err := r.client.Collection(collectionUsers).Doc(string(userID)).
		Set(ctx, map[string]any{"goal": goal}, firestore.MergeAll)
	if err != nil {
		return goerr.Wrap(err, "failed to put user goal", goerr.V("user_id", userID))
	}
	return nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}
