package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/viant/vec/search"
)

// Memory is an in-process Repository. It is used by tests and for local runs
// without a database.
type Memory struct {
	mu      sync.RWMutex
	plans   map[model.DocumentID]*model.SourceDocument
	entries map[model.DocumentID]*model.SourceDocument
	goals   map[model.UserID]string
	records []*model.VectorRecord
}

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		plans:   make(map[model.DocumentID]*model.SourceDocument),
		entries: make(map[model.DocumentID]*model.SourceDocument),
		goals:   make(map[model.UserID]string),
	}
}

// PutEntry stores a journal entry
func (m *Memory) PutEntry(_ context.Context, entry *model.SourceDocument) error {
	if entry.ID == "" {
		entry.ID = model.NewDocumentID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := *entry
	e.Kind = model.DocumentKindEntry
	m.entries[entry.ID] = &e
	return nil
}

// PutUserGoal stores the goal of a user
func (m *Memory) PutUserGoal(_ context.Context, userID model.UserID, goal string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[userID] = goal
	return nil
}

// Document returns a copy of a stored plan or entry
func (m *Memory) Document(kind model.DocumentKind, id model.DocumentID) (*model.SourceDocument, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collection(kind)[id]
	if !ok {
		return nil, false
	}
	d := *doc
	return &d, true
}

// VectorRecords returns all stored vector records in insertion order
func (m *Memory) VectorRecords() []*model.VectorRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.VectorRecord, len(m.records))
	copy(out, m.records)
	return out
}

func (m *Memory) collection(kind model.DocumentKind) map[model.DocumentID]*model.SourceDocument {
	if kind == model.DocumentKindPlan {
		return m.plans
	}
	return m.entries
}

func (m *Memory) ListUnembeddedPlans(_ context.Context, userID model.UserID) ([]*model.SourceDocument, error) {
	return m.listUnembedded(m.plans, userID), nil
}

func (m *Memory) ListUnembeddedEntries(_ context.Context, userID model.UserID) ([]*model.SourceDocument, error) {
	return m.listUnembedded(m.entries, userID), nil
}

func (m *Memory) listUnembedded(src map[model.DocumentID]*model.SourceDocument, userID model.UserID) []*model.SourceDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []*model.SourceDocument
	for _, doc := range src {
		if doc.UserID != userID || doc.IsEmbedded {
			continue
		}
		d := *doc
		docs = append(docs, &d)
	}

	// map iteration order is random; keep results stable by id
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	return docs
}

func (m *Memory) MarkEmbedded(_ context.Context, kind model.DocumentKind, id model.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collection(kind)[id]
	if !ok {
		return goerr.Wrap(model.ErrNotFound, "source document not found", goerr.V("kind", kind), goerr.V("id", id))
	}
	doc.IsEmbedded = true
	return nil
}

func (m *Memory) PutVectorRecord(_ context.Context, record *model.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := *record
	if r.ID == "" {
		r.ID = model.NewVectorRecordID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.records = append(m.records, &r)
	return nil
}

func (m *Memory) GetUserGoal(_ context.Context, userID model.UserID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	goal, ok := m.goals[userID]
	if !ok {
		return "", goerr.Wrap(model.ErrNotFound, "user not found", goerr.V("user_id", userID))
	}
	return goal, nil
}

func (m *Memory) SearchVectorRecords(_ context.Context, userID model.UserID, vector model.Embedding, limit int) ([]*model.RagContextDocument, error) {
	if limit <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	query := search.Float32s(vector)
	queryMag := query.Magnitude()

	var results []*model.RagContextDocument
	for _, r := range m.records {
		if r.UserID != userID || len(r.Vector) != len(vector) {
			continue
		}

		similarity := 0.0
		candidate := search.Float32s(r.Vector)
		if candidate.Magnitude() > 0 && queryMag > 0 {
			similarity = 1 - float64(query.CosineDistance(candidate))
		}

		results = append(results, &model.RagContextDocument{
			Content:    r.Content,
			Metadata:   contextMetadata(r.Metadata),
			Similarity: similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *Memory) PutPlan(_ context.Context, plan *model.SourceDocument) error {
	if plan.ID == "" {
		plan.ID = model.NewDocumentID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p := *plan
	p.Kind = model.DocumentKindPlan
	m.plans[plan.ID] = &p
	return nil
}

func (m *Memory) Close() error {
	return nil
}
