package model

import "time"

// DefaultTopK is the number of context documents retrieved when a request
// does not specify one
const DefaultTopK = 5

// PromptTemplate renders a prompt from retrieved context, the user's goal and
// the user's input. Implementations must be pure.
type PromptTemplate func(docs []*RagContextDocument, goal, input string) string

// RagRequest is the input of a retrieval-augmented completion
type RagRequest struct {
	UserID         UserID
	Input          string
	Model          string
	PromptTemplate PromptTemplate
	EmbeddingModel string
	TopK           int
}

// Limit returns TopK, or DefaultTopK if TopK is not positive
func (r *RagRequest) Limit() int {
	if r.TopK <= 0 {
		return DefaultTopK
	}
	return r.TopK
}

type GeneratedPlanID string

// GeneratedPlan is a fitness plan produced by the completion model
type GeneratedPlan struct {
	ID          GeneratedPlanID `json:"id"`
	UserID      UserID          `json:"user_id"`
	Input       string          `json:"input"`
	Text        string          `json:"text"`
	Model       string          `json:"model"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// SourceDocument converts the plan into an unembedded plan document so it is
// picked up as context by later runs
func (p *GeneratedPlan) SourceDocument() *SourceDocument {
	generatedAt := p.GeneratedAt
	return &SourceDocument{
		ID:          DocumentID(p.ID),
		UserID:      p.UserID,
		Kind:        DocumentKindPlan,
		Title:       "Fitness plan",
		Description: p.Input,
		Content:     p.Text,
		PlanText:    p.Text,
		GeneratedAt: &generatedAt,
	}
}

// Soft holds the result of a lookup that falls back to a default value on
// failure. Err is set when Value is the fallback.
type Soft[T any] struct {
	Value T
	Err   error
}

// Degraded reports whether Value is a fallback
func (s Soft[T]) Degraded() bool {
	return s.Err != nil
}
