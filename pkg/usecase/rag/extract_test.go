package rag_test

import (
	"testing"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/usecase/rag"
	"github.com/m-mizutani/gt"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		doc      *model.SourceDocument
		expected string
	}{
		{
			name:     "all fields",
			doc:      &model.SourceDocument{Title: "Week 1", Description: "base building", Content: "3x easy runs"},
			expected: "Week 1 base building 3x easy runs",
		},
		{
			name:     "name and notes as fallback",
			doc:      &model.SourceDocument{Name: "Leg day", Notes: "squats felt heavy"},
			expected: "Leg day squats felt heavy",
		},
		{
			name:     "title wins over name",
			doc:      &model.SourceDocument{Title: "Title", Name: "Name"},
			expected: "Title",
		},
		{
			name:     "content wins over notes",
			doc:      &model.SourceDocument{Content: "Ran 5k", Notes: "ignored"},
			expected: "Ran 5k",
		},
		{
			name:     "empty segments are skipped",
			doc:      &model.SourceDocument{Title: "Rest", Description: "  "},
			expected: "Rest",
		},
		{
			name:     "no text fields",
			doc:      &model.SourceDocument{ID: "x"},
			expected: "No content",
		},
		{
			name:     "whitespace only",
			doc:      &model.SourceDocument{Title: " ", Notes: "\n\t"},
			expected: "No content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Equal(t, rag.ExtractText(tt.doc), tt.expected)
		})
	}
}
