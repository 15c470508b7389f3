package adapter_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/fitplan/pkg/adapter"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestNormalizeEmbedding(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		shape    adapter.EmbeddingShape
		expected model.Embedding
	}{
		{
			name:     "flat",
			raw:      `[0.1, 0.2, 0.3]`,
			shape:    adapter.ShapeFlat,
			expected: model.Embedding{0.1, 0.2, 0.3},
		},
		{
			name:     "nested per token",
			raw:      `[[0.1, 0.2], [0.3, 0.4]]`,
			shape:    adapter.ShapeNested,
			expected: model.Embedding{0.1, 0.2, 0.3, 0.4},
		},
		{
			name:     "single nested vector",
			raw:      `[[0.1, 0.2]]`,
			shape:    adapter.ShapeNested,
			expected: model.Embedding{0.1, 0.2},
		},
		{
			name:     "deeply nested",
			raw:      `[[[1, 2]], [[3]]]`,
			shape:    adapter.ShapeNested,
			expected: model.Embedding{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := adapter.NormalizeEmbedding([]byte(tt.raw))
			gt.NoError(t, err)
			gt.Equal(t, got.Shape, tt.shape)
			gt.Equal(t, got.Vector, tt.expected)
		})
	}
}

func TestNormalizeEmbeddingInvalid(t *testing.T) {
	for name, raw := range map[string]string{
		"object":       `{"error": "model loading"}`,
		"string":       `"nope"`,
		"empty":        `[]`,
		"empty nested": `[[], []]`,
		"mixed flat":   `[0.1, "x"]`,
		"mixed nested": `[[0.1], ["x"]]`,
		"not json":     `<html>`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := adapter.NormalizeEmbedding([]byte(raw))
			gt.Error(t, err)
			gt.True(t, errors.Is(err, model.ErrInvalidResponseShape))
		})
	}
}

func TestEmbeddingShapeString(t *testing.T) {
	gt.Equal(t, adapter.ShapeFlat.String(), "flat")
	gt.Equal(t, adapter.ShapeNested.String(), "nested")
	gt.Equal(t, adapter.EmbeddingShape(0).String(), "unknown")
}
