package adapter

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// EmbeddingShape describes how a provider laid out an embedding response
type EmbeddingShape int

const (
	// ShapeFlat is a single vector, e.g. [0.1, 0.2]
	ShapeFlat EmbeddingShape = iota + 1
	// ShapeNested is a list of vectors, e.g. per-token [[0.1], [0.2]]
	ShapeNested
)

func (s EmbeddingShape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeNested:
		return "nested"
	default:
		return "unknown"
	}
}

// NormalizedEmbedding is the flat vector decoded from a provider response and
// the shape it had on the wire
type NormalizedEmbedding struct {
	Shape  EmbeddingShape
	Vector model.Embedding
}

// NormalizeEmbedding decodes a feature-extraction response into one flat
// vector. If the first element is itself a list the whole structure is
// flattened in order; otherwise the list is used as-is. Anything that is not a
// non-empty list of numbers (at any nesting depth) is ErrInvalidResponseShape.
func NormalizeEmbedding(raw []byte) (*NormalizedEmbedding, error) {
	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, goerr.Wrap(model.ErrInvalidResponseShape, "embedding response is not an array",
			goerr.V("body", truncate(string(raw), 256)))
	}
	if len(list) == 0 {
		return nil, goerr.Wrap(model.ErrInvalidResponseShape, "embedding response is empty")
	}

	shape := ShapeFlat
	if _, nested := list[0].([]any); nested {
		shape = ShapeNested
	}

	vector := make(model.Embedding, 0, len(list))
	if shape == ShapeFlat {
		for i, v := range list {
			f, ok := v.(float64)
			if !ok {
				return nil, goerr.Wrap(model.ErrInvalidResponseShape, "embedding element is not a number",
					goerr.V("index", i))
			}
			vector = append(vector, float32(f))
		}
	} else {
		var err error
		if vector, err = flatten(vector, list); err != nil {
			return nil, err
		}
	}

	if len(vector) == 0 {
		return nil, goerr.Wrap(model.ErrInvalidResponseShape, "embedding response has no values")
	}

	return &NormalizedEmbedding{Shape: shape, Vector: vector}, nil
}

func flatten(dst model.Embedding, list []any) (model.Embedding, error) {
	for _, v := range list {
		switch x := v.(type) {
		case float64:
			dst = append(dst, float32(x))
		case []any:
			var err error
			if dst, err = flatten(dst, x); err != nil {
				return nil, err
			}
		default:
			return nil, goerr.Wrap(model.ErrInvalidResponseShape, "nested embedding contains a non-numeric value")
		}
	}
	return dst, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
