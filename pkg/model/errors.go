package model

import "github.com/m-mizutani/goerr/v2"

var (
	ErrInvalidResponseShape    = goerr.New("invalid embedding response shape")
	ErrEmbeddingRequestFailed  = goerr.New("embedding request failed")
	ErrCompletionRequestFailed = goerr.New("completion request failed")
	ErrEmptyCompletion         = goerr.New("completion returned no text")
	ErrDimensionMismatch       = goerr.New("embedding dimension mismatch")
	ErrEmbeddingModelMismatch  = goerr.New("embedding model mismatch")
	ErrNotFound                = goerr.New("not found")
	ErrUserIDRequired          = goerr.New("userId is required")
)
