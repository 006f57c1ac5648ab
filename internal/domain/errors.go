package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates bad chunking or retrieval parameters.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch indicates an embedding whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding capability failed or timed out.
	// The enclosing operation made no changes and may be retried.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrNotFound indicates a requested session or document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates a file type the extractor cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// OpError records the operation that failed along with the cause.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError wraps err with the operation name. It returns nil for a nil err.
func NewOpError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}
