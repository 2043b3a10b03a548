package chunkindex

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEmbedder is returned when an index has no embedder
	ErrNoEmbedder = errors.New("no embedder configured")
	// ErrEmbeddingCount is returned when the embedder returns the wrong number of vectors
	ErrEmbeddingCount = errors.New("embedder returned unexpected number of vectors")
)

// RetrievalError reports a failed chunk index operation
type RetrievalError struct {
	Op        string
	Namespace string
	Err       error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("chunk index %s [%s]: %v", e.Op, e.Namespace, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

func retrievalErr(op, namespace string, err error) error {
	if err == nil {
		return nil
	}
	var re *RetrievalError
	if errors.As(err, &re) {
		return err
	}
	return &RetrievalError{Op: op, Namespace: namespace, Err: err}
}
