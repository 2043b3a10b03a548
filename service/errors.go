package service

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound     = errors.New("document not found")
	ErrJobNotFound          = errors.New("job not found")
	ErrNoDocuments          = errors.New("no documents to analyze")
	ErrTooManyDocuments     = errors.New("too many documents in batch")
	ErrUnsupportedFramework = errors.New("unsupported framework")
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrJobNotCancellable    = errors.New("job is not cancellable")
	ErrAnalysisNotReady     = errors.New("analysis not available yet")
	ErrNoFrameworks         = errors.New("no valid frameworks selected")
)

// StageError is a failure inside one pipeline stage. It never aborts a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FatalBatchError aborts a whole batch run
type FatalBatchError struct {
	Phase string
	Err   error
}

func (e *FatalBatchError) Error() string {
	return fmt.Sprintf("batch %s: %v", e.Phase, e.Err)
}

func (e *FatalBatchError) Unwrap() error {
	return e.Err
}
