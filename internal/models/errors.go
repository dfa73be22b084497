package models

import "fmt"

// DocumentError means the page count of a document could not be determined.
// Fatal to a transcription run.
type DocumentError struct {
	Err error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document error: %v", e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// RenderError means a specific page could not be rendered to an image.
// Fatal to a transcription run.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ExtractionError means text extraction failed for one page image.
// Recovered locally: the page is marked as errored and the run continues.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EvaluationError means the grading call failed or its structured response
// could not be parsed into a report.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error: %v", e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
