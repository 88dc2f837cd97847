// Package errors provides the typed error taxonomy of the email creation
// pipeline. Every stage failure surfaces as a *PipelineError identifying the
// failing stage and carrying a human-readable detail string; provider
// internals never reach the caller. Image-generation failures are not part
// of this taxonomy: they are absorbed inside the content stage and surface
// only as a placeholder reference.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"

	"email-assistant/internal/status"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNoCandidates            ErrorCode = "NO_CANDIDATES"
	ErrCodeTemplateSelectionFailed ErrorCode = "TEMPLATE_SELECTION_FAILED"
	ErrCodeContentGenerationFailed ErrorCode = "CONTENT_GENERATION_FAILED"
	ErrCodeCompilationFailed       ErrorCode = "COMPILATION_FAILED"
)

// PipelineError is a structured stage failure.
type PipelineError struct {
	Stage     status.Stage `json:"stage"`
	Code      ErrorCode    `json:"code"`
	Message   string       `json:"message"`
	Details   string       `json:"details,omitempty"`
	Retryable bool         `json:"retryable"`
	Timestamp time.Time    `json:"timestamp"`
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("PipelineError[%s]: %s", e.Code, e.Message)
}

// NewNoCandidatesError reports an empty candidate set. Raised before any
// external chooser is invoked; not retryable.
func NewNoCandidatesError() *PipelineError {
	return &PipelineError{
		Stage:     status.StageTemplate,
		Code:      ErrCodeNoCandidates,
		Message:   "No candidate templates available",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateSelectionFailedError wraps a failure of the selection stage.
func NewTemplateSelectionFailedError(err error) *PipelineError {
	return &PipelineError{
		Stage:     status.StageTemplate,
		Code:      ErrCodeTemplateSelectionFailed,
		Message:   "Template selection failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateSelectionTimeoutError reports a selection stage that exceeded
// its bounded wait.
func NewTemplateSelectionTimeoutError(timeout time.Duration) *PipelineError {
	return &PipelineError{
		Stage:     status.StageTemplate,
		Code:      ErrCodeTemplateSelectionFailed,
		Message:   "Template selection failed",
		Details:   fmt.Sprintf("timed out after %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewContentGenerationFailedError wraps a failure of the content stage:
// external call errors, unparseable output, or missing required fields.
func NewContentGenerationFailedError(details string) *PipelineError {
	return &PipelineError{
		Stage:     status.StageContent,
		Code:      ErrCodeContentGenerationFailed,
		Message:   "Content generation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewContentGenerationTimeoutError reports a content stage that exceeded its
// bounded wait.
func NewContentGenerationTimeoutError(timeout time.Duration) *PipelineError {
	return &PipelineError{
		Stage:     status.StageContent,
		Code:      ErrCodeContentGenerationFailed,
		Message:   "Content generation failed",
		Details:   fmt.Sprintf("timed out after %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompilationFailedError wraps a failure of the compilation stage.
func NewCompilationFailedError(details string) *PipelineError {
	return &PipelineError{
		Stage:     status.StageCompilation,
		Code:      ErrCodeCompilationFailed,
		Message:   "Email compilation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// AsPipelineError unwraps err into a *PipelineError when possible.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// StageOf returns the failing stage of err, or empty string when err is not
// a pipeline error.
func StageOf(err error) status.Stage {
	if pe, ok := AsPipelineError(err); ok {
		return pe.Stage
	}
	return ""
}

// IsCode reports whether err is a pipeline error with the given code.
func IsCode(err error, code ErrorCode) bool {
	pe, ok := AsPipelineError(err)
	return ok && pe.Code == code
}
