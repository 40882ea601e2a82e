// Package apperr defines the error kinds surfaced by the analysis pipeline.
// Every failure leaving the pipeline carries one of these kinds so callers
// can route it to the right error slot without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindAnalysisTransport Kind = "analysis_transport_error"
	KindAnalysisFormat    Kind = "analysis_format_error"
	KindFeedbackTransport Kind = "feedback_transport_error"
)

// Sentinels for errors.Is
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrAnalysisTransport = &Error{Kind: KindAnalysisTransport}
	ErrAnalysisFormat    = &Error{Kind: KindAnalysisFormat}
	ErrFeedbackTransport = &Error{Kind: KindFeedbackTransport}
)

// Error is a classified pipeline error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation rejects input before any request is made
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// AnalysisTransport wraps a failed or non-success classify call
func AnalysisTransport(message string, err error) *Error {
	return &Error{Kind: KindAnalysisTransport, Message: message, Err: err}
}

// AnalysisFormat wraps a classifier response that could not be trusted
func AnalysisFormat(message string, err error) *Error {
	return &Error{Kind: KindAnalysisFormat, Message: message, Err: err}
}

// FeedbackTransport wraps a failed feedback delivery
func FeedbackTransport(message string, err error) *Error {
	return &Error{Kind: KindFeedbackTransport, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" when err is not classified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the text shown to a reader for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindValidation:
		var e *Error
		errors.As(err, &e)
		return e.Message
	case KindAnalysisTransport:
		return "Analysis failed. Please try again."
	case KindAnalysisFormat:
		return "The classifier returned an unexpected response. Please try again."
	case KindFeedbackTransport:
		return "Failed to submit feedback. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
