package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies a pipeline error. The string value doubles as the
// per-source failure reason reported by the orchestrator.
type ErrorType string

const (
	// ErrorTypeFetch represents page fetch/navigation errors
	ErrorTypeFetch ErrorType = "fetch-error"
	// ErrorTypeRenderTimeout represents a wait condition that never materialized
	ErrorTypeRenderTimeout ErrorType = "render-timeout"
	// ErrorTypeMalformed represents an unparsable freeform extraction response
	ErrorTypeMalformed ErrorType = "malformed-response"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parse-error"
	// ErrorTypeStore represents catalog store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// SourceError is an error scoped to a single source's unit of work.
type SourceError struct {
	Type     ErrorType
	SourceID string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.SourceID, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.SourceID, e.Message)
}

// Unwrap returns the underlying error
func (e *SourceError) Unwrap() error {
	return e.Err
}

// New creates a new SourceError
func New(errType ErrorType, sourceID, message string, err error) *SourceError {
	return &SourceError{
		Type:     errType,
		SourceID: sourceID,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewFetch creates a new fetch error
func NewFetch(sourceID, message string, err error) *SourceError {
	return New(ErrorTypeFetch, sourceID, message, err)
}

// NewRenderTimeout creates a new render-timeout error
func NewRenderTimeout(sourceID, message string, err error) *SourceError {
	return New(ErrorTypeRenderTimeout, sourceID, message, err)
}

// NewMalformed creates a new malformed-response error
func NewMalformed(sourceID, message string, err error) *SourceError {
	return New(ErrorTypeMalformed, sourceID, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(sourceID, message string, err error) *SourceError {
	return New(ErrorTypeParsing, sourceID, message, err)
}

// NewStore creates a new store error
func NewStore(message string, err error) *SourceError {
	return New(ErrorTypeStore, "", message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *SourceError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// Reason maps an error to the short failure reason recorded per source.
// Typed errors report their type; bare deadline errors surface as render
// timeouts since the per-source deadline is the only cancellation mechanism.
func Reason(err error) string {
	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return string(srcErr.Type)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(ErrorTypeRenderTimeout)
	}
	return err.Error()
}
