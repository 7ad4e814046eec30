package bpmn

import (
	"fmt"

	"github.com/cuemby/flowmesh/pkg/model"
)

// FailureKind tags one of the recoverable subscribeToEvents failure
// modes from spec §4.2 / §7.
type FailureKind string

const (
	KindExtractValueError   FailureKind = "EXTRACT_VALUE_ERROR"
	KindCorrelationKeyError FailureKind = "CORRELATION_KEY_ERROR"
	KindExpressionError     FailureKind = "EXPRESSION_ERROR"
	KindMessageNameError    FailureKind = "MESSAGE_NAME_ERROR"
)

// Failure is the recoverable-error half of subscribeToEvents' result:
// reported as a tagged value, never as an exception, so the caller can
// publish an incident record at ScopeKey without aborting the record's
// commit.
type Failure struct {
	Kind     FailureKind
	Message  string
	ScopeKey model.Key
}

// Result is the Ok | Failure sum type subscribeToEvents returns.
type Result struct {
	Failure *Failure
}

// Ok reports success.
func Ok() Result { return Result{} }

// Fail wraps a recoverable failure.
func Fail(kind FailureKind, message string, scopeKey model.Key) Result {
	return Result{Failure: &Failure{Kind: kind, Message: message, ScopeKey: scopeKey}}
}

// IsOk reports whether the result carries no failure.
func (r Result) IsOk() bool { return r.Failure == nil }

// ProcessingError mirrors the engine's BpmnProcessingException: a
// structural invariant violation — "must never happen" — rather than a
// recoverable business failure. The owning processor suspends on this,
// rolls back its in-memory record, and relies on the record being
// reprocessed.
type ProcessingError struct {
	Message string
}

func (e *ProcessingError) Error() string { return e.Message }

func newProcessingError(format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{Message: fmt.Sprintf(format, args...)}
}

func newNoWorkflowError(workflowKey model.Key) *ProcessingError {
	return newProcessingError("no workflow found for key %d", workflowKey)
}

func newNoTriggeredEventError(scopeKey model.Key) *ProcessingError {
	return newProcessingError("no event trigger pending at scope %d", scopeKey)
}

func newUnknownBoundaryEventError(elementId string) *ProcessingError {
	return newProcessingError("event trigger references boundary event %q not declared on this element", elementId)
}

func newElementInstanceNotFoundError(key model.Key) *ProcessingError {
	return newProcessingError("element instance %d not found", key)
}
