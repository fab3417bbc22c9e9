package config

import (
	"errors"
	"fmt"

	"github.com/gunnarbeutner/icinga2/pkg/objects"
)

// ErrorKind classifies lifecycle errors.
type ErrorKind string

const (
	// ErrDuplicateDefinition is returned when a second non-abstract
	// item with the same (type, name) is registered.
	ErrDuplicateDefinition ErrorKind = "duplicate_definition"

	// ErrUnknownType is returned when an item's type is missing or not
	// a config object type.
	ErrUnknownType ErrorKind = "unknown_type"

	// ErrEmptyName is returned when a type with a name composer is
	// given an empty short name.
	ErrEmptyName ErrorKind = "empty_name"

	// ErrNameComposerFailure is returned when the composer produced an
	// empty canonical name.
	ErrNameComposerFailure ErrorKind = "name_composer_failure"

	// ErrExpressionEvaluation covers failures while evaluating an
	// item's expression.
	ErrExpressionEvaluation ErrorKind = "expression_evaluation"

	// ErrValidation covers object validation failures.
	ErrValidation ErrorKind = "validation"

	// ErrConfigLoaded covers failures of the OnConfigLoaded hook.
	ErrConfigLoaded ErrorKind = "on_config_loaded"

	// ErrAllConfigLoaded covers failures of the OnAllConfigLoaded hook.
	ErrAllConfigLoaded ErrorKind = "on_all_config_loaded"

	// ErrActivation covers failures during PreActivate or Activate.
	ErrActivation ErrorKind = "activation"

	// ErrCallbackFailedToRecreate is returned when a reload callback
	// did not produce a replacement object.
	ErrCallbackFailedToRecreate ErrorKind = "callback_failed_to_recreate"

	// ErrLoadDependencyCycle is returned when the declared load
	// dependencies contain a cycle.
	ErrLoadDependencyCycle ErrorKind = "load_dependency_cycle"
)

// Error is a classified lifecycle error with optional source location.
type Error struct {
	// Kind is the error classification.
	Kind ErrorKind

	// Message is the human-readable error message.
	Message string

	// DebugInfo is the declaration site the error refers to, when
	// known.
	DebugInfo objects.DebugInfo

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if !e.DebugInfo.IsEmpty() {
		msg += " (" + e.DebugInfo.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, message string, di objects.DebugInfo) *Error {
	return &Error{Kind: kind, Message: message, DebugInfo: di}
}

// WrapError creates an error of the given kind around an underlying
// error.
func WrapError(kind ErrorKind, message string, di objects.DebugInfo, err error) *Error {
	return &Error{Kind: kind, Message: message, DebugInfo: di, Err: err}
}

// IsKind reports whether err is a lifecycle error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
