// Package exception provides the error type returned across the process tracker.
// Every failure carries a Kind so callers can branch with errors.Is instead of
// matching on message text.
package exception

import (
	"errors"
	"fmt"
)

// Kind classifies a TrackerError. A Kind is itself an error so it can be used
// as the target of errors.Is.
type Kind string

// Error implements the error interface.
func (k Kind) Error() string {
	return string(k)
}

const (
	// ErrConfigMissing is returned when required configuration is absent at startup.
	ErrConfigMissing Kind = "ConfigMissing"
	// ErrInvalidStatus is returned when a status name is not present in its lookup.
	ErrInvalidStatus Kind = "InvalidStatus"
	// ErrInvalidDependencyKind is returned for a dependency kind other than parent or child.
	ErrInvalidDependencyKind Kind = "InvalidDependencyKind"
	// ErrInvalidDateType is returned for a date type other than low or high.
	ErrInvalidDateType Kind = "InvalidDateType"
	// ErrInvalidAuditType is returned for an audit type other than write or load.
	ErrInvalidAuditType Kind = "InvalidAuditType"
	// ErrInvalidPath is returned when an object-store URL matches no recognized shape.
	ErrInvalidPath Kind = "InvalidPath"
	// ErrDependenciesNotSatisfied is returned when parent extracts block a transition to loading.
	ErrDependenciesNotSatisfied Kind = "DependenciesNotSatisfied"
	// ErrParentNotReady is returned when a parent process is running or failed at run start.
	ErrParentNotReady Kind = "ParentNotReady"
	// ErrAlreadyRunning is returned when the previous run of a process is still running.
	ErrAlreadyRunning Kind = "AlreadyRunning"
	// ErrNotFound is returned by lookups made without auto-create that match nothing.
	ErrNotFound Kind = "NotFound"
	// ErrAmbiguous is returned by lookups that match more than one row.
	ErrAmbiguous Kind = "Ambiguous"
	// ErrProtected is returned when deleting or renaming a protected lookup row.
	ErrProtected Kind = "Protected"
	// ErrReferenced is returned when deleting a lookup row that other rows still point at.
	ErrReferenced Kind = "Referenced"
	// ErrInvalidName is returned when a name that addresses a row is empty.
	ErrInvalidName Kind = "InvalidName"
	// ErrUnknownFileType is returned when a filetype cannot be derived from a filename.
	ErrUnknownFileType Kind = "UnknownFileType"
	// ErrInvalidTopic is returned for an unrecognized lookup topic.
	ErrInvalidTopic Kind = "InvalidTopic"
	// ErrLocationUnset is returned by location discovery queries given neither name nor path.
	ErrLocationUnset Kind = "LocationUnset"
	// ErrRunFailed is returned after a recorded error has transitioned its run to failed.
	ErrRunFailed Kind = "RunFailed"
	// ErrStore wraps failures reported by the backing store.
	ErrStore Kind = "Store"
)

// TrackerError is the error type returned by the process tracker.
type TrackerError struct {
	// Kind is the taxonomy entry for this failure.
	Kind Kind
	// Module names the component that raised the error (e.g. "ProcessRun.Start").
	Module string
	// Message is a human readable description of the failure.
	Message string
	// OriginalErr is the wrapped cause, if any.
	OriginalErr error
}

// New creates a TrackerError without a cause.
func New(kind Kind, module, message string) *TrackerError {
	return &TrackerError{Kind: kind, Module: module, Message: message}
}

// Newf creates a TrackerError with a formatted message.
func Newf(kind Kind, module, format string, a ...interface{}) *TrackerError {
	return &TrackerError{Kind: kind, Module: module, Message: fmt.Sprintf(format, a...)}
}

// Wrap creates a TrackerError around an existing error.
func Wrap(kind Kind, module, message string, err error) *TrackerError {
	return &TrackerError{Kind: kind, Module: module, Message: message, OriginalErr: err}
}

// Error renders "[module] message: cause".
func (e *TrackerError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *TrackerError) Unwrap() error {
	return e.OriginalErr
}

// Is reports whether target is this error's Kind.
func (e *TrackerError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of the first TrackerError in err's chain.
func KindOf(err error) (Kind, bool) {
	var te *TrackerError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, kind)
}

// ExtractErrorMessage returns the Message of a TrackerError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var te *TrackerError
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}
