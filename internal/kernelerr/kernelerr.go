// Package kernelerr defines the structured error kinds shared across the
// orchestration kernel (spec §7). Every component returns these instead of
// ad-hoc fmt.Errorf chains so that C4's retry policy and the driver's
// degraded-response path can switch on Kind rather than message text.
package kernelerr

import (
	"fmt"
	"strings"
)

// Kind classifies a kernel error for programmatic handling.
type Kind string

const (
	Validation        Kind = "validation_error"
	InsufficientData  Kind = "insufficient_data"
	SourceUnavailable Kind = "source_unavailable"
	Timeout           Kind = "timeout"
	Network           Kind = "network_error"
	DependencyFailed  Kind = "dependency_failed"
	WorkerLost        Kind = "worker_lost"
	QualityDegraded   Kind = "quality_degradation"
	ExportUnsupported Kind = "export_unsupported"
)

// Error is the structured error value carried by all kernel components.
type Error struct {
	Kind      Kind
	Message   string
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a kernel error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Retryable: isRetryableKind(kind)}
}

// Wrap builds a kernel error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Retryable: isRetryableKind(kind)}
}

func isRetryableKind(kind Kind) bool {
	switch kind {
	case Timeout, Network:
		return true
	default:
		return false
	}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, and
// returns false otherwise. It does not inspect the message text; the
// legacy "timeout"/"network" substring fallback lives in IsRetryable.
func KindOf(err error) (Kind, bool) {
	var kerr *Error
	if asError(err, &kerr) {
		return kerr.Kind, true
	}

	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if kerr, ok := err.(*Error); ok {
			*target = kerr

			return true
		}

		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}

		err = unwrapper.Unwrap()
	}

	return false
}

// IsRetryable reports whether err should be retried by the collaboration
// manager's retry policy. Typed kernel errors are checked by Kind; plain
// errors fall back to the legacy case-insensitive substring match the
// source system used, since external collaborators are not required to
// return typed errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if kind, ok := KindOf(err); ok {
		return isRetryableKind(kind)
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "timeout") || strings.Contains(msg, "network")
}
