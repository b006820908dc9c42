package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure for the retry and failover
// policies. Adapters produce the kind from protocol-level signals (HTTP
// status codes, error codes), never from error message text.
type ErrorKind int

const (
	// KindFatal errors are not retried and propagate immediately.
	KindFatal ErrorKind = iota

	// KindTransient errors (timeout, connection reset, 5xx) are retried
	// with backoff.
	KindTransient

	// KindQuota errors (usage/rate limits) are retried like transient
	// ones, and after retry exhaustion trigger per-request failover to
	// the secondary provider.
	KindQuota
)

// String returns the kind's label for logs and error summaries.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindQuota:
		return "quota"
	default:
		return "fatal"
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind     ErrorKind
	Provider string
	Status   int
	Message  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: %s error (HTTP %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("provider %s: %s error: %s", e.Provider, e.Kind, e.Message)
}

// KindOf extracts the ErrorKind from an error chain. Unclassified errors
// are fatal: only failures a provider adapter explicitly marked as
// transient or quota are worth retrying.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindFatal
}

// Retryable reports whether the error should go through the retry policy.
func Retryable(err error) bool {
	k := KindOf(err)
	return k == KindTransient || k == KindQuota
}

// IsQuota reports whether the error is quota-classified, the signal that
// triggers per-request failover.
func IsQuota(err error) bool {
	return KindOf(err) == KindQuota
}
