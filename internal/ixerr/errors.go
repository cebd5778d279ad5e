package ixerr

import "fmt"

// Error is the structured error type threaded through the engine. It carries
// enough context for both CLI presentation and structured JSON output.
type Error struct {
	// Kind classifies the error per the taxonomy above.
	Kind Kind

	// Message is the human-readable error message.
	Message string

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs (e.g. the
	// candidate list for an ambiguous-id error, or the offending path for a
	// detected cycle).
	Details map[string]string

	// Cause is the underlying error that produced this one.
	Cause error

	// Retryable indicates whether the caller may retry the operation.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by kind, so errors.Is
// works against a zero-value *Error{Kind: K}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail adds a key-value detail to the error. Returns the error for
// chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error of the given kind. Severity and retryability are
// derived from the kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Severity:  severityForKind(kind),
		Cause:     cause,
		Retryable: retryableKind(kind),
	}
}

// Wrap creates an Error from an existing error, using its message as-is.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return New(kind, err.Error(), err)
}

// NotFound builds a not-found error for an entity or neighbor lookup miss.
func NotFound(message string, cause error) *Error {
	return New(KindNotFound, message, cause)
}

// Ambiguous builds an ambiguous-id error carrying the candidate list.
func Ambiguous(fragment string, candidates []string) *Error {
	e := New(KindAmbiguousID, fmt.Sprintf("ambiguous id %q matches %d entities", fragment, len(candidates)), nil)
	for i, c := range candidates {
		e.WithDetail(fmt.Sprintf("candidate_%d", i), c)
	}
	return e
}

// Cycle builds a cycle-detected error carrying the offending path.
func Cycle(label string, path []string) *Error {
	e := New(KindCycleDetected, fmt.Sprintf("relationship %q would close a cycle", label), nil)
	for i, p := range path {
		e.WithDetail(fmt.Sprintf("path_%d", i), p)
	}
	return e
}

// ErrBusy builds a database-kind error for a writer lock that is already
// held by another sync, overriding the kind's default non-retryable
// severity since the caller may simply try again once the other sync
// finishes.
func ErrBusy(message string) *Error {
	e := New(KindDatabase, message, nil)
	e.Retryable = true
	return e
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// IsFatal reports whether err is a fatal-severity *Error.
func IsFatal(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetKind extracts the Kind from err, or "" if err is not an *Error.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
