// Package ixerr provides structured error handling for ixchel.
//
// Errors carry one of nine kinds (spec taxonomy in order): not-found,
// not-initialized/already-initialized, load, database, io,
// invalid-relationship, embedding, ambiguous-id, cycle-detected. Each kind
// maps to one of the exit codes the CLI boundary preserves.
package ixerr

// Kind classifies an error into the engine's error taxonomy.
type Kind string

const (
	// KindNotFound is an entity or neighbor lookup miss.
	KindNotFound Kind = "NOT_FOUND"
	// KindNotInitialized is index-directory state: missing or already present.
	KindNotInitialized Kind = "NOT_INITIALIZED"
	// KindLoad is an IO or YAML-parse failure on a single source file.
	KindLoad Kind = "LOAD"
	// KindDatabase is a storage write failure, corruption, or dimension mismatch.
	KindDatabase Kind = "DATABASE"
	// KindIO is a filesystem error outside the loader's per-file recovery path.
	KindIO Kind = "IO"
	// KindInvalidRelationship is a missing edge endpoint at creation time.
	KindInvalidRelationship Kind = "INVALID_RELATIONSHIP"
	// KindEmbedding is a model init or inference failure.
	KindEmbedding Kind = "EMBEDDING"
	// KindAmbiguousID is a partial identifier matching more than one entity.
	KindAmbiguousID Kind = "AMBIGUOUS_ID"
	// KindCycleDetected is a would-be cycle in an acyclic relation.
	KindCycleDetected Kind = "CYCLE_DETECTED"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates an unrecoverable error; the command aborts.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation; processing continues.
	SeverityWarning Severity = "WARNING"
)

// ExitCode maps a Kind to the CLI exit code ranges fixed by the external
// interface contract. Front-ends must preserve these exactly.
func ExitCode(k Kind) int {
	switch k {
	case KindNotFound:
		return 3
	case KindNotInitialized:
		return 2
	case KindLoad:
		return 3
	case KindDatabase:
		return 4
	case KindIO:
		return 5
	case KindInvalidRelationship:
		return 6
	case KindEmbedding:
		return 7
	case KindAmbiguousID:
		return 1
	case KindCycleDetected:
		return 6
	default:
		return 1
	}
}

// severityForKind assigns a default severity for a kind, overridable via
// WithSeverity on individual errors.
func severityForKind(k Kind) Severity {
	switch k {
	case KindDatabase:
		return SeverityFatal
	case KindLoad:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// retryableKind reports whether errors of this kind are retryable by default.
// Embedding errors are retried by the circuit breaker wrapping inference
// calls; everything else is not, since retrying a not-found or a cycle does
// not change the outcome.
func retryableKind(k Kind) bool {
	return k == KindEmbedding
}
