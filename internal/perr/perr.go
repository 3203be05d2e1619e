// Package perr provides the structured error type used across probe's core.
//
// Every error the core returns carries one of a closed set of kinds so
// callers (the CLI, tests, other embedders) can branch on behavior —
// "should I rebuild?", "should I retry?", "what exit code?" — without
// string-matching messages.
package perr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error kinds the core can produce.
type Kind string

const (
	// IoError wraps a filesystem I/O failure (unreadable path, disk full).
	IoError Kind = "IoError"
	// IgnoreError indicates a malformed ignore-pattern file.
	IgnoreError Kind = "IgnoreError"
	// ParseError is non-fatal: the caller degrades to the fallback chunker.
	ParseError Kind = "ParseError"
	// IndexCorrupt is fatal: the caller must rebuild.
	IndexCorrupt Kind = "IndexCorrupt"
	// SchemaStale means the persisted schema/tokenizer header disagrees
	// with the engine's compiled-in values; update() auto-rebuilds, search()
	// surfaces it.
	SchemaStale Kind = "SchemaStale"
	// WriterBusy means another process holds the writer lock.
	WriterBusy Kind = "WriterBusy"
	// QueryInvalid is a user error: malformed query syntax.
	QueryInvalid Kind = "QueryInvalid"
	// ModelMissing means a reranker model's files aren't in the local cache.
	ModelMissing Kind = "ModelMissing"
	// ModelLoadError means the model files exist but failed to load.
	ModelLoadError Kind = "ModelLoadError"
	// Cancelled means the operation was cancelled via context.
	Cancelled Kind = "Cancelled"
)

// Error is probe's structured error type.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	Pos        int // byte/rune offset, used by QueryInvalid; -1 if not applicable
	cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is lets errors.Is(err, &Error{Kind: X}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a new Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Pos: -1}
}

// Newf creates a new Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: -1}
}

// Wrap wraps an existing error under the given kind.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause, Pos: -1}
}

// WithSuggestion attaches an actionable hint and returns the receiver for
// chaining.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithPos attaches a position (used by QueryInvalid) and returns the
// receiver for chaining.
func (e *Error) WithPos(pos int) *Error {
	e.Pos = pos
	return e
}

// KindOf extracts the Kind from err, if it (or something it wraps) is an
// *Error. Returns ("", false) otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ExitCode maps a Kind to the CLI exit code contract:
// 0 success, 1 user error, 2 internal error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := KindOf(err)
	if !ok {
		return 2
	}
	switch kind {
	case QueryInvalid, ModelMissing:
		return 1
	default:
		return 2
	}
}

// FormatForCLI renders an error the way the CLI prints it: message, then
// an optional hint, then the kind for reference.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Sprintf("Error: %s\n", err.Error())
	}
	out := fmt.Sprintf("Error: %s\n", e.Message)
	if e.Suggestion != "" {
		out += fmt.Sprintf("  Hint: %s\n", e.Suggestion)
	}
	if e.Kind == QueryInvalid && e.Pos >= 0 {
		out += fmt.Sprintf("  At position: %d\n", e.Pos)
	}
	out += fmt.Sprintf("  Kind: %s\n", e.Kind)
	return out
}
