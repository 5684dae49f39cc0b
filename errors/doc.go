// Package errors provides structured error types for the wasm-build library.
//
// Errors are categorized by Phase (which build stage failed) and Kind (error
// category). The Error type carries the context needed to act on a failure:
// the package identity, the file path, and the interface name involved.
//
// Use the convenience constructors for the common kinds:
//
//	err := errors.Unresolved("foo:bar", "wit/deps/foo-bar")
//	err := errors.Incompatible("my:comp1", "types", "missing function `rand`")
//
// All errors implement the standard error interface and support errors.Is/As:
// two Errors match when their Phase and Kind agree, so callers can test for a
// category without string comparison.
package errors
