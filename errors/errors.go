package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which build stage the error occurred in
type Phase string

const (
	PhaseResolve  Phase = "resolve"  // WIT dependency resolution
	PhaseTarget   Phase = "target"   // target world encoding
	PhaseCompose  Phase = "compose"  // component dependency planning
	PhaseCompile  Phase = "compile"  // external compiler invocation
	PhaseEncode   Phase = "encode"   // component assembly
	PhaseValidate Phase = "validate" // final binary validation
)

// Kind categorizes the error
type Kind string

const (
	KindUnresolvedDependency  Kind = "unresolved_dependency"
	KindVersionConflict       Kind = "version_conflict"
	KindCyclicDependency      Kind = "cyclic_dependency"
	KindIncompatibleInterface Kind = "incompatible_interface"
	KindAdapterRead           Kind = "adapter_read"
	KindEncoding              Kind = "encoding"
	KindValidation            Kind = "validation"
	KindRegistryUnavailable   Kind = "registry_unavailable"
	KindCompile               Kind = "compile"
	KindManifest              Kind = "manifest"
	KindParse                 Kind = "parse"
)

// Error is the structured error type used throughout the build pipeline
type Error struct {
	Cause     error
	Phase     Phase
	Kind      Kind
	Identity  string // package identity (namespace:name[@version])
	Path      string // file or directory involved
	Interface string // interface name, for compatibility failures
	Detail    string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Identity != "" {
		b.WriteString(": package `")
		b.WriteString(e.Identity)
		b.WriteByte('`')
	}

	if e.Interface != "" {
		b.WriteString(", interface `")
		b.WriteString(e.Interface)
		b.WriteByte('`')
	}

	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by phase and kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Match returns a sentinel suitable for errors.Is tests against a category.
func Match(phase Phase, kind Kind) *Error {
	return &Error{Phase: phase, Kind: kind}
}

// Convenience constructors for the build pipeline's error kinds

// Unresolved creates an unresolved dependency error
func Unresolved(identity, path string) *Error {
	return &Error{
		Phase:    PhaseResolve,
		Kind:     KindUnresolvedDependency,
		Identity: identity,
		Path:     path,
	}
}

// Conflict creates a version conflict error
func Conflict(identity, detail string) *Error {
	return &Error{
		Phase:    PhaseResolve,
		Kind:     KindVersionConflict,
		Identity: identity,
		Detail:   detail,
	}
}

// Cycle creates a cyclic dependency error naming the offending chain
func Cycle(chain []string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindCyclicDependency,
		Detail: strings.Join(chain, " -> "),
	}
}

// RegistryUnavailable creates a registry availability error
func RegistryUnavailable(identity string, cause error) *Error {
	return &Error{
		Phase:    PhaseResolve,
		Kind:     KindRegistryUnavailable,
		Identity: identity,
		Cause:    cause,
	}
}

// Incompatible creates an interface compatibility error
func Incompatible(identity, iface, detail string) *Error {
	return &Error{
		Phase:     PhaseCompose,
		Kind:      KindIncompatibleInterface,
		Identity:  identity,
		Interface: iface,
		Detail:    detail,
	}
}

// AdapterRead creates an adapter read error. The message prefix is part of
// the diagnostic surface and must not change.
func AdapterRead(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindAdapterRead,
		Path:   path,
		Detail: "failed to read module adapter",
		Cause:  cause,
	}
}

// Encoding creates a component encoding error
func Encoding(detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindEncoding,
		Detail: detail,
	}
}

// Validation creates a component validation error
func Validation(cause error) *Error {
	return &Error{
		Phase: PhaseValidate,
		Kind:  KindValidation,
		Cause: cause,
	}
}

// Compile wraps external compiler output verbatim
func Compile(output string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindCompile,
		Detail: output,
	}
}

// Manifest creates a manifest extraction error
func Manifest(path string, cause error) *Error {
	return &Error{
		Phase: PhaseResolve,
		Kind:  KindManifest,
		Path:  path,
		Cause: cause,
	}
}

// Parse creates a WIT parse error
func Parse(path string, cause error) *Error {
	return &Error{
		Phase: PhaseResolve,
		Kind:  KindParse,
		Path:  path,
		Cause: cause,
	}
}
