// Package build orchestrates a full component build: dependency
// resolution, target encoding, external compilation, component assembly,
// and validation.
//
// The driver is a linear state machine. Every state except Compiling is
// in-process and synchronous; Compiling invokes the external compiler and
// carries all the latency. Any state may fail, in which case the first
// error is surfaced verbatim and a previously valid artifact is left
// untouched: the final component is written to a temporary file and
// renamed into place only after validation passes.
//
// Workspace builds run members concurrently. Each member owns its own
// manifest, lock file, encoded target, and output artifact, so no
// coordination is needed between them.
package build
