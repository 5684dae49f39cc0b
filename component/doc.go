// Package component assembles a compiled core module into a component
// binary.
//
// Encoding is a pure function over its inputs: the core module bytes, the
// encoded target world, an optional adapter module, the composition plan,
// and producer metadata. It performs no disk writes of its own; the build
// driver owns artifact placement. Given identical inputs the output is
// byte-identical, so no host-derived values such as timestamps enter the
// binary.
//
// The resulting layout is: composed dependency components, the adapter
// module when present, the main core module, a core instance, and the
// custom sections (producers, encoded target) last.
package component
