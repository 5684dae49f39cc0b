// Package wit parses WIT (WebAssembly Interface Types) documents on disk
// into an in-memory package description.
//
// A package is loaded from a directory of .wit files or a single .wit file:
//
//	pkg, err := wit.LoadPackage("wit")
//	pkg, err := wit.LoadPackage("wit/deps/bar-baz/qux.wit")
//
// The loader is a leaf: it records foreign package references (use
// statements and world items naming another namespace) without resolving
// them. Resolution across packages is the resolve package's job.
//
// The supported grammar is the subset the build pipeline consumes: package
// declarations, interfaces with functions, type aliases, records, flags,
// enums, variants and resources, and worlds with imported/exported
// interfaces, inline interfaces and freestanding functions.
package wit
