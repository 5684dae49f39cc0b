// Package resolve turns a WIT package's declared dependencies into a
// consistent, reproducible graph.
//
// Dependencies come in three forms: local paths, nested paths inside another
// package's vendored dependency tree, and registry references carrying a
// version range. Path references are self-contained: each loaded package
// supplies its own transitive subtree under its deps directory. Registry
// references consult the lock file before the registry is queried, so a
// pinned build never touches the network for an already-resolved version.
//
// The resolver keeps packages in an arena keyed by identity
// (namespace:package[@version]) rather than by ownership links; two
// references to the same identity share one resolved instance, and a second
// reference with differing content is a version conflict. Cycles are
// detected during traversal and reported with the offending chain.
//
// The final package ordering is topological with identity-sorted
// tie-breaking, making downstream fingerprints independent of declaration
// order.
package resolve
