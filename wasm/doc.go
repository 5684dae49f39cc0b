// Package wasm provides the low-level WebAssembly binary primitives the
// build pipeline needs: LEB128 reading and writing, section framing, custom
// section handling, and a light structural parse of core modules.
//
// Unlike a full decoder, ParseModule only materializes what component
// assembly cares about (exports and custom sections); all other sections are
// length-checked and skipped. Section and CustomSection frame payloads for
// both core modules and components, which share the same framing.
//
// This package has no opinion about the component model; see the component
// package for component-level encoding.
package wasm
