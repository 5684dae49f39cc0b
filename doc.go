// Package wasmbuild turns a compiled core WebAssembly module and a WIT
// world description into a validated component binary.
//
// The library sits between an external compiler and the final artifact. It
// resolves the WIT package graph for a project, embeds an encoded
// representation of the resolved target world so binding generation can run
// without re-invoking interface tooling, detects staleness of that encoding
// across incremental builds, and assembles the compiled core module into a
// component (adapter injection, producer metadata, validation).
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmbuild/       Root package with tool identity constants
//	├── build/       Build driver orchestrating resolve → compile → encode
//	├── wit/         WIT text parsing into package descriptions
//	├── resolve/     Dependency resolution, lock file, registry client
//	├── target/      Target world encoding and staleness cache
//	├── compose/     Component-level dependency compatibility and planning
//	├── component/   Component binary encoding and validation
//	├── wasm/        Core WASM binary manipulation primitives
//	└── errors/      Structured error types for diagnostics
//
// # Quick Start
//
// Drive a full build of a member directory:
//
//	driver := build.NewDriver(build.Config{
//	    Dir: ".",
//	    Compiler: &build.ExecCompiler{
//	        Command: "cargo",
//	        Args:    []string{"build"},
//	        Output:  "target/wasm32-wasip1/debug/app.wasm",
//	    },
//	})
//	res, err := driver.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Artifact)
//
// A single build invocation is single-threaded and deterministic: re-running
// with unchanged inputs reproduces byte-identical artifacts and skips target
// re-encoding.
package wasmbuild
