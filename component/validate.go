package component

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/wasm-build/errors"
	"github.com/wippyai/wasm-build/wasm"
)

// Validate checks that a finished binary is a structurally sound component:
// the preamble and section framing are intact, every embedded core module
// compiles, and nested dependency components pass the same checks.
func Validate(ctx context.Context, binary []byte) error {
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer runtime.Close(ctx)
	return validate(ctx, runtime, binary)
}

func validate(ctx context.Context, runtime wazero.Runtime, binary []byte) error {
	sections, err := wasm.ParseComponentSections(binary)
	if err != nil {
		return errors.Validation(err)
	}
	for _, s := range sections {
		switch s.ID {
		case wasm.ComponentSectionCoreModule:
			compiled, err := runtime.CompileModule(ctx, s.Payload)
			if err != nil {
				return errors.Validation(fmt.Errorf("embedded core module: %w", err))
			}
			compiled.Close(ctx)
		case wasm.ComponentSectionComponent:
			if err := validate(ctx, runtime, s.Payload); err != nil {
				return err
			}
		}
	}
	return nil
}
