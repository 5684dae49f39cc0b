package component

import (
	"os"

	"github.com/wippyai/wasm-build/compose"
	"github.com/wippyai/wasm-build/errors"
	"github.com/wippyai/wasm-build/resolve"
	"github.com/wippyai/wasm-build/target"
	"github.com/wippyai/wasm-build/wasm"
)

// Input carries everything Encode consumes. Core and Target are required;
// the rest is optional.
type Input struct {
	// Core is the compiled core module.
	Core []byte

	// World is the resolved world the core module was compiled against.
	World *resolve.ResolvedWorld

	// Target is the encoded target embedded into the component for
	// downstream consumers.
	Target *target.EncodedTarget

	// Adapter is an optional legacy-ABI bridge module, already loaded via
	// LoadAdapter.
	Adapter []byte

	// Plan lists previously built dependency components to compose in,
	// ordered before the root.
	Plan *compose.Plan

	// Producers is stamped with this tool's entry before encoding.
	Producers Producers
}

// LoadAdapter reads and verifies an adapter module from disk. Failures are
// reported before any component bytes are produced.
func LoadAdapter(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AdapterRead(path, err)
	}
	if !wasm.IsCoreModule(data) {
		return nil, errors.AdapterRead(path, nil)
	}
	return data, nil
}

// Encode assembles the component binary. It fails with an encoding error
// when the core module does not export everything the world requires, and
// never writes to disk.
func Encode(in Input) ([]byte, error) {
	if !wasm.IsCoreModule(in.Core) {
		return nil, errors.Encoding("input is not a core module")
	}
	core, err := wasm.ParseModule(in.Core)
	if err != nil {
		return nil, errors.Encoding("malformed core module: %v", err)
	}
	if err := checkRequiredExports(core, in.World); err != nil {
		return nil, err
	}

	w := wasm.NewWriter()
	w.Raw(wasm.ComponentHeader())

	// Dependencies first so their exports are in scope when the root
	// instance is wired.
	if in.Plan != nil {
		for _, inst := range in.Plan.Instances {
			w.Raw(wasm.Section(wasm.ComponentSectionComponent, inst.Binary))
		}
	}

	mainIndex := uint64(0)
	if len(in.Adapter) > 0 {
		w.Raw(wasm.Section(wasm.ComponentSectionCoreModule, in.Adapter))
		mainIndex = 1
	}
	w.Raw(wasm.Section(wasm.ComponentSectionCoreModule, in.Core))
	w.Raw(coreInstanceSection(mainIndex))

	producers := in.Producers
	producers.Stamp()
	w.Raw(wasm.CustomSection(ProducersSection, producers.Encode()))
	w.Raw(wasm.CustomSection(target.SectionName, in.Target.Bytes()))

	return w.Bytes(), nil
}

// checkRequiredExports verifies every function the world exports has a
// corresponding core module export. Interface functions use the mangled
// `namespace:package/interface#function` form; world-level functions use
// their bare name.
func checkRequiredExports(core *wasm.Module, rw *resolve.ResolvedWorld) error {
	for _, it := range rw.Exports {
		switch {
		case it.Func != nil:
			if !core.HasFuncExport(it.Key) {
				return errors.Encoding("world-required export `%s` missing from core module", it.Key)
			}
		case it.Interface != nil:
			for _, f := range it.Interface.Funcs {
				name := it.Key + "#" + f.Name
				if !core.HasFuncExport(name) {
					return errors.Encoding("world-required export `%s` missing from core module", name)
				}
			}
		}
	}
	return nil
}

// coreInstanceSection instantiates the main module with no arguments.
func coreInstanceSection(moduleIndex uint64) []byte {
	w := wasm.NewWriter()
	w.Uint(1)           // one instance
	w.Byte(0x00)        // instantiate
	w.Uint(moduleIndex) // module index
	w.Uint(0)           // no instantiation args
	return wasm.Section(wasm.ComponentSectionCoreInst, w.Bytes())
}
