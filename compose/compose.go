package compose

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/wippyai/wasm-build/errors"
	"github.com/wippyai/wasm-build/resolve"
	"github.com/wippyai/wasm-build/target"
	"github.com/wippyai/wasm-build/wasm"
	"github.com/wippyai/wasm-build/wit"
)

// Dependency is a component-level dependency: a package identity and the
// path of a previously built component binary satisfying it.
type Dependency struct {
	ID   wit.Ident
	Path string
}

// Instance is one dependency admitted into the composition plan.
type Instance struct {
	ID     wit.Ident
	Path   string
	Binary []byte
	World  *target.World
}

// Plan is an ordered composition: instances are instantiated in slice
// order, all before the root component, so the root's imports resolve
// against already-present exports.
type Plan struct {
	Instances []Instance
}

// Resolve checks every declared component dependency against the interfaces
// the resolved world imports from it and produces the composition plan. A
// dependency missing a required interface or function fails with an
// incompatibility error naming both, and no partial plan is returned.
func Resolve(rw *resolve.ResolvedWorld, deps []Dependency) (*Plan, error) {
	sorted := make([]Dependency, len(deps))
	copy(sorted, deps)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].ID.Base() < sorted[b].ID.Base()
	})

	plan := &Plan{}
	for _, dep := range sorted {
		inst, err := loadDependency(dep)
		if err != nil {
			return nil, err
		}
		if err := checkCompatible(rw, dep, inst.World); err != nil {
			return nil, err
		}
		plan.Instances = append(plan.Instances, *inst)
	}
	return plan, nil
}

func loadDependency(dep Dependency) (*Instance, error) {
	data, err := os.ReadFile(dep.Path)
	if err != nil {
		return nil, &errors.Error{
			Phase:    errors.PhaseCompose,
			Kind:     errors.KindUnresolvedDependency,
			Identity: dep.ID.String(),
			Path:     dep.Path,
			Cause:    err,
		}
	}
	if !wasm.IsComponent(data) {
		return nil, &errors.Error{
			Phase:    errors.PhaseCompose,
			Kind:     errors.KindValidation,
			Identity: dep.ID.String(),
			Path:     dep.Path,
			Detail:   "not a component binary",
		}
	}
	section, err := wasm.ComponentCustom(data, target.SectionName)
	if err != nil {
		return nil, &errors.Error{
			Phase:    errors.PhaseCompose,
			Kind:     errors.KindValidation,
			Identity: dep.ID.String(),
			Path:     dep.Path,
			Cause:    err,
		}
	}
	if section == nil {
		return nil, &errors.Error{
			Phase:    errors.PhaseCompose,
			Kind:     errors.KindValidation,
			Identity: dep.ID.String(),
			Path:     dep.Path,
			Detail:   "no embedded target section",
		}
	}
	et, err := target.DecodeBytesHeader(section)
	if err != nil {
		return nil, &errors.Error{
			Phase:    errors.PhaseCompose,
			Kind:     errors.KindValidation,
			Identity: dep.ID.String(),
			Path:     dep.Path,
			Cause:    err,
		}
	}
	world, err := target.DecodeWorld(et.World)
	if err != nil {
		return nil, &errors.Error{
			Phase:    errors.PhaseCompose,
			Kind:     errors.KindValidation,
			Identity: dep.ID.String(),
			Path:     dep.Path,
			Cause:    err,
		}
	}
	return &Instance{ID: dep.ID, Path: dep.Path, Binary: data, World: world}, nil
}

// checkCompatible requires the dependency's exports to be a superset of
// every interface the world imports from that package.
func checkCompatible(rw *resolve.ResolvedWorld, dep Dependency, world *target.World) error {
	base := dep.ID.Base()
	for _, imp := range rw.Imports {
		if imp.Package.Base() != base || imp.Interface == nil {
			continue
		}
		name := interfaceName(imp.Key)
		export := world.Export(name)
		if export == nil {
			export = world.Export(imp.Key)
		}
		if export == nil {
			return errors.Incompatible(dep.ID.String(), name, "interface not exported")
		}

		provided := make(map[string]bool, len(export.Funcs))
		for _, sig := range export.Funcs {
			provided[sig] = true
		}
		for _, f := range imp.Interface.Funcs {
			if !provided[f.Signature()] {
				return errors.Incompatible(dep.ID.String(), name,
					fmt.Sprintf("missing function `%s`", f.Name))
			}
		}
	}
	return nil
}

func interfaceName(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}
