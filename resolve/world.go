package resolve

import (
	"fmt"
	"sort"

	"github.com/wippyai/wasm-build/errors"
	"github.com/wippyai/wasm-build/wit"
)

// Item is one merged import or export of a resolved world. Exactly one of
// Interface and Func is set.
type Item struct {
	Key       string // stable identity within the world
	Package   wit.Ident
	Interface *wit.Interface
	Func      *wit.Function
}

// ResolvedWorld is the output of dependency resolution: the selected world,
// its merged transitive imports and exports, and the contributing packages
// in topological, identity-sorted order with the root last.
//
// Invariants: the package list is acyclic and no two entries share an
// identity.
type ResolvedWorld struct {
	Name     string
	World    *wit.World
	Root     *ResolvedPackage
	Packages []*ResolvedPackage
	Imports  []Item
	Exports  []Item

	// RegistryDeps counts registry-resolved references; a lock artifact
	// exists iff it is positive.
	RegistryDeps int
}

// Package returns the resolved package with the given base identity, or nil.
func (rw *ResolvedWorld) Package(base string) *ResolvedPackage {
	for _, rp := range rw.Packages {
		if rp.ID.Base() == base {
			return rp
		}
	}
	return nil
}

// Export returns the exported item with the given key, or nil.
func (rw *ResolvedWorld) Export(key string) *Item {
	for i := range rw.Exports {
		if rw.Exports[i].Key == key {
			return &rw.Exports[i]
		}
	}
	return nil
}

// SourceFiles returns every file contributing to the world, in package
// order. Registry packages contribute their fetched content under a
// synthetic registry: path.
func (rw *ResolvedWorld) SourceFiles() []wit.SourceFile {
	var files []wit.SourceFile
	for _, rp := range rw.Packages {
		files = append(files, rp.Pkg.Files...)
	}
	return files
}

// mergeItems resolves the world's declared items against the arena and adds
// the implicit imports its exported interfaces pull in through use
// statements.
func (rw *ResolvedWorld) mergeItems() error {
	var err error
	rw.Imports, err = rw.resolveItems(rw.World.Imports)
	if err != nil {
		return err
	}
	rw.Exports, err = rw.resolveItems(rw.World.Exports)
	if err != nil {
		return err
	}

	present := make(map[string]bool, len(rw.Imports)+len(rw.Exports))
	for _, it := range rw.Imports {
		present[it.Key] = true
	}
	for _, it := range rw.Exports {
		present[it.Key] = true
	}

	// Walk uses transitively: an exported interface's dependencies become
	// imports of the world.
	queue := make([]Item, 0, len(rw.Exports)+len(rw.Imports))
	queue = append(queue, rw.Exports...)
	queue = append(queue, rw.Imports...)

	var implicit []Item
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if it.Interface == nil {
			continue
		}
		for _, use := range it.Interface.Uses {
			if use.Package.IsZero() {
				continue
			}
			key := use.Package.Base() + "/" + use.Interface
			if present[key] {
				continue
			}
			dep, err := rw.lookupInterface(use.Package, use.Interface)
			if err != nil {
				return err
			}
			item := Item{Key: key, Package: use.Package, Interface: dep}
			present[key] = true
			implicit = append(implicit, item)
			queue = append(queue, item)
		}
	}

	sort.Slice(implicit, func(a, b int) bool { return implicit[a].Key < implicit[b].Key })
	rw.Imports = append(rw.Imports, implicit...)
	return nil
}

func (rw *ResolvedWorld) resolveItems(items []wit.WorldItem) ([]Item, error) {
	var out []Item
	for _, it := range items {
		switch it.Kind {
		case wit.ItemFunc:
			out = append(out, Item{Key: it.Name, Func: it.Func})
		case wit.ItemInlineInterface:
			out = append(out, Item{Key: it.Name, Interface: it.Inline})
		case wit.ItemInterfaceRef:
			if it.Package.IsZero() {
				iface := rw.Root.Pkg.Interface(it.Name)
				if iface == nil {
					return nil, &errors.Error{
						Phase:    errors.PhaseResolve,
						Kind:     errors.KindUnresolvedDependency,
						Identity: rw.Root.ID.String(),
						Detail:   fmt.Sprintf("interface %q not declared", it.Name),
					}
				}
				out = append(out, Item{Key: it.Name, Interface: iface})
				continue
			}
			iface, err := rw.lookupInterface(it.Package, it.Name)
			if err != nil {
				return nil, err
			}
			out = append(out, Item{Key: it.Key(), Package: it.Package, Interface: iface})
		}
	}
	return out, nil
}

func (rw *ResolvedWorld) lookupInterface(pkg wit.Ident, name string) (*wit.Interface, error) {
	rp := rw.Package(pkg.Base())
	if rp == nil {
		return nil, errors.Unresolved(pkg.Base(), "")
	}
	iface := rp.Pkg.Interface(name)
	if iface == nil {
		return nil, &errors.Error{
			Phase:    errors.PhaseResolve,
			Kind:     errors.KindUnresolvedDependency,
			Identity: pkg.Base(),
			Detail:   fmt.Sprintf("interface %q not declared", name),
		}
	}
	return iface, nil
}
