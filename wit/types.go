package wit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	bawit "go.bytecodealliance.org/wit"
)

// Ident is a package identity: namespace, name and optional version.
type Ident struct {
	Namespace string
	Name      string
	Version   *semver.Version
}

// ParseIdent parses "namespace:name" or "namespace:name@x.y.z".
func ParseIdent(s string) (Ident, error) {
	var id Ident
	rest := s
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		v, err := semver.NewVersion(rest[at+1:])
		if err != nil {
			return id, fmt.Errorf("identity %q: invalid version: %w", s, err)
		}
		id.Version = v
		rest = rest[:at]
	}
	ns, name, ok := strings.Cut(rest, ":")
	if !ok || ns == "" || name == "" {
		return id, fmt.Errorf("identity %q: expected namespace:name", s)
	}
	id.Namespace = ns
	id.Name = name
	return id, nil
}

// String renders the identity as namespace:name[@version].
func (id Ident) String() string {
	if id.Version != nil {
		return id.Namespace + ":" + id.Name + "@" + id.Version.String()
	}
	return id.Namespace + ":" + id.Name
}

// Base renders the identity without its version.
func (id Ident) Base() string {
	return id.Namespace + ":" + id.Name
}

// IsZero reports whether the identity is unset.
func (id Ident) IsZero() bool {
	return id.Namespace == "" && id.Name == ""
}

// Compare orders identities by namespace, name, then version.
func (id Ident) Compare(other Ident) int {
	if c := strings.Compare(id.Namespace, other.Namespace); c != 0 {
		return c
	}
	if c := strings.Compare(id.Name, other.Name); c != 0 {
		return c
	}
	switch {
	case id.Version == nil && other.Version == nil:
		return 0
	case id.Version == nil:
		return -1
	case other.Version == nil:
		return 1
	default:
		return id.Version.Compare(other.Version)
	}
}

// Type is a parameter, result or alias type. Primitive types carry the
// component-model type from go.bytecodealliance.org/wit; everything else is
// a reference by name to a type in scope.
type Type struct {
	Name string
	Prim bawit.Type
}

// ParseTypeRef classifies a type token: primitives resolve through the
// component-model type table, anything else stays a named reference.
func ParseTypeRef(s string) Type {
	if t, err := bawit.ParseType(s); err == nil {
		return Type{Name: s, Prim: t}
	}
	return Type{Name: s}
}

// IsPrim reports whether the type is a component-model primitive.
func (t Type) IsPrim() bool {
	return t.Prim != nil
}

func (t Type) String() string {
	return t.Name
}

// Param is a named function parameter.
type Param struct {
	Name string
	Type Type
}

// FuncKind distinguishes resource-scoped functions from freestanding ones.
type FuncKind int

const (
	FuncFreestanding FuncKind = iota
	FuncConstructor
	FuncMethod
	FuncStatic
)

// Function is a WIT function signature.
type Function struct {
	Name   string
	Kind   FuncKind
	Params []Param
	Result *Type // nil when the function returns nothing
}

// Signature renders a canonical form of the signature used for
// compatibility comparison and fingerprinting.
func (f *Function) Signature() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteString(": func(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(p.Type.Name)
	}
	b.WriteByte(')')
	if f.Result != nil {
		b.WriteString(" -> ")
		b.WriteString(f.Result.Name)
	}
	return b.String()
}

// TypeDefKind enumerates the declared type forms.
type TypeDefKind int

const (
	TypeAlias TypeDefKind = iota
	TypeRecord
	TypeFlags
	TypeEnum
	TypeVariant
	TypeResource
)

// TypeDef is a type declaration inside an interface or world.
type TypeDef struct {
	Name   string
	Kind   TypeDefKind
	Alias  Type        // TypeAlias target
	Fields []Param     // TypeRecord fields, TypeVariant cases (type optional)
	Names  []string    // TypeFlags / TypeEnum member names
	Funcs  []*Function // TypeResource constructor/methods/statics
}

// Use imports names from another interface into scope. Package is zero for
// a same-package interface reference.
type Use struct {
	Package   Ident
	Interface string
	Names     []string
}

// Interface is a named set of functions and types.
type Interface struct {
	Name  string
	Uses  []Use
	Types []*TypeDef
	Funcs []*Function
}

// Func returns the named function, or nil.
func (i *Interface) Func(name string) *Function {
	for _, f := range i.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// WorldItemKind distinguishes the forms a world import/export can take.
type WorldItemKind int

const (
	ItemInterfaceRef WorldItemKind = iota // import foo:bar/baz or import local-iface
	ItemFunc                              // export hello: func() -> u32
	ItemInlineInterface                   // export baz: interface { ... }
)

// WorldItem is a single import or export of a world.
type WorldItem struct {
	Kind    WorldItemKind
	Package Ident  // ItemInterfaceRef with a foreign package; zero otherwise
	Name    string // interface name, function name, or inline interface name
	Func    *Function
	Inline  *Interface
}

// Key renders the item's stable identity inside its world.
func (it WorldItem) Key() string {
	if it.Kind == ItemInterfaceRef && !it.Package.IsZero() {
		return it.Package.Base() + "/" + it.Name
	}
	return it.Name
}

// World is a named set of imported and exported items.
type World struct {
	Name    string
	Uses    []Use
	Types   []*TypeDef
	Imports []WorldItem
	Exports []WorldItem
}

// Package is an in-memory WIT package description: identity, interfaces,
// worlds, and the unresolved foreign references they declare.
type Package struct {
	Name       Ident
	Interfaces []*Interface
	Worlds     []*World
	Files      []SourceFile
}

// SourceFile records one file contributing to a package, for fingerprinting.
type SourceFile struct {
	Path    string
	Content []byte
}

// Interface returns the named interface, or nil.
func (p *Package) Interface(name string) *Interface {
	for _, i := range p.Interfaces {
		if i.Name == name {
			return i
		}
	}
	return nil
}

// World returns the named world. When name is empty and the package declares
// exactly one world, that world is returned.
func (p *Package) World(name string) *World {
	if name == "" && len(p.Worlds) == 1 {
		return p.Worlds[0]
	}
	for _, w := range p.Worlds {
		if w.Name == name {
			return w
		}
	}
	return nil
}

// ForeignDeps returns the base identities of every foreign package this
// package references, sorted and deduplicated.
func (p *Package) ForeignDeps() []Ident {
	seen := make(map[string]Ident)

	record := func(id Ident) {
		if id.IsZero() || id.Base() == p.Name.Base() {
			return
		}
		seen[id.Base()] = Ident{Namespace: id.Namespace, Name: id.Name}
	}
	fromUses := func(uses []Use) {
		for _, u := range uses {
			record(u.Package)
		}
	}

	for _, i := range p.Interfaces {
		fromUses(i.Uses)
	}
	for _, w := range p.Worlds {
		fromUses(w.Uses)
		for _, it := range w.Imports {
			record(it.Package)
			if it.Inline != nil {
				fromUses(it.Inline.Uses)
			}
		}
		for _, it := range w.Exports {
			record(it.Package)
			if it.Inline != nil {
				fromUses(it.Inline.Uses)
			}
		}
	}

	deps := make([]Ident, 0, len(seen))
	for _, id := range seen {
		deps = append(deps, id)
	}
	sort.Slice(deps, func(a, b int) bool { return deps[a].Compare(deps[b]) < 0 })
	return deps
}
