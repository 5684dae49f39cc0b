package build

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/wippyai/wasm-build/compose"
	"github.com/wippyai/wasm-build/errors"
	"github.com/wippyai/wasm-build/resolve"
	"github.com/wippyai/wasm-build/target"
	"github.com/wippyai/wasm-build/wit"
)

// DefaultManifestName is the manifest file looked up in a member directory.
const DefaultManifestName = "Cargo.toml"

// Manifest is the subset of the project manifest this tool reads. Only the
// component metadata table is interpreted; everything else belongs to the
// external compiler.
type Manifest struct {
	Package struct {
		Name     string `toml:"name"`
		Version  string `toml:"version"`
		Metadata struct {
			Component ComponentMetadata `toml:"component"`
		} `toml:"metadata"`
	} `toml:"package"`

	path string
}

// ComponentMetadata is the `[package.metadata.component]` table.
type ComponentMetadata struct {
	// Package overrides the identity declared in the WIT source.
	Package string `toml:"package"`

	// Adapter is the path of a legacy-ABI adapter module, relative to the
	// manifest.
	Adapter string `toml:"adapter"`

	Target struct {
		// Path locates the WIT sources, relative to the manifest.
		// Defaults to "wit".
		Path string `toml:"path"`

		// World selects the world to build. Empty means the package's
		// single world.
		World string `toml:"world"`

		// Dependencies maps package identities to path or version
		// references for interface resolution.
		Dependencies map[string]DepSpec `toml:"dependencies"`
	} `toml:"target"`

	// Dependencies maps package identities to previously built component
	// binaries composed into this one.
	Dependencies map[string]DepSpec `toml:"dependencies"`

	Bindings struct {
		Ownership   string            `toml:"ownership"`
		Implementor string            `toml:"implementor"`
		Resources   map[string]string `toml:"resources"`
	} `toml:"bindings"`
}

// DepSpec is one dependency reference: a local path or a version range.
// The TOML form is either a table with a path/version key or a bare string
// shorthand for a version range.
type DepSpec struct {
	Path    string `toml:"path"`
	Version string `toml:"version"`
}

// UnmarshalText accepts the bare string shorthand `"id" = "1.0"`.
func (d *DepSpec) UnmarshalText(text []byte) error {
	d.Version = strings.TrimSpace(string(text))
	return nil
}

// LoadManifest reads and decodes a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Manifest(path, err)
	}
	m := &Manifest{path: path}
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, errors.Manifest(path, err)
	}
	return m, nil
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.path)
}

// WitPath returns the WIT source location, resolved against the manifest.
func (m *Manifest) WitPath() string {
	p := m.Package.Metadata.Component.Target.Path
	if p == "" {
		p = "wit"
	}
	return m.resolvePath(p)
}

// AdapterPath returns the adapter location resolved against the manifest,
// or empty when no adapter is declared.
func (m *Manifest) AdapterPath() string {
	p := m.Package.Metadata.Component.Adapter
	if p == "" {
		return ""
	}
	return m.resolvePath(p)
}

// TargetDeps returns the declared interface dependencies keyed by package
// identity, with paths resolved against the manifest.
func (m *Manifest) TargetDeps() map[string]resolve.Dependency {
	decl := m.Package.Metadata.Component.Target.Dependencies
	if len(decl) == 0 {
		return nil
	}
	out := make(map[string]resolve.Dependency, len(decl))
	for id, spec := range decl {
		dep := resolve.Dependency{Version: spec.Version}
		if spec.Path != "" {
			dep.Path = m.resolvePath(spec.Path)
		}
		out[id] = dep
	}
	return out
}

// ComponentDeps returns the declared component-level dependencies in
// identity order.
func (m *Manifest) ComponentDeps() ([]compose.Dependency, error) {
	decl := m.Package.Metadata.Component.Dependencies
	if len(decl) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(decl))
	for id := range decl {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]compose.Dependency, 0, len(ids))
	for _, id := range ids {
		ident, err := wit.ParseIdent(id)
		if err != nil {
			return nil, errors.Manifest(m.path, err)
		}
		spec := decl[id]
		if spec.Path == "" {
			return nil, &errors.Error{
				Phase:  errors.PhaseResolve,
				Kind:   errors.KindManifest,
				Path:   m.path,
				Detail: fmt.Sprintf("component dependency %q needs a path", id),
			}
		}
		out = append(out, compose.Dependency{ID: ident, Path: m.resolvePath(spec.Path)})
	}
	return out, nil
}

// BindingOptions returns the opaque bindings knobs passed through into the
// encoded target.
func (m *Manifest) BindingOptions() target.Options {
	b := m.Package.Metadata.Component.Bindings
	return target.Options{
		Ownership:   b.Ownership,
		Implementor: b.Implementor,
		Resources:   b.Resources,
	}
}

// PackageOverride returns the identity replacing the one declared in WIT,
// or a zero identity when no override is set.
func (m *Manifest) PackageOverride() (wit.Ident, error) {
	raw := m.Package.Metadata.Component.Package
	if raw == "" {
		return wit.Ident{}, nil
	}
	id, err := wit.ParseIdent(raw)
	if err != nil {
		return wit.Ident{}, errors.Manifest(m.path, err)
	}
	return id, nil
}

func (m *Manifest) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir(), p)
}
