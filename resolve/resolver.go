package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/cespare/xxhash/v2"

	"github.com/wippyai/wasm-build/errors"
	"github.com/wippyai/wasm-build/wit"
)

// Dependency declares how a package reference is satisfied: a filesystem
// path (local or nested inside another package's tree), or a registry
// version range. Exactly one of the fields is set.
type Dependency struct {
	Path    string
	Version string
}

// ResolvedPackage is one arena entry: a loaded package, its content digest,
// and the base identities of its direct foreign dependencies.
type ResolvedPackage struct {
	ID       wit.Ident
	Pkg      *wit.Package
	Digest   string
	Deps     []string
	Origin   string
	Registry bool
}

// Resolver resolves a package's declared dependencies into a consistent
// graph. A Resolver is scoped to one build invocation; it is not safe for
// concurrent use and is cheap to recreate.
type Resolver struct {
	registry Registry
	lockPath string

	declared map[string]Dependency
	arena    map[string]*ResolvedPackage
	stack    []string

	lock         *LockFile
	lockChanged  bool
	registryDeps int
}

// New creates a Resolver. registry may be nil when no registry dependencies
// are declared; lockPath names the member's lock artifact.
func New(registry Registry, lockPath string) *Resolver {
	return &Resolver{
		registry: registry,
		lockPath: lockPath,
		arena:    make(map[string]*ResolvedPackage),
	}
}

// Resolve resolves the root package's dependency graph and selects the
// named world. rootPath is where root was loaded from; its deps directory
// anchors undeclared transitive references. deps is the manifest's declared
// dependency table keyed by base identity.
//
// The lock file is read before any registry query and rewritten only when a
// registry dependency was resolved to a new pin.
func (r *Resolver) Resolve(ctx context.Context, root *wit.Package, rootPath, worldName string, deps map[string]Dependency) (*ResolvedWorld, error) {
	lock, err := ReadLockFile(r.lockPath)
	if err != nil {
		return nil, err
	}
	r.lock = lock
	r.declared = deps

	world := root.World(worldName)
	if world == nil {
		return nil, &errors.Error{
			Phase:    errors.PhaseResolve,
			Kind:     errors.KindUnresolvedDependency,
			Identity: root.Name.String(),
			Detail:   fmt.Sprintf("world %q not declared", worldName),
		}
	}

	rootEntry := &ResolvedPackage{
		ID:     root.Name,
		Pkg:    root,
		Digest: digestFiles(root.Files),
	}

	// Declared dependencies resolve first, in identity order, so diagnostics
	// and registry traffic are deterministic.
	declared := make([]string, 0, len(deps))
	for id := range deps {
		declared = append(declared, id)
	}
	sort.Strings(declared)
	for _, idStr := range declared {
		id, err := wit.ParseIdent(idStr)
		if err != nil {
			return nil, errors.Manifest(idStr, err)
		}
		if _, err := r.resolvePackage(ctx, id, wit.DepsDir(rootPath)); err != nil {
			return nil, err
		}
	}

	// Anything the root references beyond the declared table resolves
	// against the root's own deps directory.
	for _, dep := range root.ForeignDeps() {
		rp, err := r.resolvePackage(ctx, dep, wit.DepsDir(rootPath))
		if err != nil {
			return nil, err
		}
		rootEntry.Deps = append(rootEntry.Deps, rp.ID.Base())
	}

	rw := &ResolvedWorld{
		Name:         world.Name,
		World:        world,
		Root:         rootEntry,
		RegistryDeps: r.registryDeps,
	}
	rw.Packages = r.ordered(rootEntry)

	if err := rw.mergeItems(); err != nil {
		return nil, err
	}

	if r.registryDeps > 0 && r.lockChanged {
		if err := r.lock.Write(r.lockPath); err != nil {
			return nil, err
		}
	}
	return rw, nil
}

// resolvePackage resolves one reference into the arena, loading it and its
// transitive subtree on first sight.
func (r *Resolver) resolvePackage(ctx context.Context, id wit.Ident, ownerDepsDir string) (*ResolvedPackage, error) {
	base := id.Base()

	for i, active := range r.stack {
		if active == base {
			return nil, errors.Cycle(append(append([]string{}, r.stack[i:]...), base))
		}
	}

	if rp, ok := r.arena[base]; ok {
		if err := r.checkConsistent(id, rp, ownerDepsDir); err != nil {
			return nil, err
		}
		return rp, nil
	}

	r.stack = append(r.stack, base)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	var rp *ResolvedPackage
	var err error
	switch dep, declared := r.declared[base]; {
	case declared && dep.Path != "":
		rp, err = r.loadPath(id, dep.Path)
	case declared && dep.Version != "":
		rp, err = r.loadRegistry(ctx, id, dep.Version)
	default:
		rp, err = r.loadNested(id, ownerDepsDir)
	}
	if err != nil {
		return nil, err
	}

	// The loaded package's own foreign references resolve out of its
	// vendored subtree unless the manifest overrides them.
	for _, dep := range rp.Pkg.ForeignDeps() {
		child, err := r.resolvePackage(ctx, dep, rp.depsDir())
		if err != nil {
			return nil, err
		}
		rp.Deps = append(rp.Deps, child.ID.Base())
	}

	r.arena[base] = rp
	return rp, nil
}

// checkConsistent verifies that a second reference to an already-resolved
// identity would load identical content. Two references resolving to the
// same identity with differing content is a version conflict.
func (r *Resolver) checkConsistent(id wit.Ident, rp *ResolvedPackage, ownerDepsDir string) error {
	base := id.Base()
	var candidate string

	switch dep, declared := r.declared[base]; {
	case declared && dep.Path != "":
		candidate = dep.Path
	case declared && dep.Version != "":
		if rp.ID.Version != nil && !rangeSatisfied(dep.Version, rp.ID.Version) {
			return errors.Conflict(base, fmt.Sprintf("resolved version %s does not satisfy declared range %q", rp.ID.Version, dep.Version))
		}
		return nil
	default:
		path, ok := findNested(id, ownerDepsDir)
		if !ok {
			return nil // shared resolved instance, no second source
		}
		candidate = path
	}

	if candidate == rp.Origin {
		return nil
	}
	other, err := wit.LoadPackage(candidate)
	if err != nil {
		return nil
	}
	if digestFiles(other.Files) != rp.Digest {
		return errors.Conflict(base, fmt.Sprintf("resolved twice with differing content (second reference at %s)", candidate))
	}
	return nil
}

func (r *Resolver) loadPath(id wit.Ident, path string) (*ResolvedPackage, error) {
	pkg, err := wit.LoadPackage(path)
	if err != nil {
		return nil, errors.Unresolved(id.Base(), path)
	}
	if !pkg.Name.IsZero() && pkg.Name.Base() != id.Base() {
		return nil, errors.Conflict(id.Base(), fmt.Sprintf("package at %s declares identity %s", path, pkg.Name))
	}
	return &ResolvedPackage{
		ID:     pkg.Name,
		Pkg:    pkg,
		Digest: digestFiles(pkg.Files),
		Origin: path,
	}, nil
}

// findNested locates an undeclared reference in the owning package's deps
// directory, trying the conventional <namespace>-<name> layout before
// scanning. Vendored directories need not follow the conventional naming.
func findNested(id wit.Ident, depsDir string) (string, bool) {
	if depsDir == "" {
		return "", false
	}

	conventional := id.Namespace + "-" + id.Name
	candidates := []string{
		filepath.Join(depsDir, conventional),
		filepath.Join(depsDir, conventional+".wit"),
		filepath.Join(depsDir, id.Name),
		filepath.Join(depsDir, id.Name+".wit"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	entries, err := os.ReadDir(depsDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		path := filepath.Join(depsDir, e.Name())
		pkg, err := wit.LoadPackage(path)
		if err == nil && pkg.Name.Base() == id.Base() {
			return path, true
		}
	}
	return "", false
}

func (r *Resolver) loadNested(id wit.Ident, depsDir string) (*ResolvedPackage, error) {
	path, ok := findNested(id, depsDir)
	if !ok {
		return nil, errors.Unresolved(id.Base(), depsDir)
	}
	return r.loadPath(id, path)
}

// loadRegistry resolves a registry reference, honoring an existing pin
// before querying for versions.
func (r *Resolver) loadRegistry(ctx context.Context, id wit.Ident, rangeExpr string) (*ResolvedPackage, error) {
	if r.registry == nil {
		return nil, errors.Unresolved(id.Base(), "no registry configured")
	}
	base := id.Base()
	r.registryDeps++

	var version *semver.Version
	var pinnedDigest string
	if entry := r.lock.Entry(base); entry != nil {
		pinned, err := semver.NewVersion(entry.Version)
		if err == nil && rangeSatisfied(rangeExpr, pinned) {
			version = pinned
			pinnedDigest = entry.Digest
		}
	}

	if version == nil {
		versions, err := r.registry.Versions(ctx, id)
		if err != nil {
			return nil, errors.RegistryUnavailable(base, err)
		}
		selected, err := selectVersion(versions, rangeExpr)
		if err != nil {
			return nil, &errors.Error{
				Phase:    errors.PhaseResolve,
				Kind:     errors.KindUnresolvedDependency,
				Identity: base,
				Cause:    err,
			}
		}
		version = selected
	}

	content, err := r.registry.Fetch(ctx, id, version)
	if err != nil {
		return nil, errors.RegistryUnavailable(base, err)
	}
	digest := digestBytes(content)
	if pinnedDigest != "" && pinnedDigest != digest {
		return nil, errors.Conflict(base, fmt.Sprintf("content digest %s does not match locked digest %s for version %s", digest, pinnedDigest, version))
	}

	pkg, err := wit.Parse(registrySource(id, version), string(content))
	if err != nil {
		return nil, errors.Parse(registrySource(id, version), err)
	}
	if !pkg.Name.IsZero() && pkg.Name.Base() != base {
		return nil, errors.Conflict(base, fmt.Sprintf("registry content declares identity %s", pkg.Name))
	}

	if pinnedDigest == "" {
		r.lock.Pin(base, version, digest)
		r.lockChanged = true
	}

	resolvedID := pkg.Name
	if resolvedID.Version == nil {
		resolvedID.Version = version
	}
	return &ResolvedPackage{
		ID:       resolvedID,
		Pkg:      pkg,
		Digest:   digest,
		Origin:   registrySource(id, version),
		Registry: true,
	}, nil
}

// ordered returns the arena in topological order with identity-sorted
// tie-breaking, root last. The ordering is reproducible independent of
// declaration order.
func (r *Resolver) ordered(root *ResolvedPackage) []*ResolvedPackage {
	rootBase := root.ID.Base()
	nodes := make(map[string]*ResolvedPackage, len(r.arena))
	for base, rp := range r.arena {
		if base != rootBase {
			nodes[base] = rp
		}
	}

	emitted := make(map[string]bool, len(nodes))
	out := make([]*ResolvedPackage, 0, len(nodes)+1)

	for len(out) < len(nodes) {
		var ready []string
		for base, rp := range nodes {
			if emitted[base] {
				continue
			}
			ok := true
			for _, dep := range rp.Deps {
				if _, known := nodes[dep]; known && !emitted[dep] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, base)
			}
		}
		if len(ready) == 0 {
			// Unreachable after cycle detection; bail out rather than spin.
			break
		}
		sort.Strings(ready)
		for _, base := range ready {
			emitted[base] = true
			out = append(out, nodes[base])
		}
	}

	// The root goes last even when it has no recorded dependencies, such
	// as declared-but-unreferenced ones.
	return append(out, root)
}

// depsDir returns the vendored subtree location for this package's own
// dependencies. Registry packages have no subtree.
func (rp *ResolvedPackage) depsDir() string {
	if rp.Registry || len(rp.Pkg.Files) == 0 {
		return ""
	}
	return wit.DepsDir(filepath.Dir(rp.Pkg.Files[0].Path))
}

func registrySource(id wit.Ident, version *semver.Version) string {
	return "registry:" + id.Base() + "@" + version.String()
}

func digestBytes(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

func digestFiles(files []wit.SourceFile) string {
	h := xxhash.New()
	for _, f := range files {
		_, _ = h.WriteString(filepath.ToSlash(filepath.Base(f.Path)))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(f.Content)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
