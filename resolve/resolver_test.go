package resolve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"

	builderrors "github.com/wippyai/wasm-build/errors"
	"github.com/wippyai/wasm-build/wit"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// fixtureTree lays out the root package with local and nested dependencies:
//
//	wit/world.wit                         component:foo
//	wit/deps/foo-bar/bar.wit              foo:bar, uses baz:qux
//	wit/deps/foo-bar/deps/baz-qux/qux.wit baz:qux
//	wit/deps/bar-baz/qux.wit              bar:baz, uses baz:qux
func fixtureTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "wit/world.wit"), `package component:foo

world example {
    export foo:bar/baz
    export bar:baz/qux
}`)
	writeFile(t, filepath.Join(root, "wit/deps/foo-bar/bar.wit"), `package foo:bar

interface baz {
    use baz:qux/qux.{ty}
    baz: func() -> ty
}`)
	writeFile(t, filepath.Join(root, "wit/deps/foo-bar/deps/baz-qux/qux.wit"), `package baz:qux

interface qux {
    type ty = u32
}`)
	writeFile(t, filepath.Join(root, "wit/deps/bar-baz/qux.wit"), `package bar:baz
interface qux {
    use baz:qux/qux.{ty}
    qux: func()
}`)
	return root
}

func fixtureDeps(root string) map[string]Dependency {
	return map[string]Dependency{
		"foo:bar": {Path: filepath.Join(root, "wit/deps/foo-bar")},
		"bar:baz": {Path: filepath.Join(root, "wit/deps/bar-baz/qux.wit")},
		"baz:qux": {Path: filepath.Join(root, "wit/deps/foo-bar/deps/baz-qux/qux.wit")},
	}
}

func loadRoot(t *testing.T, root string) *wit.Package {
	t.Helper()
	pkg, err := wit.LoadPackage(filepath.Join(root, "wit"))
	if err != nil {
		t.Fatal(err)
	}
	return pkg
}

func TestResolveLocalDeps(t *testing.T) {
	root := fixtureTree(t)
	pkg := loadRoot(t, root)

	r := New(nil, filepath.Join(root, "wasm-build.lock"))
	rw, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example", fixtureDeps(root))
	if err != nil {
		t.Fatal(err)
	}

	if rw.Name != "example" {
		t.Errorf("world: %q", rw.Name)
	}
	if len(rw.Packages) != 4 {
		t.Fatalf("packages: got %d, want 4", len(rw.Packages))
	}
	// Topological, identity-sorted: baz:qux has no deps, then bar:baz and
	// foo:bar, root last.
	order := []string{"baz:qux", "bar:baz", "foo:bar", "component:foo"}
	for i, want := range order {
		if got := rw.Packages[i].ID.Base(); got != want {
			t.Errorf("package %d: got %s, want %s", i, got, want)
		}
	}

	if len(rw.Exports) != 2 {
		t.Fatalf("exports: %+v", rw.Exports)
	}
	if rw.Export("foo:bar/baz") == nil || rw.Export("bar:baz/qux") == nil {
		t.Errorf("export keys: %+v", rw.Exports)
	}

	// foo:bar/baz uses baz:qux/qux, so the world implicitly imports it
	found := false
	for _, it := range rw.Imports {
		if it.Key == "baz:qux/qux" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing implicit import, imports: %+v", rw.Imports)
	}

	// No registry deps: no lock artifact
	if _, err := os.Stat(filepath.Join(root, "wasm-build.lock")); !os.IsNotExist(err) {
		t.Error("lock file created without registry dependencies")
	}
}

func TestResolveNestedAutoDiscovery(t *testing.T) {
	root := fixtureTree(t)
	pkg := loadRoot(t, root)

	// Only foo:bar declared; baz:qux resolves out of foo-bar's own subtree.
	deps := map[string]Dependency{
		"foo:bar": {Path: filepath.Join(root, "wit/deps/foo-bar")},
		"bar:baz": {Path: filepath.Join(root, "wit/deps/bar-baz/qux.wit")},
	}

	r := New(nil, filepath.Join(root, "wasm-build.lock"))
	rw, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example", deps)
	if err != nil {
		t.Fatal(err)
	}
	if rw.Package("baz:qux") == nil {
		t.Error("nested baz:qux not resolved")
	}
}

// A declared dependency the root never references leaves the root with no
// recorded graph edges; the root must still order last.
func TestResolveRootLastWithUnreferencedDep(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "wit/world.wit"), `package component:foo

world example {
    export run: func()
}`)
	writeFile(t, filepath.Join(root, "wit/deps/zz-aa/aa.wit"), `package zz:aa

interface helper {
    assist: func()
}`)

	pkg := loadRoot(t, root)
	r := New(nil, filepath.Join(root, "wasm-build.lock"))
	rw, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example", map[string]Dependency{
		"zz:aa": {Path: filepath.Join(root, "wit/deps/zz-aa")},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(rw.Packages) != 2 {
		t.Fatalf("packages: got %d, want 2", len(rw.Packages))
	}
	if got := rw.Packages[len(rw.Packages)-1].ID.Base(); got != "component:foo" {
		t.Errorf("root not last: %q", got)
	}
}

func TestResolveUnresolved(t *testing.T) {
	root := fixtureTree(t)
	pkg := loadRoot(t, root)

	deps := fixtureDeps(root)
	deps["foo:bar"] = Dependency{Path: filepath.Join(root, "absent")}

	r := New(nil, filepath.Join(root, "wasm-build.lock"))
	_, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example", deps)
	if !errors.Is(err, builderrors.Match(builderrors.PhaseResolve, builderrors.KindUnresolvedDependency)) {
		t.Fatalf("expected UnresolvedDependency, got %v", err)
	}
}

func TestResolveWorldNotFound(t *testing.T) {
	root := fixtureTree(t)
	pkg := loadRoot(t, root)

	r := New(nil, filepath.Join(root, "wasm-build.lock"))
	_, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "nonexistent", fixtureDeps(root))
	if err == nil {
		t.Fatal("expected error for unknown world")
	}
}

func TestResolveCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "wit/world.wit"), `package component:foo

world example {
    export a:a/one
}`)
	writeFile(t, filepath.Join(root, "wit/deps/a-a/a.wit"), `package a:a

interface one {
    use b:b/two.{t}
    f: func() -> t
}`)
	writeFile(t, filepath.Join(root, "wit/deps/a-a/deps/b-b/b.wit"), `package b:b

interface two {
    use a:a/one.{u}
    type t = u32
}`)

	pkg := loadRoot(t, root)
	r := New(nil, filepath.Join(root, "wasm-build.lock"))
	_, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example", nil)
	if !errors.Is(err, builderrors.Match(builderrors.PhaseResolve, builderrors.KindCyclicDependency)) {
		t.Fatalf("expected CyclicDependency, got %v", err)
	}

	var structured *builderrors.Error
	if !errors.As(err, &structured) {
		t.Fatal("expected structured error")
	}
	if structured.Detail != "a:a -> b:b -> a:a" {
		t.Errorf("chain: %q", structured.Detail)
	}
}

func TestResolveVersionConflict(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "wit/world.wit"), `package component:foo

world example {
    export a:a/one
    export b:b/two
}`)
	// Both a:a and b:b vendor c:c, with differing content.
	writeFile(t, filepath.Join(root, "wit/deps/a-a/a.wit"), `package a:a

interface one {
    use c:c/shared.{t}
    f: func() -> t
}`)
	writeFile(t, filepath.Join(root, "wit/deps/a-a/deps/c-c/c.wit"), `package c:c

interface shared {
    type t = u32
}`)
	writeFile(t, filepath.Join(root, "wit/deps/b-b/b.wit"), `package b:b

interface two {
    use c:c/shared.{t}
    g: func() -> t
}`)
	writeFile(t, filepath.Join(root, "wit/deps/b-b/deps/c-c/c.wit"), `package c:c

interface shared {
    type t = u64
}`)

	pkg := loadRoot(t, root)
	r := New(nil, filepath.Join(root, "wasm-build.lock"))
	_, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example", nil)
	if !errors.Is(err, builderrors.Match(builderrors.PhaseResolve, builderrors.KindVersionConflict)) {
		t.Fatalf("expected VersionConflict, got %v", err)
	}
}

func TestResolveSharedNestedInstance(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "wit/world.wit"), `package component:foo

world example {
    export a:a/one
    export b:b/two
}`)
	shared := `package c:c

interface shared {
    type t = u32
}`
	writeFile(t, filepath.Join(root, "wit/deps/a-a/a.wit"), `package a:a

interface one {
    use c:c/shared.{t}
    f: func() -> t
}`)
	writeFile(t, filepath.Join(root, "wit/deps/a-a/deps/c-c/c.wit"), shared)
	writeFile(t, filepath.Join(root, "wit/deps/b-b/b.wit"), `package b:b

interface two {
    use c:c/shared.{t}
    g: func() -> t
}`)
	writeFile(t, filepath.Join(root, "wit/deps/b-b/deps/c-c/c.wit"), shared)

	pkg := loadRoot(t, root)
	r := New(nil, filepath.Join(root, "wasm-build.lock"))
	rw, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Identical vendored copies share one arena entry
	count := 0
	for _, rp := range rw.Packages {
		if rp.ID.Base() == "c:c" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("c:c entries: got %d, want 1", count)
	}
}

func TestOrderingIndependentOfDeclarationOrder(t *testing.T) {
	root := fixtureTree(t)
	pkg := loadRoot(t, root)

	resolveWith := func(deps map[string]Dependency) []string {
		r := New(nil, filepath.Join(root, "wasm-build.lock"))
		rw, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example", deps)
		if err != nil {
			t.Fatal(err)
		}
		var order []string
		for _, rp := range rw.Packages {
			order = append(order, rp.ID.Base())
		}
		return order
	}

	a := resolveWith(fixtureDeps(root))
	b := resolveWith(fixtureDeps(root))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("ordering differs: %v vs %v", a, b)
		}
	}
}

// fakeRegistry serves packages from memory and counts queries.
type fakeRegistry struct {
	packages      map[string]map[string]string // base id -> version -> source
	versionCalls  int
	fetchCalls    int
	versionsError error
}

func (f *fakeRegistry) Versions(_ context.Context, id wit.Ident) ([]*semver.Version, error) {
	f.versionCalls++
	if f.versionsError != nil {
		return nil, f.versionsError
	}
	var out []*semver.Version
	for v := range f.packages[id.Base()] {
		out = append(out, semver.MustParse(v))
	}
	return out, nil
}

func (f *fakeRegistry) Fetch(_ context.Context, id wit.Ident, version *semver.Version) ([]byte, error) {
	f.fetchCalls++
	src, ok := f.packages[id.Base()][version.String()]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(src), nil
}

func registryFixture(t *testing.T) (string, *wit.Package) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "wit/world.wit"), `package component:foo

world example {
    export wasi:rand/gen
}`)
	return root, loadRoot(t, root)
}

func TestResolveRegistry(t *testing.T) {
	root, pkg := registryFixture(t)
	reg := &fakeRegistry{packages: map[string]map[string]string{
		"wasi:rand": {
			"0.1.0": "package wasi:rand\n\ninterface gen {\n    next: func() -> u64\n}\n",
			"0.2.0": "package wasi:rand\n\ninterface gen {\n    next: func() -> u64\n    seed: func(s: u64)\n}\n",
		},
	}}
	lockPath := filepath.Join(root, "wasm-build.lock")
	deps := map[string]Dependency{"wasi:rand": {Version: ">=0.1.0"}}

	r := New(reg, lockPath)
	rw, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example", deps)
	if err != nil {
		t.Fatal(err)
	}

	rp := rw.Package("wasi:rand")
	if rp == nil || !rp.Registry {
		t.Fatal("registry package not resolved")
	}
	// Highest satisfying version wins
	if rp.ID.Version == nil || rp.ID.Version.String() != "0.2.0" {
		t.Errorf("version: %v", rp.ID.Version)
	}
	if rw.RegistryDeps != 1 {
		t.Errorf("registry deps: %d", rw.RegistryDeps)
	}

	// Exactly one lock artifact with the pin
	lock, err := ReadLockFile(lockPath)
	if err != nil {
		t.Fatal(err)
	}
	entry := lock.Entry("wasi:rand")
	if entry == nil || entry.Version != "0.2.0" || entry.Digest == "" {
		t.Fatalf("lock entry: %+v", entry)
	}

	// Second resolution honors the pin: no version query
	r2 := New(reg, lockPath)
	if _, err := r2.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example", deps); err != nil {
		t.Fatal(err)
	}
	if reg.versionCalls != 1 {
		t.Errorf("version queries: got %d, want 1", reg.versionCalls)
	}
}

func TestResolveRegistryUnavailable(t *testing.T) {
	root, pkg := registryFixture(t)
	reg := &fakeRegistry{versionsError: errors.New("connection refused")}
	deps := map[string]Dependency{"wasi:rand": {Version: ">=0.1.0"}}

	r := New(reg, filepath.Join(root, "wasm-build.lock"))
	_, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example", deps)
	if !errors.Is(err, builderrors.Match(builderrors.PhaseResolve, builderrors.KindRegistryUnavailable)) {
		t.Fatalf("expected RegistryUnavailable, got %v", err)
	}
}

func TestResolveRegistryDigestMismatch(t *testing.T) {
	root, pkg := registryFixture(t)
	reg := &fakeRegistry{packages: map[string]map[string]string{
		"wasi:rand": {"0.1.0": "package wasi:rand\n\ninterface gen {\n    next: func() -> u64\n}\n"},
	}}
	lockPath := filepath.Join(root, "wasm-build.lock")
	lock := &LockFile{Format: 1}
	lock.Pin("wasi:rand", semver.MustParse("0.1.0"), "deadbeefdeadbeef")
	if err := lock.Write(lockPath); err != nil {
		t.Fatal(err)
	}

	r := New(reg, lockPath)
	_, err := r.Resolve(context.Background(), pkg, filepath.Join(root, "wit"), "example",
		map[string]Dependency{"wasi:rand": {Version: ">=0.1.0"}})
	if !errors.Is(err, builderrors.Match(builderrors.PhaseResolve, builderrors.KindVersionConflict)) {
		t.Fatalf("expected VersionConflict on digest mismatch, got %v", err)
	}
}
