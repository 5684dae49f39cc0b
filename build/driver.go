package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-build/component"
	"github.com/wippyai/wasm-build/compose"
	"github.com/wippyai/wasm-build/resolve"
	"github.com/wippyai/wasm-build/target"
	"github.com/wippyai/wasm-build/wit"
)

// State enumerates the driver's build stages.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateEncodingTarget
	StateCompiling
	StateEncodingComponent
	StateValidating
	StateDone
	StateFailed
)

var stateNames = [...]string{
	"idle",
	"resolving",
	"encoding-target",
	"compiling",
	"encoding-component",
	"validating",
	"done",
	"failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// LockFileName is the per-member lock artifact, created only when at least
// one registry dependency was resolved.
const LockFileName = "wasm-build.lock"

// Config describes one build invocation.
type Config struct {
	// Dir is the member directory containing the manifest.
	Dir string

	// ManifestName overrides the manifest file name. Defaults to
	// DefaultManifestName.
	ManifestName string

	// OutDir receives intermediates and the final artifact. Defaults to
	// Dir/target/component.
	OutDir string

	// Release selects the optimized profile; passed through to the
	// compiler and reflected in the completion diagnostic.
	Release bool

	// Registry resolves versioned interface dependencies. May be nil when
	// the member declares none.
	Registry resolve.Registry

	// Compiler is the external compilation step.
	Compiler Compiler
}

func (c *Config) manifestPath() string {
	name := c.ManifestName
	if name == "" {
		name = DefaultManifestName
	}
	return filepath.Join(c.Dir, name)
}

func (c *Config) outDir() string {
	if c.OutDir != "" {
		return c.OutDir
	}
	return filepath.Join(c.Dir, "target", "component")
}

// Result is a successful build's outcome.
type Result struct {
	// Artifact is the final component path.
	Artifact string

	// Fingerprint identifies the encoded target the build used.
	Fingerprint target.Fingerprint

	// TargetChanged reports whether the target was re-encoded this run.
	TargetChanged bool
}

// Driver runs one member through the build pipeline.
type Driver struct {
	cfg   Config
	state State

	// Err holds the failure after a StateFailed transition.
	Err error
}

// NewDriver creates an idle driver for the given configuration.
func NewDriver(cfg Config) *Driver {
	return &Driver{cfg: cfg, state: StateIdle}
}

// State returns the driver's current stage.
func (d *Driver) State() State {
	return d.state
}

func (d *Driver) enter(s State) {
	d.state = s
	Logger().Debug("state transition",
		zap.String("dir", d.cfg.Dir),
		zap.Stringer("state", s),
	)
}

func (d *Driver) fail(err error) error {
	d.state = StateFailed
	d.Err = err
	return err
}

// Build runs the pipeline to completion. The first error aborts the run
// and is returned verbatim; a previously valid artifact is never replaced
// on failure.
func (d *Driver) Build(ctx context.Context) (*Result, error) {
	d.enter(StateResolving)
	m, err := LoadManifest(d.cfg.manifestPath())
	if err != nil {
		return nil, d.fail(err)
	}
	rw, err := d.resolveTarget(ctx, m)
	if err != nil {
		return nil, d.fail(err)
	}

	opts := m.BindingOptions()
	cache := target.NewCache(filepath.Join(d.cfg.outDir(), m.Package.Name+".target.bin"))
	et, changed, err := cache.EncodeIfStale(rw, opts)
	if err != nil {
		return nil, d.fail(err)
	}
	if changed {
		d.enter(StateEncodingTarget)
	}

	deps, err := m.ComponentDeps()
	if err != nil {
		return nil, d.fail(err)
	}
	plan, err := compose.Resolve(rw, deps)
	if err != nil {
		return nil, d.fail(err)
	}

	var adapter []byte
	if path := m.AdapterPath(); path != "" {
		if adapter, err = component.LoadAdapter(path); err != nil {
			return nil, d.fail(err)
		}
	}

	d.enter(StateCompiling)
	core, err := d.cfg.Compiler.Compile(ctx, d.cfg.Dir, d.cfg.Release)
	if err != nil {
		return nil, d.fail(err)
	}

	d.enter(StateEncodingComponent)
	bin, err := component.Encode(component.Input{
		Core:    core,
		World:   rw,
		Target:  et,
		Adapter: adapter,
		Plan:    plan,
	})
	if err != nil {
		return nil, d.fail(err)
	}

	d.enter(StateValidating)
	if err := component.Validate(ctx, bin); err != nil {
		return nil, d.fail(err)
	}

	artifact := filepath.Join(d.cfg.outDir(), m.Package.Name+".wasm")
	if err := writeAtomic(artifact, bin); err != nil {
		return nil, d.fail(err)
	}

	d.enter(StateDone)
	Logger().Info(completionLine(d.cfg.Release), zap.String("artifact", artifact))
	return &Result{
		Artifact:      artifact,
		Fingerprint:   et.Fingerprint,
		TargetChanged: changed,
	}, nil
}

func (d *Driver) resolveTarget(ctx context.Context, m *Manifest) (*resolve.ResolvedWorld, error) {
	witPath := m.WitPath()
	pkg, err := wit.LoadPackage(witPath)
	if err != nil {
		return nil, err
	}
	if override, err := m.PackageOverride(); err != nil {
		return nil, err
	} else if !override.IsZero() {
		pkg.Name = override
	}

	r := resolve.New(d.cfg.Registry, filepath.Join(d.cfg.Dir, LockFileName))
	return r.Resolve(ctx, pkg, witPath, m.Package.Metadata.Component.Target.World, m.TargetDeps())
}

// completionLine matches the original toolchain's wording so downstream
// output scrapers keep working.
func completionLine(release bool) string {
	if release {
		return "Finished release [optimized]"
	}
	return "Finished dev [unoptimized + debuginfo]"
}

// writeAtomic replaces path with data via a temp file and rename, so a
// failed write never clobbers a previous artifact.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
