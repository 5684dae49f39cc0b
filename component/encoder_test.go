package component

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	wasmbuild "github.com/wippyai/wasm-build"
	"github.com/wippyai/wasm-build/errors"
	"github.com/wippyai/wasm-build/resolve"
	"github.com/wippyai/wasm-build/target"
	"github.com/wippyai/wasm-build/wasm"
	"github.com/wippyai/wasm-build/wit"
)

const fixtureWorld = `package component:demo;

interface host {
    greet: func(name: string) -> string;
}

world demo {
    export host;
    export run: func();
}
`

func fixture(t *testing.T) (*resolve.ResolvedWorld, *target.EncodedTarget) {
	t.Helper()
	dir := t.TempDir()
	witDir := filepath.Join(dir, "wit")
	if err := os.MkdirAll(witDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(witDir, "world.wit"), []byte(fixtureWorld), 0o644); err != nil {
		t.Fatal(err)
	}
	pkg, err := wit.LoadPackage(witDir)
	if err != nil {
		t.Fatal(err)
	}
	rw, err := resolve.New(nil, filepath.Join(dir, "wasm-build.lock")).
		Resolve(context.Background(), pkg, witDir, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	et, _, err := target.NewCache(filepath.Join(dir, "target.bin")).EncodeIfStale(rw, target.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return rw, et
}

func fixtureCore() []byte {
	return wasm.SynthModule("host#greet", "run")
}

func TestEncodeProducesValidComponent(t *testing.T) {
	rw, et := fixture(t)

	bin, err := Encode(Input{Core: fixtureCore(), World: rw, Target: et})
	if err != nil {
		t.Fatal(err)
	}
	if !wasm.IsComponent(bin) {
		t.Fatal("output is not a component")
	}
	if err := Validate(context.Background(), bin); err != nil {
		t.Fatal(err)
	}
}

func TestEncodeStampsProducers(t *testing.T) {
	rw, et := fixture(t)

	bin, err := Encode(Input{Core: fixtureCore(), World: rw, Target: et})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := wasm.ComponentCustom(bin, ProducersSection)
	if err != nil {
		t.Fatal(err)
	}
	if payload == nil {
		t.Fatal("producers section missing")
	}
	p, err := ParseProducers(payload)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range p.ProcessedBy {
		if e.Name == wasmbuild.ToolName && e.Version == wasmbuild.Version {
			found = true
		}
	}
	if !found {
		t.Fatalf("processed-by entry missing: %+v", p.ProcessedBy)
	}
}

func TestEncodeEmbedsTarget(t *testing.T) {
	rw, et := fixture(t)

	bin, err := Encode(Input{Core: fixtureCore(), World: rw, Target: et})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := wasm.ComponentCustom(bin, target.SectionName)
	if err != nil {
		t.Fatal(err)
	}
	reread, err := target.DecodeBytesHeader(payload)
	if err != nil {
		t.Fatal(err)
	}
	if reread.Fingerprint != et.Fingerprint {
		t.Fatal("embedded target fingerprint mismatch")
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	rw, et := fixture(t)

	in := Input{Core: fixtureCore(), World: rw, Target: et}
	a, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("encoding is not byte-identical across runs")
	}
}

func TestEncodeMissingWorldExport(t *testing.T) {
	rw, et := fixture(t)

	// Core lacks the interface function export.
	_, err := Encode(Input{Core: wasm.SynthModule("run"), World: rw, Target: et})
	if !stderrors.Is(err, errors.Match(errors.PhaseEncode, errors.KindEncoding)) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "host#greet") {
		t.Fatalf("error must name the missing export: %v", err)
	}
}

func TestEncodeRejectsNonCoreInput(t *testing.T) {
	rw, et := fixture(t)
	_, err := Encode(Input{Core: []byte("garbage"), World: rw, Target: et})
	if !stderrors.Is(err, errors.Match(errors.PhaseEncode, errors.KindEncoding)) {
		t.Fatalf("err = %v", err)
	}
}

func TestEncodeWithAdapter(t *testing.T) {
	rw, et := fixture(t)

	dir := t.TempDir()
	adapterPath := filepath.Join(dir, "adapter.wasm")
	if err := os.WriteFile(adapterPath, wasm.SynthModule("bridge"), 0o644); err != nil {
		t.Fatal(err)
	}
	adapter, err := LoadAdapter(adapterPath)
	if err != nil {
		t.Fatal(err)
	}

	bin, err := Encode(Input{Core: fixtureCore(), World: rw, Target: et, Adapter: adapter})
	if err != nil {
		t.Fatal(err)
	}
	if err := Validate(context.Background(), bin); err != nil {
		t.Fatal(err)
	}

	sections, err := wasm.ParseComponentSections(bin)
	if err != nil {
		t.Fatal(err)
	}
	modules := 0
	for _, s := range sections {
		if s.ID == wasm.ComponentSectionCoreModule {
			modules++
		}
	}
	if modules != 2 {
		t.Fatalf("core module sections = %d, want adapter + main", modules)
	}
}

func TestLoadAdapterMissing(t *testing.T) {
	_, err := LoadAdapter(filepath.Join(t.TempDir(), "absent.wasm"))
	if !stderrors.Is(err, errors.Match(errors.PhaseEncode, errors.KindAdapterRead)) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "failed to read module adapter") {
		t.Fatalf("diagnostic prefix missing: %v", err)
	}
}

func TestLoadAdapterRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adapter.wasm")
	if err := os.WriteFile(path, []byte("not wasm"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadAdapter(path)
	if !stderrors.Is(err, errors.Match(errors.PhaseEncode, errors.KindAdapterRead)) {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateRejectsCorruptModule(t *testing.T) {
	w := wasm.NewWriter()
	w.Raw(wasm.ComponentHeader())
	w.Raw(wasm.Section(wasm.ComponentSectionCoreModule, []byte("broken")))

	err := Validate(context.Background(), w.Bytes())
	if !stderrors.Is(err, errors.Match(errors.PhaseValidate, errors.KindValidation)) {
		t.Fatalf("err = %v", err)
	}
}

func TestProducersRoundTrip(t *testing.T) {
	p := Producers{
		Language:    []VersionedName{{Name: "rust", Version: "1.82.0"}},
		ProcessedBy: []VersionedName{{Name: wasmbuild.ToolName, Version: "0.0.1"}},
	}
	p.Stamp() // replaces the stale version in place
	if len(p.ProcessedBy) != 1 || p.ProcessedBy[0].Version != wasmbuild.Version {
		t.Fatalf("stamp did not replace: %+v", p.ProcessedBy)
	}

	reread, err := ParseProducers(p.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if len(reread.Language) != 1 || reread.Language[0].Name != "rust" {
		t.Fatalf("language lost: %+v", reread)
	}
}
