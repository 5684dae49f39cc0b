package component

import (
	"fmt"

	wasmbuild "github.com/wippyai/wasm-build"
	"github.com/wippyai/wasm-build/wasm"
)

// ProducersSection is the conventional name of the producers custom section.
const ProducersSection = "producers"

// VersionedName is one producers entry: a tool or language and its version.
type VersionedName struct {
	Name    string
	Version string
}

// Producers is the producers custom section content. Fields are emitted in
// a fixed order (language, processed-by, sdk) so encoding is deterministic.
type Producers struct {
	Language    []VersionedName
	ProcessedBy []VersionedName
	SDK         []VersionedName
}

// Stamp records this tool in processed-by, replacing any prior entry with
// the same name.
func (p *Producers) Stamp() {
	for i, v := range p.ProcessedBy {
		if v.Name == wasmbuild.ToolName {
			p.ProcessedBy[i].Version = wasmbuild.Version
			return
		}
	}
	p.ProcessedBy = append(p.ProcessedBy, VersionedName{
		Name:    wasmbuild.ToolName,
		Version: wasmbuild.Version,
	})
}

// Encode renders the producers section payload.
func (p *Producers) Encode() []byte {
	type field struct {
		name    string
		entries []VersionedName
	}
	fields := make([]field, 0, 3)
	for _, f := range []field{
		{"language", p.Language},
		{"processed-by", p.ProcessedBy},
		{"sdk", p.SDK},
	} {
		if len(f.entries) > 0 {
			fields = append(fields, f)
		}
	}

	w := wasm.NewWriter()
	w.Uint(uint64(len(fields)))
	for _, f := range fields {
		w.Name(f.name)
		w.Uint(uint64(len(f.entries)))
		for _, e := range f.entries {
			w.Name(e.Name)
			w.Name(e.Version)
		}
	}
	return w.Bytes()
}

// ParseProducers decodes a producers section payload.
func ParseProducers(payload []byte) (*Producers, error) {
	r := wasm.NewReader(payload)
	count, err := r.Uint()
	if err != nil {
		return nil, err
	}
	p := &Producers{}
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		n, err := r.Uint()
		if err != nil {
			return nil, err
		}
		entries := make([]VersionedName, 0, n)
		for j := uint32(0); j < n; j++ {
			var e VersionedName
			if e.Name, err = r.ReadName(); err != nil {
				return nil, err
			}
			if e.Version, err = r.ReadName(); err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
		switch name {
		case "language":
			p.Language = entries
		case "processed-by":
			p.ProcessedBy = entries
		case "sdk":
			p.SDK = entries
		default:
			return nil, fmt.Errorf("unknown producers field %q", name)
		}
	}
	return p, nil
}
