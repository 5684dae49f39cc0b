package wasm

import (
	"fmt"
)

// Export is a single entry of a core module's export section.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Custom is a named custom section payload.
type Custom struct {
	Name    string
	Payload []byte
}

// Module is the light structural view of a core module the build pipeline
// works with. Only exports and custom sections are materialized; every other
// section is length-checked and skipped.
type Module struct {
	Exports        []Export
	CustomSections []Custom
}

// ExportedFuncs returns the names of all function exports.
func (m *Module) ExportedFuncs() []string {
	var names []string
	for _, e := range m.Exports {
		if e.Kind == KindFunc {
			names = append(names, e.Name)
		}
	}
	return names
}

// HasFuncExport reports whether the module exports a function named name.
func (m *Module) HasFuncExport(name string) bool {
	for _, e := range m.Exports {
		if e.Kind == KindFunc && e.Name == name {
			return true
		}
	}
	return false
}

// Custom returns the payload of the named custom section, or nil.
func (m *Module) Custom(name string) []byte {
	for _, c := range m.CustomSections {
		if c.Name == name {
			return c.Payload
		}
	}
	return nil
}

// sectionRank maps each known non-custom section id to its mandated
// position in the binary. Ranks differ from raw ids: the datacount section
// (12) sits between element and code, and the tag section (13) between
// memory and global.
var sectionRank = map[byte]int{
	SectionType:      1,
	SectionImport:    2,
	SectionFunction:  3,
	SectionTable:     4,
	SectionMemory:    5,
	SectionTag:       6,
	SectionGlobal:    7,
	SectionExport:    8,
	SectionStart:     9,
	SectionElement:   10,
	SectionDataCount: 11,
	SectionCode:      12,
	SectionData:      13,
}

// ParseModule walks the sections of a core module binary, materializing
// exports and custom sections. Well-framed sections this parser does not
// know are skipped, so modules from newer toolchains still parse.
func ParseModule(data []byte) (*Module, error) {
	if !IsCoreModule(data) {
		return nil, fmt.Errorf("not a core wasm module")
	}

	m := &Module{}
	r := NewReader(data[8:])
	lastRank := 0

	for r.Len() > 0 {
		id, err := r.Byte()
		if err != nil {
			return nil, err
		}
		if rank, known := sectionRank[id]; known {
			if rank <= lastRank {
				return nil, fmt.Errorf("section %d appears out of order", id)
			}
			lastRank = rank
		}

		size, err := r.Uint()
		if err != nil {
			return nil, fmt.Errorf("section %d size: %w", id, err)
		}
		payload, err := r.Bytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}

		switch id {
		case SectionCustom:
			c, err := parseCustom(payload)
			if err != nil {
				return nil, fmt.Errorf("custom section: %w", err)
			}
			m.CustomSections = append(m.CustomSections, c)
		case SectionExport:
			if err := parseExports(payload, m); err != nil {
				return nil, fmt.Errorf("export section: %w", err)
			}
		}
	}

	return m, nil
}

func parseCustom(payload []byte) (Custom, error) {
	r := NewReader(payload)
	name, err := r.ReadName()
	if err != nil {
		return Custom{}, err
	}
	rest, err := r.Bytes(r.Len())
	if err != nil {
		return Custom{}, err
	}
	return Custom{Name: name, Payload: rest}, nil
}

func parseExports(payload []byte, m *Module) error {
	r := NewReader(payload)
	count, err := r.Uint()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadName()
		if err != nil {
			return fmt.Errorf("export %d name: %w", i, err)
		}
		kind, err := r.Byte()
		if err != nil {
			return fmt.Errorf("export %d kind: %w", i, err)
		}
		if kind > KindGlobal {
			return fmt.Errorf("export %q: invalid kind %d", name, kind)
		}
		idx, err := r.Uint()
		if err != nil {
			return fmt.Errorf("export %d index: %w", i, err)
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Idx: idx})
	}
	return nil
}

// AppendCustom returns binary with a custom section appended. The input may
// be a core module or a component; the framing is identical.
func AppendCustom(binary []byte, name string, payload []byte) []byte {
	out := make([]byte, 0, len(binary)+len(name)+len(payload)+16)
	out = append(out, binary...)
	return append(out, CustomSection(name, payload)...)
}
