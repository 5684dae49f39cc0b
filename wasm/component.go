package wasm

import "fmt"

// ComponentSection is one raw section of a component binary.
type ComponentSection struct {
	ID      byte
	Payload []byte
}

// ParseComponentSections verifies the component header and splits the body
// into raw sections without interpreting their payloads.
func ParseComponentSections(data []byte) ([]ComponentSection, error) {
	if !IsComponent(data) {
		return nil, fmt.Errorf("not a component binary")
	}
	r := NewReader(data[8:])
	var out []ComponentSection
	for r.Len() > 0 {
		id, err := r.Byte()
		if err != nil {
			return nil, err
		}
		size, err := r.Uint()
		if err != nil {
			return nil, err
		}
		payload, err := r.Bytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}
		out = append(out, ComponentSection{ID: id, Payload: payload})
	}
	return out, nil
}

// ComponentCustom returns the payload of the named custom section of a
// component binary, or nil when absent.
func ComponentCustom(data []byte, name string) ([]byte, error) {
	sections, err := ParseComponentSections(data)
	if err != nil {
		return nil, err
	}
	for _, s := range sections {
		if s.ID != ComponentSectionCustom {
			continue
		}
		r := NewReader(s.Payload)
		got, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		if got == name {
			rest, err := r.Bytes(r.Len())
			if err != nil {
				return nil, err
			}
			return rest, nil
		}
	}
	return nil, nil
}
