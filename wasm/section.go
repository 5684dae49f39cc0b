package wasm

// Section frames a section payload: id byte, LEB128 size, payload. The
// framing is shared by core modules and components.
func Section(id byte, payload []byte) []byte {
	w := NewWriter()
	w.Byte(id)
	w.Uint(uint64(len(payload)))
	w.Raw(payload)
	return w.Bytes()
}

// CustomSection frames a custom section with the given name and payload.
func CustomSection(name string, payload []byte) []byte {
	w := NewWriter()
	w.Name(name)
	w.Raw(payload)
	return Section(SectionCustom, w.Bytes())
}

// CoreHeader returns the core module preamble.
func CoreHeader() []byte {
	w := NewWriter()
	w.Fixed32(Magic)
	w.Fixed32(CoreVersion)
	return w.Bytes()
}

// ComponentHeader returns the component preamble (version 0x0d, layer 1).
func ComponentHeader() []byte {
	w := NewWriter()
	w.Fixed32(Magic)
	w.Fixed32(ComponentVersion)
	return w.Bytes()
}

// IsCoreModule reports whether data starts with a core module preamble.
func IsCoreModule(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	r := NewReader(data)
	magic, _ := r.Fixed32()
	version, _ := r.Fixed32()
	return magic == Magic && version == CoreVersion
}

// IsComponent reports whether data starts with a component preamble.
func IsComponent(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	r := NewReader(data)
	magic, _ := r.Fixed32()
	version, _ := r.Fixed32()
	return magic == Magic && version == ComponentVersion
}
