package wasm

// SynthModule builds a minimal valid core module exporting one nullary
// function per name. Used as a stand-in core module in tests and fixtures;
// the bodies are empty.
func SynthModule(exports ...string) []byte {
	w := NewWriter()
	w.Raw(CoreHeader())

	// Type section: a single () -> () signature
	sec := NewWriter()
	sec.Uint(1)
	sec.Byte(0x60) // func type
	sec.Uint(0)    // params
	sec.Uint(0)    // results
	w.Raw(Section(SectionType, sec.Bytes()))

	// Function section: every function uses type 0
	sec = NewWriter()
	sec.Uint(uint64(len(exports)))
	for range exports {
		sec.Uint(0)
	}
	w.Raw(Section(SectionFunction, sec.Bytes()))

	// Export section
	sec = NewWriter()
	sec.Uint(uint64(len(exports)))
	for i, name := range exports {
		sec.Name(name)
		sec.Byte(KindFunc)
		sec.Uint(uint64(i))
	}
	w.Raw(Section(SectionExport, sec.Bytes()))

	// Code section: empty bodies
	sec = NewWriter()
	sec.Uint(uint64(len(exports)))
	for range exports {
		body := NewWriter()
		body.Uint(0)     // no locals
		body.Byte(0x0b)  // end
		sec.Uint(uint64(body.Len()))
		sec.Raw(body.Bytes())
	}
	w.Raw(Section(SectionCode, sec.Bytes()))

	return w.Bytes()
}
