package wasm

// WebAssembly binary format magic number and versions.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// CoreVersion is the core module binary format version.
	CoreVersion uint32 = 0x01

	// ComponentVersion is the component binary version word: version 0x0d
	// in the low half, layer 0x01 in the high half.
	ComponentVersion uint32 = 0x0001000d
)

// Core module section IDs. Sections must appear in increasing order by ID,
// except custom sections which can appear anywhere.
const (
	SectionCustom    byte = 0
	SectionType      byte = 1
	SectionImport    byte = 2
	SectionFunction  byte = 3
	SectionTable     byte = 4
	SectionMemory    byte = 5
	SectionGlobal    byte = 6
	SectionExport    byte = 7
	SectionStart     byte = 8
	SectionElement   byte = 9
	SectionCode      byte = 10
	SectionData      byte = 11
	SectionDataCount byte = 12
	SectionTag       byte = 13
)

// Component section IDs (the subset the encoder emits and the validator
// understands).
const (
	ComponentSectionCustom     byte = 0
	ComponentSectionCoreModule byte = 1
	ComponentSectionCoreInst   byte = 2
	ComponentSectionComponent  byte = 4
	ComponentSectionExport     byte = 11
)

// Export descriptor kinds for core modules.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
)
