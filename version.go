package wasmbuild

// Tool identity stamped into the producers custom section of every
// component this library encodes. The pair must stay stable for a release:
// artifacts are compared byte-for-byte across runs.
const (
	// ToolName is the producers "processed-by" field name.
	ToolName = "wasm-build"

	// Version is the tool version recorded alongside ToolName.
	Version = "0.7.0"
)
