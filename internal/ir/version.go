package ir

// Version constants for the canonical model and toolchain.
const (
	// ModelVersion is the canonical model schema version.
	ModelVersion = "1"

	// ToolVersion is the anchorgo release version.
	ToolVersion = "0.1.0"
)
