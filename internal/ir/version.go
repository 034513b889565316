package ir

// Version constants for the operation format and engine.
const (
	// OperationsVersion is the serialized operation format version. Journal
	// rows record it so replay can refuse operations it cannot decode.
	OperationsVersion = "1"

	// EngineVersion is the gridcore engine version.
	EngineVersion = "0.1.0"
)
