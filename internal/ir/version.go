package ir

// Version constants for IR schema and the scheduler.
const (
	// IRVersion is the graph schema version.
	IRVersion = "1"

	// EngineVersion is the blocksched version.
	EngineVersion = "0.1.0"
)
