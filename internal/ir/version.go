package ir

// Version constants for the resolved model and engine.
const (
	// IRVersion is the resolved composition schema version.
	IRVersion = "1"

	// EngineVersion is the scenecast engine version.
	EngineVersion = "0.1.0"
)
