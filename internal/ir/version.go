package ir

// Version constants for the catalog schema and engine.
const (
	// CatalogVersion is the catalog schema version.
	CatalogVersion = "1"

	// EngineVersion is the composition engine version.
	EngineVersion = "0.1.0"
)
