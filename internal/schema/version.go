package schema

// CurrentVersion is the structural contract entities are written under.
const CurrentVersion = "2.0.0"

// VersionProperty is the private property holding an entity's schema version.
const VersionProperty = "_schemaVersion"

// Unversioned denotes entities written before version tags existed.
const Unversioned = ""
