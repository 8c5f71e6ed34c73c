package ir

// EngineVersion is the tlanislide engine version. Order hashes are
// versioned separately by their domain prefix.
const EngineVersion = "0.1.0"
