package ir

// ToolVersion is the quark version reported by --version.
const ToolVersion = "0.1.0"
