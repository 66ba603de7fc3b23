package exitcodes

// Exit codes for shred-sage
// These codes form the operational contract with scripts and operators
const (
	Success         = 0 // Successful execution
	InvalidConfig   = 2 // Configuration file invalid or missing
	SafetyViolation = 3 // Safety validator refused a target
	RuntimeError    = 4 // Erasure or I/O failure during execution
	InvalidTarget   = 5 // Empty path, missing target or wrong object type
)
