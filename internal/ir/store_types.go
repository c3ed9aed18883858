package ir

// NOTE: These are store-internal types, not part of the argument model.
// Seq is an auto-increment ordering key assigned by the journal.

// DispatchRecord is one journaled dispatch outcome (store-layer).
type DispatchRecord struct {
	Seq       int64    `json:"seq"`        // Auto-increment (store ordering)
	ID        string   `json:"id"`         // UUIDv7 dispatch ID
	Executor  string   `json:"executor"`
	Operation string   `json:"operation"`
	Args      []string `json:"args"`       // Raw tokens as supplied
	State     string   `json:"state"`      // Terminal state: "committed" or "failed"
	ErrorCode string   `json:"error_code"` // Empty on success
	Message   string   `json:"message"`    // Empty on success
	ElapsedNS int64    `json:"elapsed_ns"` // Handler wall time only
}
