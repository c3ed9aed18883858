package ir

// OperatorKey identifies an operator by (executor, operation).
// Format for display: "executor.operation" (e.g. "catzilla.matmul").
type OperatorKey struct {
	Executor  string `json:"executor"`
	Operation string `json:"operation"`
}

// String returns the dotted display form.
func (k OperatorKey) String() string {
	return k.Executor + "." + k.Operation
}
