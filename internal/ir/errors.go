package ir

// ErrorCode categorizes parse, codec and dispatch failures.
// Codes are shared across layers so a codec failure keeps its code
// as it propagates through the parser and dispatcher.
type ErrorCode string

// Codec and parser codes.
const (
	// ErrCodeArityMismatch indicates token count != signature length.
	ErrCodeArityMismatch ErrorCode = "ARITY_MISMATCH"

	// ErrCodeInvalidNumber indicates a malformed numeric literal.
	ErrCodeInvalidNumber ErrorCode = "INVALID_NUMBER"

	// ErrCodeIO indicates a file could not be opened, read or written.
	ErrCodeIO ErrorCode = "IO_ERROR"

	// ErrCodeSizeMismatch indicates a file size not divisible by element width.
	ErrCodeSizeMismatch ErrorCode = "SIZE_MISMATCH"

	// ErrCodeFormat indicates a structural payload of the wrong shape.
	ErrCodeFormat ErrorCode = "FORMAT_ERROR"

	// ErrCodeUnknownTypeTag indicates a signature tag the parser cannot interpret.
	ErrCodeUnknownTypeTag ErrorCode = "UNKNOWN_TYPE_TAG"
)

// Dispatcher codes.
const (
	// ErrCodeUnknownExecutor indicates no operator is registered under the executor.
	ErrCodeUnknownExecutor ErrorCode = "UNKNOWN_EXECUTOR"

	// ErrCodeUnknownOperator indicates the executor exists but the operation does not.
	ErrCodeUnknownOperator ErrorCode = "UNKNOWN_OPERATOR"

	// ErrCodeArgument wraps any parse failure.
	ErrCodeArgument ErrorCode = "ARGUMENT_ERROR"

	// ErrCodeHandlerFailed indicates the handler returned an error or panicked.
	ErrCodeHandlerFailed ErrorCode = "HANDLER_FAILED"

	// ErrCodeCommitFailed indicates an output buffer could not be written back.
	ErrCodeCommitFailed ErrorCode = "COMMIT_FAILED"
)
