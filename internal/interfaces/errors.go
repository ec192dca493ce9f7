package interfaces

import "errors"

// Sentinel errors shared across services. Callers match with errors.Is;
// services wrap these with context via fmt.Errorf("...: %w", err).
var (
	// ErrNotFound indicates a requested record does not exist in storage.
	ErrNotFound = errors.New("record not found")

	// ErrKeyNotFound indicates a key/value lookup miss.
	ErrKeyNotFound = errors.New("key not found")

	// ErrDimensionMismatch indicates a vector's length does not match the
	// index's configured dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrArityMismatch indicates the vectors and ids passed to an index
	// mutation have different lengths.
	ErrArityMismatch = errors.New("vectors/ids arity mismatch")

	// ErrInvalidArgument indicates invalid caller input, such as k <= 0 on a
	// similarity search.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownTool indicates the model requested a tool name that is not
	// registered. Logged and skipped, never fatal to a conversation turn.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrMalformedToolArguments indicates tool arguments from the model
	// failed to parse or validate.
	ErrMalformedToolArguments = errors.New("malformed tool arguments")

	// ErrMissingFormStructure indicates a form fill was requested against a
	// document with no recorded field layout. Surfaced as a hard failure.
	ErrMissingFormStructure = errors.New("form field structure not found")
)
