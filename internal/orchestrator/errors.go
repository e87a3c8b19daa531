package orchestrator

// notReadyError signals that inference was attempted before the registry
// finished initializing, or after a fatal init failure. Recoverable: the
// caller should fall back to a non-AI path or retry after initialization.
type notReadyError struct{}

func (notReadyError) Error() string { return "dialogue provider not ready" }

// ErrNotReady constructs a provider-not-ready error.
func ErrNotReady() error { return notReadyError{} }

// IsNotReady reports whether err indicates the provider isn't ready yet.
func IsNotReady(err error) bool {
	_, ok := err.(notReadyError)
	return ok
}

// inferenceError wraps a per-turn engine failure. Recoverable: the
// conversation context is untouched, so the same turn is safe to retry.
type inferenceError struct{ msg string }

func (e inferenceError) Error() string { return "inference failed: " + e.msg }

// ErrInference constructs a per-turn inference failure.
func ErrInference(msg string) error { return inferenceError{msg: msg} }

// IsInference reports whether err is a per-turn inference failure.
func IsInference(err error) bool {
	_, ok := err.(inferenceError)
	return ok
}
