package registry

// initializationError signals that Initialize was called with no model
// configuration at all. Fatal: the caller must not proceed to inference.
type initializationError struct{}

func (initializationError) Error() string { return "no model configuration provided" }

// ErrNoConfiguration constructs an initialization error.
func ErrNoConfiguration() error { return initializationError{} }

// IsInitializationError reports whether err indicates an empty configuration.
func IsInitializationError(err error) bool {
	_, ok := err.(initializationError)
	return ok
}

// ModelLoadError reports a single model that failed to load. Non-fatal:
// other models from the same configuration may still be serving.
type ModelLoadError struct {
	ModelID string
	Err     error
}

func (e ModelLoadError) Error() string { return "load model " + e.ModelID + ": " + e.Err.Error() }

func (e ModelLoadError) Unwrap() error { return e.Err }

// IsModelLoadError reports whether err is a per-model load failure.
func IsModelLoadError(err error) bool {
	_, ok := err.(ModelLoadError)
	return ok
}
