package engine

import "context"

// Engine abstracts the neural inference runtime. Concrete implementations
// (llama.cpp in-process, or a fake in tests) load model files and hand back
// opaque handles. The runtime is not assumed reentrant; callers serialize
// access per handle.
type Engine interface {
	// LoadModel loads the model file at path and returns a live handle.
	LoadModel(path string, params Params) (ModelHandle, error)
}

// ModelHandle is one loaded model. Run and RunStreaming are blocking and
// must not be invoked concurrently on the same handle.
type ModelHandle interface {
	// Run performs a full inference and returns the complete output.
	Run(ctx context.Context, prompt string) (RunResult, error)
	// RunStreaming performs an inference, invoking onToken for each token
	// in generation order before returning the final result. Returning an
	// error from onToken stops generation.
	RunStreaming(ctx context.Context, prompt string, onToken func(string) error) (RunResult, error)
	// Close releases the model's native resources.
	Close() error
}

// Params captures generation parameters applied to every request on a handle.
type Params struct {
	CtxSize       int
	Threads       int
	MaxTokens     int
	Temperature   float32
	TopP          float32
	TopK          int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// RunResult summarizes a finished generation.
type RunResult struct {
	Text         string
	FinishReason string
	LatencyMs    int64
}

// LlamaBuilt reports whether this binary carries the real llama.cpp
// backend ('llama' build tag) or the fail-fast stub.
func LlamaBuilt() bool { return llamaBuilt }

// unavailableError signals that the inference runtime is missing from this
// build or installation, as opposed to a per-request failure.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an engine-unavailable error.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing inference runtime.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
