//go:build !llama

package engine

// This file provides a no-CGO stub compiled when the 'llama' build tag is
// NOT set, keeping default builds and CI CGO-free. The stub refuses to load
// models rather than faking inference in production binaries.

import "context"

var llamaBuilt = false

type llamaEngine struct{}

// NewLlama returns the llama.cpp engine. Without the 'llama' build tag it
// fails fast on LoadModel.
func NewLlama() Engine { return &llamaEngine{} }

func (e *llamaEngine) LoadModel(path string, params Params) (ModelHandle, error) {
	return nil, ErrUnavailable("llama support not built (missing 'llama' build tag)")
}

type llamaHandle struct{}

func (h *llamaHandle) Run(ctx context.Context, prompt string) (RunResult, error) {
	// Unreachable in practice: LoadModel never yields a stub handle.
	return RunResult{}, ErrUnavailable("llama support not built (missing 'llama' build tag)")
}

func (h *llamaHandle) RunStreaming(ctx context.Context, prompt string, onToken func(string) error) (RunResult, error) {
	return RunResult{}, ErrUnavailable("llama support not built (missing 'llama' build tag)")
}

func (h *llamaHandle) Close() error { return nil }
