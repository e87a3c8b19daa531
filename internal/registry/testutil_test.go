package registry

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"dialogd/internal/engine"
)

// fakeEngine is an in-memory engine for tests. Paths containing "bad"
// fail to load; loadDelay simulates slow weight loading.
type fakeEngine struct {
	loads     atomic.Int32
	loadDelay time.Duration
}

func (f *fakeEngine) LoadModel(path string, params engine.Params) (engine.ModelHandle, error) {
	if f.loadDelay > 0 {
		time.Sleep(f.loadDelay)
	}
	f.loads.Add(1)
	if strings.Contains(path, "bad") {
		return nil, errors.New("corrupt weights")
	}
	return &fakeHandle{path: path}, nil
}

type fakeHandle struct {
	path   string
	closed atomic.Int32
}

func (h *fakeHandle) Run(ctx context.Context, prompt string) (engine.RunResult, error) {
	return engine.RunResult{Text: "echo: " + prompt, FinishReason: "stop", LatencyMs: 1}, nil
}

func (h *fakeHandle) RunStreaming(ctx context.Context, prompt string, onToken func(string) error) (engine.RunResult, error) {
	for _, tok := range strings.Fields(prompt) {
		if err := onToken(tok); err != nil {
			return engine.RunResult{}, err
		}
	}
	return engine.RunResult{Text: "echo: " + prompt, FinishReason: "stop", LatencyMs: 1}, nil
}

func (h *fakeHandle) Close() error {
	h.closed.Add(1)
	return nil
}
