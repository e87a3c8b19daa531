package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"dialogd/internal/engine"
)

// instrEngine hands out instrumented handles so tests can observe call
// overlap per model.
type instrEngine struct {
	mu      sync.Mutex
	handles map[string]*instrHandle
	delay   time.Duration
}

func newInstrEngine(delay time.Duration) *instrEngine {
	return &instrEngine{handles: make(map[string]*instrHandle), delay: delay}
}

func (e *instrEngine) LoadModel(path string, params engine.Params) (engine.ModelHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := &instrHandle{delay: e.delay, reply: "echo"}
	e.handles[path] = h
	return h, nil
}

func (e *instrEngine) handle(path string) *instrHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handles[path]
}

// instrHandle records the number of concurrently running calls; the high
// water mark exceeding one means two [start,end) intervals intersected.
type instrHandle struct {
	delay    time.Duration
	reply    string
	tokens   []string
	fail     bool
	panicMsg string

	inflight    atomic.Int32
	maxInflight atomic.Int32
	calls       atomic.Int32
}

func (h *instrHandle) begin() {
	cur := h.inflight.Add(1)
	for {
		max := h.maxInflight.Load()
		if cur <= max || h.maxInflight.CompareAndSwap(max, cur) {
			break
		}
	}
	h.calls.Add(1)
}

func (h *instrHandle) end() { h.inflight.Add(-1) }

func (h *instrHandle) finish() (engine.RunResult, error) {
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	if h.fail {
		return engine.RunResult{}, errors.New("model exploded")
	}
	return engine.RunResult{Text: h.reply, FinishReason: "stop", LatencyMs: h.delay.Milliseconds()}, nil
}

func (h *instrHandle) Run(ctx context.Context, prompt string) (engine.RunResult, error) {
	h.begin()
	defer h.end()
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	return h.finish()
}

func (h *instrHandle) RunStreaming(ctx context.Context, prompt string, onToken func(string) error) (engine.RunResult, error) {
	h.begin()
	defer h.end()
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	full := ""
	for _, tok := range h.tokens {
		if err := onToken(tok); err != nil {
			return engine.RunResult{}, err
		}
		full += tok
	}
	res, err := h.finish()
	if err == nil && len(h.tokens) > 0 {
		res.Text = full
	}
	return res, err
}

func (h *instrHandle) Close() error { return nil }
