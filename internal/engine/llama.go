//go:build llama

package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaEngine loads models in-process via go-llama.cpp.
type llamaEngine struct{}

// NewLlama returns the in-process llama.cpp engine.
func NewLlama() Engine { return &llamaEngine{} }

// llamaHandle owns one loaded model.
type llamaHandle struct {
	model  *llama.LLama
	params Params
}

func (e *llamaEngine) LoadModel(path string, params Params) (ModelHandle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{
		llama.SetContext(zn(params.CtxSize, 2048)),
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaHandle{model: m, params: params}, nil
}

func (h *llamaHandle) Run(ctx context.Context, prompt string) (RunResult, error) {
	return h.generate(ctx, prompt, nil)
}

func (h *llamaHandle) RunStreaming(ctx context.Context, prompt string, onToken func(string) error) (RunResult, error) {
	return h.generate(ctx, prompt, onToken)
}

func (h *llamaHandle) generate(ctx context.Context, prompt string, onToken func(string) error) (RunResult, error) {
	if h.model == nil {
		return RunResult{}, errors.New("llama model not initialized")
	}
	// The callback is installed for every call so a previous streaming
	// request cannot leak its consumer into this one.
	h.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if onToken == nil {
			return true
		}
		return onToken(tok) == nil
	})
	start := time.Now()
	text, err := h.model.Predict(prompt, predictOptions(h.params)...)
	if err != nil {
		if ctx.Err() != nil {
			return RunResult{}, ctx.Err()
		}
		return RunResult{}, err
	}
	return RunResult{
		Text:         text,
		FinishReason: "stop",
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

func (h *llamaHandle) Close() error {
	if h.model != nil {
		h.model.Free()
		h.model = nil
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts Params into go-llama.cpp options.
func predictOptions(p Params) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(zn(p.MaxTokens, 256)),
		llama.SetThreads(zn(p.Threads, 4)),
		llama.SetTopP(zf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(p.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(p.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(p.Seed))
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
