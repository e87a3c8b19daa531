package registry

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"dialogd/internal/engine"
	"dialogd/pkg/types"
)

// Entry is one loaded model: its handle plus the gate serializing access
// to it. Entries are created during Initialize and are immutable until
// Shutdown.
type Entry struct {
	ID     string
	Task   types.TaskTag
	Path   string
	Handle engine.ModelHandle
	gate   *Gate
}

// Gate returns the entry's request gate.
func (e *Entry) Gate() *Gate { return e.gate }

// Registry owns the configured set of models for the life of the process:
// it loads them exactly once, routes lookups by task tag, and disposes the
// handles on Shutdown.
type Registry struct {
	eng    engine.Engine
	params engine.Params
	log    zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string // config order, for first-match task lookup
	// initDone is non-nil once an initialization has been claimed; it is
	// closed when that initialization finishes. Late callers wait on it
	// instead of re-triggering the load.
	initDone chan struct{}
	initErr  error
	shutdown bool
}

func New(eng engine.Engine, params engine.Params, log zerolog.Logger) *Registry {
	return &Registry{
		eng:     eng,
		params:  params,
		log:     log,
		entries: make(map[string]*Entry),
	}
}

// Initialize loads every configured model exactly once. It is idempotent:
// concurrent callers before the first completion await the same in-flight
// initialization, and later calls return its recorded outcome. A failed
// individual load does not stop the remaining models from loading; the
// first failure is reported as a ModelLoadError.
func (r *Registry) Initialize(ctx context.Context, configs []types.ModelConfig) error {
	r.mu.Lock()
	if r.initDone != nil {
		done := r.initDone
		r.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.initErr
	}
	done := make(chan struct{})
	r.initDone = done
	r.mu.Unlock()

	err := r.load(configs)

	r.mu.Lock()
	r.initErr = err
	r.mu.Unlock()
	close(done)
	return err
}

func (r *Registry) load(configs []types.ModelConfig) error {
	if len(configs) == 0 {
		return ErrNoConfiguration()
	}
	var firstErr error
	for _, cfg := range configs {
		task := cfg.Task
		if task == "" {
			task = types.TaskUnknown
		}
		r.mu.RLock()
		_, dup := r.entries[cfg.ID]
		r.mu.RUnlock()
		if dup {
			r.log.Warn().Str("model", cfg.ID).Msg("duplicate model id in configuration, ignoring")
			continue
		}
		handle, err := r.eng.LoadModel(cfg.Path, r.params)
		if err != nil {
			r.log.Error().Err(err).Str("model", cfg.ID).Msg("model load failed")
			if firstErr == nil {
				firstErr = ModelLoadError{ModelID: cfg.ID, Err: err}
			}
			continue
		}
		r.mu.Lock()
		r.entries[cfg.ID] = &Entry{
			ID:     cfg.ID,
			Task:   task,
			Path:   cfg.Path,
			Handle: handle,
			gate:   newGate(),
		}
		r.order = append(r.order, cfg.ID)
		r.mu.Unlock()
		r.log.Info().Str("model", cfg.ID).Str("task", string(task)).Msg("model loaded")
	}
	return firstErr
}

// Ready reports whether initialization has completed and a model capable
// of serving text generation is present.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.shutdown || r.initDone == nil {
		return false
	}
	select {
	case <-r.initDone:
	default:
		return false
	}
	_, ok := r.findLocked(types.TaskTextGeneration)
	return ok
}

// FindByTask returns the first configured entry matching the tag.
func (r *Registry) FindByTask(tag types.TaskTag) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(tag)
}

func (r *Registry) findLocked(tag types.TaskTag) (*Entry, bool) {
	for _, id := range r.order {
		if e := r.entries[id]; e != nil && e.Task == tag {
			return e, true
		}
	}
	// Legacy single-model fallback: when exactly one model is loaded, it
	// answers text-generation-class lookups regardless of its own tag.
	// Deliberately narrow; see DESIGN.md before widening the criteria.
	if len(r.entries) == 1 && isTextGenerationClass(tag) {
		for _, e := range r.entries {
			return e, true
		}
	}
	return nil, false
}

// isTextGenerationClass reports whether the tag asks for a chat/completion
// style model, including the aliases older callers used.
func isTextGenerationClass(tag types.TaskTag) bool {
	switch string(tag) {
	case string(types.TaskTextGeneration), "llm", "text-gen":
		return true
	}
	return false
}

// Get returns the entry with the given model id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Models lists the loaded models in configuration order.
func (r *Registry) Models() []types.ModelConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ModelConfig, 0, len(r.order))
	for _, id := range r.order {
		if e := r.entries[id]; e != nil {
			out = append(out, types.ModelConfig{ID: e.ID, Task: e.Task, Path: e.Path})
		}
	}
	return out
}

// Statuses reports each loaded model and whether its gate is held.
func (r *Registry) Statuses() []types.ModelStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ModelStatus, 0, len(r.order))
	for _, id := range r.order {
		if e := r.entries[id]; e != nil {
			out = append(out, types.ModelStatus{ID: e.ID, Task: e.Task, Busy: e.gate.Busy()})
		}
	}
	return out
}

// Shutdown releases every model handle and clears the registry. Each gate
// is drained first, so an in-flight call finishes before its handle's
// native resources are freed. Safe to call multiple times; blocks until
// every handle is closed.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return
	}
	r.shutdown = true
	closing := make([]*Entry, 0, len(r.order))
	for _, id := range r.order {
		if e := r.entries[id]; e != nil {
			closing = append(closing, e)
		}
	}
	r.entries = make(map[string]*Entry)
	r.order = nil
	r.mu.Unlock()

	for _, e := range closing {
		// Background context: Acquire cannot fail, only wait.
		release, _ := e.gate.Acquire(context.Background())
		if err := e.Handle.Close(); err != nil {
			r.log.Warn().Err(err).Str("model", e.ID).Msg("model close failed")
		}
		release()
	}
}
