package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dialogd/internal/engine"
	"dialogd/pkg/types"
)

func newTestRegistry(eng engine.Engine) *Registry {
	return New(eng, engine.Params{}, zerolog.Nop())
}

func TestInitializeEmptyConfiguration(t *testing.T) {
	r := newTestRegistry(&fakeEngine{})
	err := r.Initialize(context.Background(), nil)
	if err == nil || !IsInitializationError(err) {
		t.Fatalf("expected initialization error, got %v", err)
	}
	if r.Ready() {
		t.Fatalf("registry must not be ready")
	}
}

func TestInitializeAndLookup(t *testing.T) {
	r := newTestRegistry(&fakeEngine{})
	configs := []types.ModelConfig{
		{ID: "chat-a", Task: types.TaskTextGeneration, Path: "/m/a.gguf"},
		{ID: "chat-b", Task: types.TaskTextGeneration, Path: "/m/b.gguf"},
		{ID: "voice", Task: types.TaskTextToSpeech, Path: "/m/v.gguf"},
	}
	if err := r.Initialize(context.Background(), configs); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !r.Ready() {
		t.Fatalf("expected ready")
	}
	// First configured match wins.
	e, ok := r.FindByTask(types.TaskTextGeneration)
	if !ok || e.ID != "chat-a" {
		t.Fatalf("got %+v ok=%v, want chat-a", e, ok)
	}
	e, ok = r.FindByTask(types.TaskTextToSpeech)
	if !ok || e.ID != "voice" {
		t.Fatalf("got %+v ok=%v, want voice", e, ok)
	}
	if _, ok := r.Get("chat-b"); !ok {
		t.Fatalf("expected chat-b present")
	}
	if _, ok := r.Get("nope"); ok {
		t.Fatalf("expected not-found for unknown id")
	}
}

func TestPartialLoadFailure(t *testing.T) {
	r := newTestRegistry(&fakeEngine{})
	configs := []types.ModelConfig{
		{ID: "broken", Task: types.TaskTextGeneration, Path: "/m/bad.gguf"},
		{ID: "chat", Task: types.TaskTextGeneration, Path: "/m/good.gguf"},
	}
	err := r.Initialize(context.Background(), configs)
	if err == nil || !IsModelLoadError(err) {
		t.Fatalf("expected model load error, got %v", err)
	}
	if mlErr, ok := err.(ModelLoadError); !ok || mlErr.ModelID != "broken" {
		t.Fatalf("load error should carry the failing id, got %v", err)
	}
	// The surviving model still serves.
	if !r.Ready() {
		t.Fatalf("expected partial readiness")
	}
	if e, ok := r.FindByTask(types.TaskTextGeneration); !ok || e.ID != "chat" {
		t.Fatalf("expected chat to serve, got %+v ok=%v", e, ok)
	}
}

func TestAllLoadsFailNotReady(t *testing.T) {
	r := newTestRegistry(&fakeEngine{})
	configs := []types.ModelConfig{
		{ID: "broken", Task: types.TaskTextGeneration, Path: "/m/bad.gguf"},
	}
	if err := r.Initialize(context.Background(), configs); err == nil {
		t.Fatalf("expected error")
	}
	if r.Ready() {
		t.Fatalf("registry must not be ready with zero loaded models")
	}
}

func TestLegacySingleModelFallback(t *testing.T) {
	r := newTestRegistry(&fakeEngine{})
	configs := []types.ModelConfig{
		{ID: "mystery", Task: types.TaskUnknown, Path: "/m/x.gguf"},
	}
	if err := r.Initialize(context.Background(), configs); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	// A lone loaded model answers text-generation-class lookups whatever
	// its own tag says.
	if e, ok := r.FindByTask(types.TaskTag("llm")); !ok || e.ID != "mystery" {
		t.Fatalf("fallback did not trigger: %+v ok=%v", e, ok)
	}
	if e, ok := r.FindByTask(types.TaskTextGeneration); !ok || e.ID != "mystery" {
		t.Fatalf("fallback did not trigger for text-generation: %+v ok=%v", e, ok)
	}
	// Non-generation tags never fall back.
	if _, ok := r.FindByTask(types.TaskTextToSpeech); ok {
		t.Fatalf("fallback must not apply to text-to-speech")
	}
}

func TestNoFallbackWithMultipleModels(t *testing.T) {
	r := newTestRegistry(&fakeEngine{})
	configs := []types.ModelConfig{
		{ID: "one", Task: types.TaskUnknown, Path: "/m/1.gguf"},
		{ID: "two", Task: types.TaskUnknown, Path: "/m/2.gguf"},
	}
	if err := r.Initialize(context.Background(), configs); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, ok := r.FindByTask(types.TaskTag("llm")); ok {
		t.Fatalf("fallback must require exactly one loaded model")
	}
}

func TestConcurrentInitializeSharesOneLoad(t *testing.T) {
	eng := &fakeEngine{loadDelay: 30 * time.Millisecond}
	r := newTestRegistry(eng)
	configs := []types.ModelConfig{
		{ID: "chat", Task: types.TaskTextGeneration, Path: "/m/a.gguf"},
	}
	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Initialize(context.Background(), configs)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("initialize %d: %v", i, err)
		}
	}
	if n := eng.loads.Load(); n != 1 {
		t.Fatalf("model loaded %d times, want 1", n)
	}
	// A later call with different configs is a no-op returning the
	// recorded outcome.
	if err := r.Initialize(context.Background(), nil); err != nil {
		t.Fatalf("re-initialize: %v", err)
	}
	if n := eng.loads.Load(); n != 1 {
		t.Fatalf("re-initialize triggered a load")
	}
}

func TestShutdownClosesHandlesAndIsIdempotent(t *testing.T) {
	eng := &fakeEngine{}
	r := newTestRegistry(eng)
	configs := []types.ModelConfig{
		{ID: "chat", Task: types.TaskTextGeneration, Path: "/m/a.gguf"},
	}
	if err := r.Initialize(context.Background(), configs); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	e, _ := r.Get("chat")
	h := e.Handle.(*fakeHandle)
	r.Shutdown()
	r.Shutdown()
	if n := h.closed.Load(); n != 1 {
		t.Fatalf("handle closed %d times, want 1", n)
	}
	if r.Ready() {
		t.Fatalf("registry must not be ready after shutdown")
	}
	if _, ok := r.Get("chat"); ok {
		t.Fatalf("entries must be cleared on shutdown")
	}
}

func TestShutdownWaitsForBusyGate(t *testing.T) {
	r := newTestRegistry(&fakeEngine{})
	configs := []types.ModelConfig{
		{ID: "chat", Task: types.TaskTextGeneration, Path: "/m/a.gguf"},
	}
	if err := r.Initialize(context.Background(), configs); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	e, _ := r.Get("chat")
	h := e.Handle.(*fakeHandle)

	release, err := e.Gate().Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(50 * time.Millisecond)
		// Still mid-inference: the handle must not have been closed.
		if n := h.closed.Load(); n != 0 {
			t.Errorf("handle closed %d times while its gate was held", n)
		}
		release()
	}()

	r.Shutdown()
	<-done
	if n := h.closed.Load(); n != 1 {
		t.Fatalf("handle closed %d times after shutdown, want 1", n)
	}
	if r.Ready() {
		t.Fatalf("registry must not be ready after shutdown")
	}
}

func TestStatusesReportBusyGates(t *testing.T) {
	r := newTestRegistry(&fakeEngine{})
	configs := []types.ModelConfig{
		{ID: "chat", Task: types.TaskTextGeneration, Path: "/m/a.gguf"},
	}
	if err := r.Initialize(context.Background(), configs); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	st := r.Statuses()
	if len(st) != 1 || st[0].Busy {
		t.Fatalf("unexpected statuses: %+v", st)
	}
	e, _ := r.Get("chat")
	release, err := e.Gate().Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if st := r.Statuses(); !st[0].Busy {
		t.Fatalf("expected busy gate in statuses")
	}
	release()
	if st := r.Statuses(); st[0].Busy {
		t.Fatalf("expected idle gate after release")
	}
}
