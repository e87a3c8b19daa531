// Package orchestrator is the façade in front of the model registry: given
// a participant and new user input it assembles the prompt, serializes the
// model call through the per-model gate, normalizes the output, and keeps
// the participant's conversation context consistent with what was shown.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dialogd/internal/conversation"
	"dialogd/internal/engine"
	"dialogd/internal/normalize"
	"dialogd/internal/registry"
	"dialogd/pkg/types"
)

// FallbackLine is the user-visible text for a failed turn. Surfacing a
// constant lets UIs render "blank stare" behavior without inspecting the
// error, while the conversation stays safe to retry.
const FallbackLine = "The character stares at you blankly."

// Config carries the orchestrator's collaborators and knobs.
type Config struct {
	Registry   *registry.Registry
	Composer   PromptComposer
	MaxHistory int
	Logger     zerolog.Logger
}

// Orchestrator runs conversations. One instance per process; it exclusively
// owns the map of conversation contexts.
type Orchestrator struct {
	reg      *registry.Registry
	store    *conversation.Store
	composer PromptComposer
	maxHist  int
	log      zerolog.Logger
	start    time.Time
}

func New(cfg Config) *Orchestrator {
	composer := cfg.Composer
	if composer == nil {
		composer = FlattenComposer{}
	}
	return &Orchestrator{
		reg:      cfg.Registry,
		store:    conversation.NewStore(),
		composer: composer,
		maxHist:  cfg.MaxHistory,
		log:      cfg.Logger,
		start:    time.Now(),
	}
}

// Converse runs one turn for the participant. When onToken is non-nil the
// reply is streamed to it token by token, in generation order, before the
// final Result is returned. On any failure the participant's history is
// left exactly as it was, so the same turn can be retried.
//
// Callers must not run two turns for the same participant concurrently;
// turns for participants sharing one model are serialized by that model's
// gate.
func (o *Orchestrator) Converse(ctx context.Context, participantID string, identity types.Identity, world types.World, userInput string, onToken func(string)) (types.Result, error) {
	res := types.Result{
		RequestID:     uuid.NewString(),
		ParticipantID: participantID,
		Location:      types.LocationDevice,
	}
	if !o.reg.Ready() {
		return o.fail(res, ErrNotReady())
	}
	entry, ok := o.reg.FindByTask(types.TaskTextGeneration)
	if !ok {
		return o.fail(res, ErrNotReady())
	}
	res.ModelID = entry.ID

	cctx := o.store.GetOrCreate(participantID, func() string {
		return BuildSystemPrompt(identity, world)
	}, o.maxHist)
	prompt := o.composer.Compose(cctx.Snapshot(), userInput)

	waitStart := time.Now()
	release, err := entry.Gate().Acquire(ctx)
	if err != nil {
		return o.fail(res, ErrInference(err.Error()))
	}
	defer release()
	gateWait.WithLabelValues(entry.ID).Observe(time.Since(waitStart).Seconds())

	inferInflight.WithLabelValues(entry.ID).Inc()
	defer inferInflight.WithLabelValues(entry.ID).Dec()

	// The engine call is a blocking foreign call with no interrupt hook:
	// it runs to completion even if the caller's ctx is canceled mid-flight.
	// Callers wanting cancellation ignore the eventual result.
	runCtx := context.WithoutCancel(ctx)
	start := time.Now()
	run, runErr := o.run(runCtx, entry.Handle, prompt, onToken)
	dur := time.Since(start)
	if runErr != nil {
		observeTurn(entry.ID, "error", dur)
		res.LatencyMs = dur.Milliseconds()
		return o.fail(res, ErrInference(runErr.Error()))
	}

	text := normalize.Normalize(run.Text)
	// The normalized text goes into the history so the model's memory of
	// the turn matches what the other party was shown.
	cctx.Push(types.RoleUser, userInput)
	cctx.Push(types.RoleAssistant, text)

	res.OK = true
	res.Text = text
	res.LatencyMs = run.LatencyMs
	if res.LatencyMs == 0 {
		res.LatencyMs = dur.Milliseconds()
	}
	observeTurn(entry.ID, "ok", dur)
	o.log.Info().
		Str("request_id", res.RequestID).
		Str("participant", participantID).
		Str("model", entry.ID).
		Int64("latency_ms", res.LatencyMs).
		Msg("turn complete")
	return res, nil
}

// run dispatches to the blocking or streaming primitive. For streaming,
// tokens are produced on the engine's worker goroutine and handed to the
// caller through a buffered channel: order is preserved, nothing is
// dropped, and a slow consumer only delays delivery.
func (o *Orchestrator) run(ctx context.Context, handle engine.ModelHandle, prompt string, onToken func(string)) (engine.RunResult, error) {
	if onToken == nil {
		return safeRun(func() (engine.RunResult, error) {
			return handle.Run(ctx, prompt)
		})
	}
	type outcome struct {
		res engine.RunResult
		err error
	}
	tokens := make(chan string, 64)
	resCh := make(chan outcome, 1)
	go func() {
		res, err := safeRun(func() (engine.RunResult, error) {
			return handle.RunStreaming(ctx, prompt, func(tok string) error {
				tokens <- tok
				return nil
			})
		})
		close(tokens)
		resCh <- outcome{res: res, err: err}
	}()
	for tok := range tokens {
		onToken(tok)
	}
	out := <-resCh
	return out.res, out.err
}

// safeRun converts an engine panic into an error so it can never escape
// into caller code.
func safeRun(f func() (engine.RunResult, error)) (res engine.RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return f()
}

func (o *Orchestrator) fail(res types.Result, err error) (types.Result, error) {
	res.OK = false
	res.Text = FallbackLine
	res.Err = err.Error()
	o.log.Warn().
		Str("request_id", res.RequestID).
		Str("participant", res.ParticipantID).
		Err(err).
		Msg("turn failed")
	return res, err
}

// EndSession wipes the participant's history, keeping the system prompt.
// Idempotent; no-op for unknown participants.
func (o *Orchestrator) EndSession(participantID string) {
	o.store.Clear(participantID)
	o.log.Debug().Str("participant", participantID).Msg("session ended")
}

// SnapshotOf exposes a participant's context for UIs and tests.
func (o *Orchestrator) SnapshotOf(participantID string) (conversation.Snapshot, bool) {
	c, ok := o.store.Get(participantID)
	if !ok {
		return conversation.Snapshot{}, false
	}
	return c.Snapshot(), true
}

// Ready reports whether the underlying registry can serve turns.
func (o *Orchestrator) Ready() bool { return o.reg.Ready() }

// Models lists the loaded models.
func (o *Orchestrator) Models() []types.ModelConfig { return o.reg.Models() }

// Status builds the payload for the observability surface.
func (o *Orchestrator) Status() types.StatusResponse {
	now := time.Now()
	return types.StatusResponse{
		Ready:          o.reg.Ready(),
		Models:         o.reg.Statuses(),
		Participants:   o.store.Count(),
		UptimeSeconds:  int64(now.Sub(o.start).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}
