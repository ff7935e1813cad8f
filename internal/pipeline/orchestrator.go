package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lemonvrct/vrct-core/internal/bus"
	"github.com/lemonvrct/vrct-core/internal/capture"
	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/dispatch"
	"github.com/lemonvrct/vrct-core/internal/protocol"
	"github.com/lemonvrct/vrct-core/internal/refine"
	"github.com/lemonvrct/vrct-core/internal/session"
	"github.com/lemonvrct/vrct-core/internal/sessionstore"
	"github.com/lemonvrct/vrct-core/internal/transcribe"
	"github.com/lemonvrct/vrct-core/internal/translate"
)

const reasonSuperseded = "superseded by new recording"

// Options carries optional orchestrator collaborators.
type Options struct {
	Store    *sessionstore.Store
	Bus      *bus.Client
	OnStatus func(protocol.SessionStatus)
	Clock    func() time.Time
}

// Orchestrator owns the per-utterance state machine. A hotkey press opens
// a session and starts capture; the release drives the buffer through
// transcription, refinement, translation and dispatch. Single-flight: a
// new press cancels any session that has not yet reached dispatch, while
// a dispatching session is allowed to finish alongside the new recording.
type Orchestrator struct {
	cfg         config.Config
	newRecorder capture.Factory
	recognizer  transcribe.Recognizer
	refiner     refine.Refiner
	translator  translate.Translator
	sender      dispatch.Sender
	logger      *slog.Logger
	store       *sessionstore.Store
	busClient   *bus.Client
	onStatus    func(protocol.SessionStatus)
	clock       func() time.Time
	metrics     *pipelineMetrics
	tracer      trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active *run

	// dispatchGate serializes the dispatch phase across sessions so
	// chatbox messages land in press order.
	dispatchGate chan struct{}
}

// run is one session's live state inside the orchestrator.
type run struct {
	sess       *session.Session
	cfg        config.Config // immutable snapshot for the whole session
	recorder   capture.Recorder
	ctx        context.Context
	cancel     context.CancelFunc
	processing bool // release seen, pipeline goroutine owns the run
}

func New(
	parent context.Context,
	cfg config.Config,
	newRecorder capture.Factory,
	recognizer transcribe.Recognizer,
	refiner refine.Refiner,
	translator translate.Translator,
	sender dispatch.Sender,
	logger *slog.Logger,
	opts Options,
) *Orchestrator {
	ctx, cancel := context.WithCancel(parent)
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Orchestrator{
		cfg:          cfg,
		newRecorder:  newRecorder,
		recognizer:   recognizer,
		refiner:      refiner,
		translator:   translator,
		sender:       sender,
		logger:       logger.With(slog.String("component", "pipeline")),
		store:        opts.Store,
		busClient:    opts.Bus,
		onStatus:     opts.OnStatus,
		clock:        clock,
		metrics:      newPipelineMetrics(),
		tracer:       otel.Tracer("vrct/pipeline"),
		dispatchGate: make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Close cancels in-flight sessions and waits for their goroutines.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// SetConfig swaps the configuration between sessions. Rejected while a
// session is alive so an in-flight pipeline never sees mixed settings.
func (o *Orchestrator) SetConfig(cfg config.Config) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		return errors.New("cannot update configuration during an active session")
	}
	o.cfg = cfg
	return nil
}

// Press handles a hotkey-down edge: cancels a superseded session and
// opens a new recording one.
func (o *Orchestrator) Press() error {
	o.mu.Lock()
	prior := o.active
	o.active = nil
	var directCancel *run
	if prior != nil {
		prior.cancel()
		if !prior.processing {
			// still recording, no goroutine owns it; discard here
			prior.recorder.Abort()
			directCancel = prior
		}
	}
	runCtx, cancelRun := context.WithCancel(o.ctx)
	r := &run{
		sess:     session.New(o.clock()),
		cfg:      o.cfg,
		recorder: o.newRecorder(),
		ctx:      runCtx,
		cancel:   cancelRun,
	}
	o.active = r
	o.mu.Unlock()

	if directCancel != nil {
		o.finish(directCancel, session.Result{State: session.StateCancelled, Reason: reasonSuperseded})
	}

	if o.store != nil {
		if err := o.store.BeginSession(o.ctx, r.sess.ID, r.sess.StartedAt); err != nil {
			o.logger.Warn("failed to persist session start", slogError(err))
		}
	}

	if err := r.recorder.Begin(runCtx); err != nil {
		o.mu.Lock()
		if o.active == r {
			o.active = nil
		}
		o.mu.Unlock()
		o.finish(r, session.Result{
			State:  session.StateFailed,
			Stage:  "capture",
			Reason: fmt.Sprintf("begin capture: %v", err),
		})
		return fmt.Errorf("begin capture: %w", err)
	}

	o.logger.Info("recording started", slog.String("session_id", r.sess.ID))
	o.emitProgress(r, session.StateRecording)
	return nil
}

// Release handles a hotkey-up edge: closes the buffer and runs the
// pipeline asynchronously. A release with no recording session is a
// stray edge and ignored.
func (o *Orchestrator) Release() {
	o.mu.Lock()
	r := o.active
	if r == nil || r.processing {
		o.mu.Unlock()
		return
	}
	r.processing = true
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.process(r)
	}()
}

func (o *Orchestrator) process(r *run) {
	ctx, span := o.tracer.Start(o.ctx, "pipeline.session",
		trace.WithAttributes(attribute.String("session_id", r.sess.ID)))
	defer span.End()

	if o.checkCancelled(r) {
		return
	}

	stageStart := o.clock()
	buf, err := r.recorder.End()
	o.metrics.recordStage(ctx, "capture", o.clock().Sub(stageStart))
	if err != nil {
		if o.checkCancelled(r) {
			return
		}
		o.finish(r, session.Result{State: session.StateFailed, Stage: "capture", Reason: err.Error()})
		return
	}
	if err := r.sess.SetAudio(buf); err != nil {
		o.finish(r, session.Result{State: session.StateFailed, Stage: "capture", Reason: err.Error()})
		return
	}

	// transcription
	if !o.advance(r, session.StateTranscribing) {
		return
	}
	var transcript transcribe.Result
	stageStart = o.clock()
	err = o.stage(r, r.ctx, time.Duration(r.cfg.Transcribe.TimeoutMS)*time.Millisecond, func(ctx context.Context) error {
		var stageErr error
		transcript, stageErr = o.recognizer.Transcribe(ctx, buf)
		return stageErr
	})
	o.metrics.recordStage(ctx, "transcribe", o.clock().Sub(stageStart))
	if err != nil {
		if o.checkCancelled(r) {
			return
		}
		o.finish(r, session.Result{State: session.StateFailed, Stage: "transcribe", Reason: err.Error()})
		return
	}
	if err := r.sess.SetTranscript(session.Transcript{
		Text:       transcript.Text,
		Language:   transcript.Language,
		Confidence: transcript.Confidence,
	}); err != nil {
		o.finish(r, session.Result{State: session.StateFailed, Stage: "transcribe", Reason: err.Error()})
		return
	}

	// refinement, best-effort unless strict
	if !o.advance(r, session.StateRefining) {
		return
	}
	refinement := session.Refinement{Text: transcript.Text, Fallback: true}
	if r.cfg.Refine.Enabled {
		var refined string
		stageStart = o.clock()
		err = o.stage(r, r.ctx, time.Duration(r.cfg.Refine.TimeoutMS)*time.Millisecond, func(ctx context.Context) error {
			var stageErr error
			refined, stageErr = o.refiner.Refine(ctx, transcript.Text)
			return stageErr
		})
		o.metrics.recordStage(ctx, "refine", o.clock().Sub(stageStart))
		switch {
		case err == nil:
			refinement = session.Refinement{Text: refined, Fallback: false}
		case o.checkCancelled(r):
			return
		case r.cfg.Refine.Strict:
			o.finish(r, session.Result{State: session.StateFailed, Stage: "refine", Reason: err.Error()})
			return
		default:
			o.logger.Warn("refinement degraded to raw transcript",
				slog.String("session_id", r.sess.ID), slogError(err))
		}
	}
	if err := r.sess.SetRefinement(refinement); err != nil {
		o.finish(r, session.Result{State: session.StateFailed, Stage: "refine", Reason: err.Error()})
		return
	}

	// translation, mandatory for every configured target
	if !o.advance(r, session.StateTranslating) {
		return
	}
	sourceLang := r.cfg.Translate.SourceLanguage
	if transcript.Language != "" && transcript.Language != "und" {
		sourceLang = transcript.Language
	}
	translations := make([]session.Translation, 0, len(r.cfg.Translate.TargetLanguages))
	for _, target := range r.cfg.Translate.TargetLanguages {
		var translated string
		stageStart = o.clock()
		err = o.stage(r, r.ctx, time.Duration(r.cfg.Translate.TimeoutMS)*time.Millisecond, func(ctx context.Context) error {
			var stageErr error
			translated, stageErr = o.translator.Translate(ctx, refinement.Text, sourceLang, target)
			return stageErr
		})
		o.metrics.recordStage(ctx, "translate", o.clock().Sub(stageStart))
		if err != nil {
			if o.checkCancelled(r) {
				return
			}
			o.finish(r, session.Result{
				State:  session.StateFailed,
				Stage:  "translate",
				Reason: fmt.Sprintf("target %s: %v", target, err),
			})
			return
		}
		translations = append(translations, session.Translation{Language: target, Text: translated})
	}
	if err := r.sess.SetTranslations(translations); err != nil {
		o.finish(r, session.Result{State: session.StateFailed, Stage: "translate", Reason: err.Error()})
		return
	}

	// wait for any earlier session still draining its sends. The run stays
	// in the active slot while queued, so a new press can still cancel it.
	select {
	case o.dispatchGate <- struct{}{}:
	case <-r.ctx.Done():
		o.checkCancelled(r)
		return
	}
	defer func() { <-o.dispatchGate }()

	if o.checkCancelled(r) {
		return
	}

	// dispatch: beyond this point the session is immune to interruption,
	// its side effect is about to become irrevocable
	if !o.advance(r, session.StateDispatching) {
		return
	}
	o.mu.Lock()
	if o.active == r {
		o.active = nil
	}
	o.mu.Unlock()

	messages := composeMessages(r.cfg.Dispatch, refinement.Text, translations)
	if len(messages) == 0 {
		o.finish(r, session.Result{State: session.StateFailed, Stage: "dispatch", Reason: "nothing to dispatch"})
		return
	}
	stageStart = o.clock()
	for _, msg := range messages {
		payload := msg
		err = o.stage(r, o.ctx, time.Duration(r.cfg.Dispatch.TimeoutMS)*time.Millisecond, func(ctx context.Context) error {
			return o.sender.Send(ctx, payload)
		})
		if err != nil {
			o.metrics.recordStage(ctx, "dispatch", o.clock().Sub(stageStart))
			o.finish(r, session.Result{State: session.StateFailed, Stage: "dispatch", Reason: err.Error()})
			return
		}
	}
	o.metrics.recordStage(ctx, "dispatch", o.clock().Sub(stageStart))

	o.finish(r, session.Result{
		State:          session.StateSucceeded,
		DispatchedText: strings.Join(messages, "\n"),
	})
}

// stage runs one adapter call under the retry policy with a per-call
// timeout. cancelCtx is the run context pre-dispatch and the orchestrator
// root during dispatch, so a superseding press never aborts a send.
func (o *Orchestrator) stage(r *run, cancelCtx context.Context, timeout time.Duration, op func(context.Context) error) error {
	policy := policyFromConfig(r.cfg.Retry)
	return policy.do(cancelCtx, func(ctx context.Context) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return op(ctx)
	})
}

// advance moves the session forward and records the stage change; false
// return means the run was cancelled at the boundary.
func (o *Orchestrator) advance(r *run, next session.State) bool {
	if o.checkCancelled(r) {
		return false
	}
	if err := r.sess.Advance(next); err != nil {
		o.finish(r, session.Result{State: session.StateFailed, Stage: next.String(), Reason: err.Error()})
		return false
	}
	o.emitProgress(r, next)
	return true
}

// checkCancelled is the cooperative cancellation point between stages.
func (o *Orchestrator) checkCancelled(r *run) bool {
	if r.ctx.Err() == nil {
		return false
	}
	r.recorder.Abort()
	o.finish(r, session.Result{State: session.StateCancelled, Reason: reasonSuperseded})
	return true
}

// finish records the single terminal result. Sessions finished elsewhere
// (double cancellation races) are left untouched.
func (o *Orchestrator) finish(r *run, res session.Result) {
	if err := r.sess.Finish(res); err != nil {
		return
	}
	o.mu.Lock()
	if o.active == r {
		o.active = nil
	}
	o.mu.Unlock()
	r.cancel()

	status := protocol.SessionStatus{
		SessionID: r.sess.ID,
		State:     res.State.String(),
		Stage:     res.Stage,
		Reason:    res.Reason,
		Text:      res.DispatchedText,
		Timestamp: o.clock(),
	}
	switch res.State {
	case session.StateSucceeded:
		o.logger.Info("session succeeded",
			slog.String("session_id", r.sess.ID),
			slog.String("text", res.DispatchedText))
	case session.StateFailed:
		o.logger.Warn("session failed",
			slog.String("session_id", r.sess.ID),
			slog.String("stage", res.Stage),
			slog.String("reason", res.Reason))
	default:
		o.logger.Debug("session cancelled", slog.String("session_id", r.sess.ID))
	}
	o.emit(status, true)
	o.metrics.recordOutcome(o.ctx, res.State.String())
}

func (o *Orchestrator) emitProgress(r *run, state session.State) {
	o.emit(protocol.SessionStatus{
		SessionID: r.sess.ID,
		State:     state.String(),
		Timestamp: o.clock(),
	}, false)
}

func (o *Orchestrator) emit(status protocol.SessionStatus, terminal bool) {
	if o.store != nil {
		if err := o.store.RecordStatus(context.Background(), status, terminal); err != nil {
			o.logger.Warn("failed to persist session status", slogError(err))
		}
	}
	if o.busClient != nil {
		if data, err := json.Marshal(status); err == nil {
			if err := o.busClient.Conn().Publish(protocol.SubjectSessionStatus, data); err != nil {
				o.logger.Warn("failed to publish session status", slogError(err))
			}
		}
	}
	if o.onStatus != nil {
		o.onStatus(status)
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
