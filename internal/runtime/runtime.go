package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lemonvrct/vrct-core/internal/bus"
	"github.com/lemonvrct/vrct-core/internal/capture"
	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/dispatch"
	"github.com/lemonvrct/vrct-core/internal/hotkey"
	"github.com/lemonvrct/vrct-core/internal/natsserver"
	"github.com/lemonvrct/vrct-core/internal/pipeline"
	"github.com/lemonvrct/vrct-core/internal/refine"
	"github.com/lemonvrct/vrct-core/internal/sessionstore"
	"github.com/lemonvrct/vrct-core/internal/transcribe"
	"github.com/lemonvrct/vrct-core/internal/translate"
)

// Runtime assembles and runs the translation daemon: embedded bus,
// session store, pipeline orchestrator and the HTTP diagnostics surface.
type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	var embedded *natsserver.EmbeddedServer
	if r.cfg.Bus.Embedded {
		embedded, err = natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded bus: %w", err)
		}
		defer embedded.Shutdown()
	}

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	defer busClient.Close()

	store, err := sessionstore.Open(ctx, r.cfg.SessionStore, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	recorderFactory, err := buildRecorderFactory(r.cfg.Capture, busClient)
	if err != nil {
		return err
	}
	recognizer, err := buildRecognizer(r.cfg.Transcribe)
	if err != nil {
		return err
	}
	refiner, err := buildRefiner(r.cfg.Refine)
	if err != nil {
		return err
	}
	translator, err := buildTranslator(r.cfg.Translate)
	if err != nil {
		return err
	}
	sender, err := buildSender(r.cfg.Dispatch)
	if err != nil {
		return err
	}

	orchestrator := pipeline.New(ctx, r.cfg, recorderFactory, recognizer, refiner, translator, sender, r.logger, pipeline.Options{
		Store: store,
		Bus:   busClient,
	})
	defer orchestrator.Close()

	listener := hotkey.NewListener(busClient, r.cfg.Hotkey, orchestrator, r.logger)
	if err := listener.Start(); err != nil {
		return fmt.Errorf("failed to start hotkey listener: %w", err)
	}
	defer listener.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("hotkey", r.cfg.Hotkey.Key),
		slog.String("dispatch", fmt.Sprintf("%s:%d", r.cfg.Dispatch.Host, r.cfg.Dispatch.Port)))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func buildRecorderFactory(cfg config.CaptureConfig, busClient *bus.Client) (capture.Factory, error) {
	switch cfg.Mode {
	case "bus":
		return func() capture.Recorder {
			return capture.NewBusRecorder(cfg, busClient)
		}, nil
	case "mock":
		return func() capture.Recorder {
			return capture.NewMockRecorder(cfg)
		}, nil
	default:
		return nil, fmt.Errorf("capture.mode %q not supported", cfg.Mode)
	}
}

func buildRecognizer(cfg config.TranscribeConfig) (transcribe.Recognizer, error) {
	switch cfg.Mode {
	case "mock":
		return transcribe.NewMockRecognizer(), nil
	case "exec":
		return transcribe.NewExecRecognizer(cfg)
	case "openai":
		return transcribe.NewOpenAIRecognizer(cfg), nil
	default:
		return nil, fmt.Errorf("transcribe.mode %q not supported", cfg.Mode)
	}
}

func buildRefiner(cfg config.RefineConfig) (refine.Refiner, error) {
	switch cfg.Mode {
	case "mock":
		return refine.NewMockRefiner(), nil
	case "openai":
		return refine.NewOpenAIRefiner(cfg), nil
	default:
		return nil, fmt.Errorf("refine.mode %q not supported", cfg.Mode)
	}
}

func buildTranslator(cfg config.TranslateConfig) (translate.Translator, error) {
	switch cfg.Mode {
	case "mock":
		return translate.NewMockTranslator(), nil
	case "openai":
		return translate.NewOpenAITranslator(cfg), nil
	default:
		return nil, fmt.Errorf("translate.mode %q not supported", cfg.Mode)
	}
}

func buildSender(cfg config.DispatchConfig) (dispatch.Sender, error) {
	switch cfg.Mode {
	case "osc":
		return dispatch.NewOSCSender(cfg), nil
	case "mock":
		return &dispatch.MockSender{MaxChars: cfg.MaxChars}, nil
	default:
		return nil, fmt.Errorf("dispatch.mode %q not supported", cfg.Mode)
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
