// Command meetingmind-worker consumes processing jobs from the queue and
// runs the batch pipeline: transcribe, analyze, extract action items,
// summarize, persist.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/DhrumilPrajapati03/MeetingMindAI/internal/dotenv"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/analysis"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/pipeline"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/stt"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/config"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/metrics"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/queue"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/storage"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/store"
)

type workerDeps struct {
	loadConfig   func() (config.Config, error)
	buildWorker  func(ctx context.Context, cfg config.Config, logger *slog.Logger) (*queue.Worker, func(), error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultWorkerDeps() workerDeps {
	return workerDeps{
		loadConfig:  config.LoadFromEnv,
		buildWorker: buildWorker,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildWorker(ctx context.Context, cfg config.Config, logger *slog.Logger) (*queue.Worker, func(), error) {
	st, err := store.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	objects, err := storage.New(ctx, storage.Config{
		Endpoint:  cfg.StorageEndpoint,
		Region:    cfg.StorageRegion,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
	}, logger)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("open object storage: %w", err)
	}

	q, err := queue.New(ctx, cfg.RedisURL, cfg.QueueKey, logger)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("open queue: %w", err)
	}

	engine := stt.NewWhisperClient(cfg.WhisperBaseURL, nil)
	engine.Logger = logger
	engine.MaxAttempts = cfg.WhisperMaxAttempts

	analyzer, err := buildAnalyzer(ctx, cfg, logger)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("init analysis generator: %w", err)
	}

	pipe := pipeline.New(st, objects, engine, analyzer,
		metrics.NewMetrics(cfg.MetricsNamespace), logger)
	pipe.Language = cfg.DefaultLanguage

	worker := &queue.Worker{
		Queue:  q,
		Logger: logger,
		Handler: func(ctx context.Context, job queue.Job) error {
			if job.Type != queue.JobProcessMeeting {
				logger.Warn("skipping unknown job type", "type", job.Type)
				return nil
			}
			return pipe.ProcessMeeting(ctx, job.MeetingID)
		},
		PollTimeout: cfg.WorkerPollTimeout,
		MaxAttempts: cfg.WorkerMaxAttempts,
	}
	cleanup := func() {
		if err := q.Close(); err != nil {
			logger.Warn("closing queue", "error", err)
		}
		st.Close()
	}
	return worker, cleanup, nil
}

// buildAnalyzer wires the Gemini analysis agents. Without an API key the
// worker runs transcription-only; the pipeline treats a nil analyzer as
// analysis disabled.
func buildAnalyzer(ctx context.Context, cfg config.Config, logger *slog.Logger) (pipeline.Analyzer, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		logger.Warn("no gemini api key configured, analysis disabled")
		return nil, nil
	}
	gen, err := analysis.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	return analysis.NewAgents(gen, logger), nil
}

func runWorker(ctx context.Context, logger *slog.Logger, deps workerDeps) error {
	if deps.loadConfig == nil || deps.buildWorker == nil {
		return errors.New("missing dependencies")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	worker, cleanup, err := deps.buildWorker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutdown signal received", "signal", sig.String())
			cancel()
		case <-runCtx.Done():
		}
	}()

	return worker.Run(runCtx)
}

func runMain(ctx context.Context, stderr io.Writer, deps workerDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.Load(".env"); err != nil {
		fmt.Fprintf(stderr, "meetingmind-worker: %v\n", err)
		return 1
	}

	if err := runWorker(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "meetingmind-worker: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultWorkerDeps()))
}
