// Command meetingmind-gateway serves the meeting API: uploads, meeting
// CRUD, live transcription websockets, and metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/DhrumilPrajapati03/MeetingMindAI/internal/dotenv"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/stt"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/config"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/live/sessions"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/metrics"
	gatewayserver "github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/server"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/queue"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/storage"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/store"
)

type gatewayDeps struct {
	loadConfig   func() (config.Config, error)
	openBackends func(ctx context.Context, cfg config.Config, logger *slog.Logger) (gatewayserver.Deps, func(), error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultGatewayDeps() gatewayDeps {
	return gatewayDeps{
		loadConfig:   config.LoadFromEnv,
		openBackends: openBackends,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (gatewayserver.Deps, func(), error) {
	st, err := store.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return gatewayserver.Deps{}, nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return gatewayserver.Deps{}, nil, fmt.Errorf("migrate: %w", err)
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
		return gatewayserver.Deps{}, nil, fmt.Errorf("open object storage: %w", err)
	}

	q, err := queue.New(ctx, cfg.RedisURL, cfg.QueueKey, logger)
	if err != nil {
		st.Close()
		return gatewayserver.Deps{}, nil, fmt.Errorf("open queue: %w", err)
	}

	engine := stt.NewWhisperClient(cfg.WhisperBaseURL, nil)
	engine.Logger = logger
	engine.MaxAttempts = cfg.WhisperMaxAttempts

	cleanup := func() {
		if err := q.Close(); err != nil {
			logger.Warn("closing queue", "error", err)
		}
		st.Close()
	}
	return gatewayserver.Deps{
		Store:    st,
		Objects:  objects,
		Queue:    q,
		Engine:   engine,
		Registry: sessions.NewRegistry(),
		Metrics:  metrics.NewMetrics(cfg.MetricsNamespace),
	}, cleanup, nil
}

func runGateway(ctx context.Context, logger *slog.Logger, deps gatewayDeps) error {
	if deps.loadConfig == nil || deps.openBackends == nil {
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

	backends, cleanup, err := deps.openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	gw := gatewayserver.New(cfg, logger, backends)
	httpSrv := gw.HTTPServer()

	logger.Info("starting gateway", "addr", cfg.Addr)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	// Open websocket sessions are not tracked by http.Server.Shutdown.
	// Give them the grace period to finalize, then cancel the stragglers.
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer waitCancel()
	if !backends.Registry.Wait(waitCtx) {
		canceled := backends.Registry.CancelAll()
		logger.Warn("canceled live sessions during shutdown", "count", canceled)
		drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		backends.Registry.Wait(drainCtx)
		drainCancel()
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps gatewayDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.Load(".env"); err != nil {
		fmt.Fprintf(stderr, "meetingmind-gateway: %v\n", err)
		return 1
	}

	if err := runGateway(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "meetingmind-gateway: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultGatewayDeps()))
}
