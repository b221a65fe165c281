package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/config"
	gatewayserver "github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/server"
)

func TestRunMain_ReturnsNonZeroWhenConfigLoadFails(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, gatewayDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("boom")
		},
		openBackends: func(context.Context, config.Config, *slog.Logger) (gatewayserver.Deps, func(), error) {
			t.Fatal("openBackends should not be called when config load fails")
			return gatewayserver.Deps{}, nil, nil
		},
		signalNotify: func(chan<- os.Signal, ...os.Signal) {},
		signalStop:   func(chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode=%d, want 1", exitCode)
	}
	if stderr.Len() == 0 {
		t.Fatal("expected stderr output for startup error")
	}
}

func TestRunMain_ReturnsNonZeroWhenBackendsFail(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, gatewayDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{DatabaseURL: "postgres://localhost/x"}, nil
		},
		openBackends: func(context.Context, config.Config, *slog.Logger) (gatewayserver.Deps, func(), error) {
			return gatewayserver.Deps{}, nil, errors.New("database unreachable")
		},
		signalNotify: func(chan<- os.Signal, ...os.Signal) {},
		signalStop:   func(chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode=%d, want 1", exitCode)
	}
}

func TestRunGateway_RequiresDependencies(t *testing.T) {
	t.Parallel()

	err := runGateway(context.Background(), nil, gatewayDeps{})
	if err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
