package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	activityrepo "github.com/farhad-a/openclaw-mission-control/internal/activity/repositoryimpl"
	"github.com/farhad-a/openclaw-mission-control/internal/agent"
	agentrepo "github.com/farhad-a/openclaw-mission-control/internal/agent/repositoryimpl"
	"github.com/farhad-a/openclaw-mission-control/internal/board"
	boardrepo "github.com/farhad-a/openclaw-mission-control/internal/board/repositoryimpl"
	"github.com/farhad-a/openclaw-mission-control/internal/config"
	"github.com/farhad-a/openclaw-mission-control/internal/eventbus"
	"github.com/farhad-a/openclaw-mission-control/internal/gateway"
	"github.com/farhad-a/openclaw-mission-control/internal/notification"
	"github.com/farhad-a/openclaw-mission-control/internal/pushsubscription"
	pushsubrepo "github.com/farhad-a/openclaw-mission-control/internal/pushsubscription/repositoryimpl"
	"github.com/farhad-a/openclaw-mission-control/internal/task"
	taskrepo "github.com/farhad-a/openclaw-mission-control/internal/task/repositoryimpl"
	"github.com/farhad-a/openclaw-mission-control/pkg/clog"
	"github.com/farhad-a/openclaw-mission-control/pkg/panicerr"
	"github.com/farhad-a/openclaw-mission-control/pkg/storage"

	server "github.com/farhad-a/openclaw-mission-control/internal"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus
	bus := eventbus.New()

	// Setup repositories
	boardRepo := boardrepo.NewYAMLRepository(store)
	agentRepo := agentrepo.NewYAMLRepository(store)
	taskRepo := taskrepo.NewYAMLRepository(store)
	activityRepo := activityrepo.NewYAMLRepository(store)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)

	// Setup gateway client
	gatewayClient := gateway.NewClient(config.GatewayEnvFromEnv(env))
	dispatchService := gateway.NewDispatchService()

	// Setup servers
	boardServer := board.NewServer(boardRepo)
	agentServer := agent.NewServer(agentRepo)
	taskServer := task.NewServer(taskRepo, boardRepo, agentRepo, activityRepo, bus)
	gatewayServer := gateway.NewServer(boardRepo, dispatchService, gatewayClient)

	// Setup push notification
	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSender := notification.NewPushSender(vapidEnv, pushSubRepo)
	subscriptionServer := pushsubscription.NewServer(vapidEnv, pushSubRepo)

	dispatcher := notification.NewDispatcher(bus, agentRepo, boardRepo, dispatchService, gatewayClient, pushSender)

	srv := server.NewServer(
		env,
		agentRepo,
		boardServer,
		agentServer,
		taskServer,
		gatewayServer,
		subscriptionServer,
	)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go func() {
		if err := panicerr.SafeContext(dispatcher.Run)(ctx); err != nil {
			slog.Error("notification dispatcher error", "error", err)
		}
	}()

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after request contexts are cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
