package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"taskhub/internal/audit"
	identityhandler "taskhub/internal/identity/handler"
	identitymetrics "taskhub/internal/identity/metrics"
	identityservice "taskhub/internal/identity/service"
	"taskhub/internal/identity/token"
	"taskhub/internal/platform/config"
	"taskhub/internal/platform/httpserver"
	"taskhub/internal/platform/logger"
	"taskhub/internal/platform/metrics"
	"taskhub/internal/platform/redis"
	ratelimitmetrics "taskhub/internal/ratelimit/metrics"
	ratelimit "taskhub/internal/ratelimit/middleware"
	"taskhub/internal/workspace/adapters"
	workspacehandler "taskhub/internal/workspace/handler"
	workspacemetrics "taskhub/internal/workspace/metrics"
	workspaceservice "taskhub/internal/workspace/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("taskhub stopped with error", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies and blocks until ctx is cancelled or a component
// fails.
func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	m := metrics.New()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	sink, closeSink, err := auditSink(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeSink()
	publisher := audit.NewPublisher(sink,
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewMetrics(m.Registry)),
		audit.WithBufferSize(cfg.Kafka.BufferSize),
	)

	workspace := workspaceservice.New(
		st.projects, st.members, st.tasks, st.comments,
		adapters.NewUserDirectory(st.users),
		workspaceservice.WithLogger(log),
		workspaceservice.WithMetrics(workspacemetrics.New(m.Registry)),
		workspaceservice.WithAuditPublisher(publisher),
		workspaceservice.WithTx(st.tx),
	)

	jwt := token.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	identity := identityservice.New(st.users, jwt, revocationList(redisClient), workspace,
		identityservice.WithLogger(log),
		identityservice.WithMetrics(identitymetrics.New(m.Registry)),
		identityservice.WithAuditPublisher(publisher),
		identityservice.WithTx(st.tx),
		identityservice.WithAccessTokenTTL(cfg.Auth.AccessTokenTTL),
	)
	if err := identity.EnsureSuperuser(ctx, cfg.Superuser.Email, cfg.Superuser.Password); err != nil {
		return fmt.Errorf("bootstrap superuser: %w", err)
	}

	limiter := ratelimit.New(rateLimitStore(redisClient), cfg.RateLimit.AuthRequests, cfg.RateLimit.AuthWindow, log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
		ratelimit.WithMetrics(ratelimitmetrics.New(m.Registry)),
	)

	router := newRouter(routerDeps{
		cfg:       cfg,
		log:       log,
		metrics:   m,
		validator: token.NewMiddlewareAdapter(jwt),
		identity:  identity,
		limiter:   limiter,
		identityH: identityhandler.New(identity, log),
		workspace: workspacehandler.New(workspace, log),
		health:    healthChecks(st, redisClient),
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return publisher.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting taskhub", "addr", cfg.Addr, "env", cfg.Environment, "store", st.kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
