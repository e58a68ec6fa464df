package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/httpapi"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/httpapi/handlers"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/store/rabbitmq"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close", zap.Error(err))
		}
	}()

	var (
		submitter handlers.Submitter
		drain     func(context.Context) error
	)
	switch cfg.DispatchMode {
	case "queue":
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue, log)
		if err != nil {
			return err
		}
		defer pub.Close()
		submitter = pub
		drain = func(context.Context) error { return nil }
	default:
		runner := workflow.NewLocalRunner(a.engine, cfg.JobTimeout, log)
		submitter = runner
		drain = runner.Shutdown
	}

	h := handlers.NewHandler(a.jobs, submitter, a.chain, log)
	opts := httpapi.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimitRPS,
		RateBurst: cfg.RateLimitBurst,
	}
	if cfg.ArtifactBackend == "local" {
		opts.ArtifactDir = cfg.ArtifactDir
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpapi.NewRouter(h, opts, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("dispatch", cfg.DispatchMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		// stop taking requests first, then let running jobs record their outcome
		return errors.Join(srv.Shutdown(sctx), drain(sctx))
	})
	return g.Wait()
}
