package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/ai"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/artifact"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/chain"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/config"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/db"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/job"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/thread"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/workflow"
	"go.uber.org/zap"
)

// app holds the components shared by serve and worker.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	jobs   job.Store
	chain  chain.Gateway
	engine *workflow.Engine

	closers []func() error
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, cfg.Validate()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	cfg := a.cfg

	switch cfg.JobStore {
	case "sql":
		gdb, err := db.Open(cfg.DBDSN)
		if err != nil {
			return err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		repo := job.NewRepo(gdb)
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate jobs: %w", err)
		}
		a.jobs = repo
	default:
		a.jobs = job.NewMemoryStore()
	}

	var threads thread.Store
	switch cfg.ThreadStore {
	case "redis":
		rs, err := thread.NewRedisStore(ctx, thread.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.ThreadWindow, cfg.ThreadTTL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rs.Close)
		threads = rs
	default:
		threads = thread.NewMemoryStore(cfg.ThreadWindow)
	}

	var artifacts artifact.Store
	switch cfg.ArtifactBackend {
	case "pinata":
		artifacts = artifact.NewPinataStore(cfg.PinataJWT, cfg.GatewayURL, a.log)
	default:
		ls, err := artifact.NewLocalStore(cfg.ArtifactDir, a.log)
		if err != nil {
			return err
		}
		artifacts = ls
	}

	switch cfg.ChainBackend {
	case "evm":
		gw, err := chain.DialEVM(ctx, chain.EVMConfig{
			RPCURL:        cfg.EthereumRPCURL,
			PrivateKey:    cfg.PrivateKey,
			TavernAddress: cfg.TavernAddress,
			QuestAddress:  cfg.QuestAddress,
			TavernABIPath: cfg.TavernABIPath,
			QuestABIPath:  cfg.QuestABIPath,
		}, a.log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { gw.Close(); return nil })
		a.chain = gw
	default:
		a.log.Warn("using in-memory chain; nothing is written on chain")
		a.chain = chain.NewMemoryGateway()
	}

	gen, err := a.dispatcher(ctx)
	if err != nil {
		return err
	}

	a.engine = workflow.NewEngine(workflow.Deps{
		Generator: gen,
		Artifacts: artifacts,
		Chain:     a.chain,
		Threads:   threads,
		Jobs:      a.jobs,
		Log:       a.log,
	})
	return nil
}

func (a *app) dispatcher(ctx context.Context) (*ai.Dispatcher, error) {
	cfg := a.cfg

	// Provider registry (route by configured provider name)
	reg := ai.NewRegistry()
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		if model == "" {
			model = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})
	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		if model == "" {
			model = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, model, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})

	var gemini *ai.GeminiProvider
	geminiClient := func(ctx context.Context) (*ai.GeminiProvider, error) {
		if gemini != nil {
			return gemini, nil
		}
		p, err := ai.NewGeminiProvider(ctx, cfg.GoogleAPIKey, cfg.GeminiModel, cfg.ImagenModel)
		if err != nil {
			return nil, err
		}
		gemini = p
		return p, nil
	}
	reg.Register("gemini", func(ctx context.Context, model string) (ai.Provider, error) {
		return geminiClient(ctx)
	})

	text, err := reg.Get(ctx, cfg.AIProvider, "")
	if err != nil {
		return nil, err
	}

	var image ai.ImageProvider
	if cfg.ImageProvider == "gemini" {
		image, err = geminiClient(ctx)
		if err != nil {
			return nil, err
		}
	}

	a.log.Info("ai providers ready",
		zap.String("text", cfg.AIProvider),
		zap.String("image", cfg.ImageProvider),
	)
	return ai.NewDispatcher(text, image, a.log), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
