// Package workflow runs the fixed generation pipelines behind each job kind:
// recruiting a hero, creating a quest, starting a quest and telling a story.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/ai"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/artifact"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/chain"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/job"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/thread"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Generator is the model surface the workflows need; *ai.Dispatcher
// implements it.
type Generator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
	GenerateTextWithHistory(ctx context.Context, system string, history []ai.Message, user string) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	GenerateStructured(ctx context.Context, schema ai.Schema, content string, out any) error
}

// Executor runs a stored job to completion.
type Executor interface {
	Execute(ctx context.Context, j *job.Job) error
}

type Deps struct {
	Generator Generator
	Artifacts artifact.Store
	Chain     chain.Gateway
	Threads   thread.Store
	Jobs      job.Store
	Log       *zap.Logger
	// Rand seeds gender picks and stat rolls; nil uses a random seed.
	Rand *rand.Rand
}

type Engine struct {
	gen       Generator
	artifacts artifact.Store
	chain     chain.Gateway
	threads   thread.Store
	jobs      job.Store
	log       *zap.Logger
	validate  *validator.Validate

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewEngine(d Deps) *Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if d.Threads == nil {
		d.Threads = thread.NewMemoryStore(thread.DefaultWindow)
	}
	return &Engine{
		gen:       d.Generator,
		artifacts: d.Artifacts,
		chain:     d.Chain,
		threads:   d.Threads,
		jobs:      d.Jobs,
		log:       d.Log,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		rng:       d.Rand,
	}
}

// Execute runs j's workflow and records the outcome. The returned error is
// the workflow's failure, already stored on the job.
func (e *Engine) Execute(ctx context.Context, j *job.Job) error {
	start := time.Now()
	log := e.log.With(zap.String("job_id", j.ID), zap.String("kind", string(j.Kind)))
	log.Info("job started")

	result, err := e.run(ctx, j)

	// record the outcome even when ctx was cancelled mid-workflow
	storeCtx := context.WithoutCancel(ctx)
	if err != nil {
		log.Warn("job failed",
			zap.Duration("duration", time.Since(start)),
			zap.String("error_kind", string(faults.KindOf(err))),
			zap.Error(err),
		)
		e.record(log, e.jobs.Fail(storeCtx, j.ID, err))
		return err
	}

	log.Info("job completed", zap.Duration("duration", time.Since(start)))
	e.record(log, e.jobs.Complete(storeCtx, j.ID, result))
	return nil
}

func (e *Engine) record(log *zap.Logger, err error) {
	switch {
	case err == nil:
	case errors.Is(err, job.ErrNotPending), errors.Is(err, job.ErrNotFound):
		log.Error("job state transition rejected", zap.Error(err))
	default:
		log.Error("job state not saved", zap.Error(err))
	}
}

func (e *Engine) run(ctx context.Context, j *job.Job) (any, error) {
	switch j.Kind {
	case job.KindCreateHero:
		var req HeroRequest
		if err := j.Decode(&req); err != nil {
			return nil, faults.E(faults.Validation, "create hero", err)
		}
		return e.CreateHero(ctx, req)
	case job.KindCreateQuest:
		var req QuestRequest
		if err := j.Decode(&req); err != nil {
			return nil, faults.E(faults.Validation, "create quest", err)
		}
		return e.CreateQuest(ctx, req)
	case job.KindStartQuest:
		var req StartRequest
		if err := j.Decode(&req); err != nil {
			return nil, faults.E(faults.Validation, "start quest", err)
		}
		return e.StartQuest(ctx, req)
	case job.KindStoryText:
		var req StoryRequest
		if err := j.Decode(&req); err != nil {
			return nil, faults.E(faults.Validation, "story text", err)
		}
		return e.StoryText(ctx, req)
	default:
		return nil, faults.Errorf(faults.Internal, "execute", "unknown job kind %q", j.Kind)
	}
}

// withRand serializes access to the shared random source.
func (e *Engine) withRand(f func(*rand.Rand)) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	f(e.rng)
}

func step(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
