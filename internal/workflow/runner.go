package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/job"
	"go.uber.org/zap"
)

var ErrRunnerClosed = errors.New("runner is shut down")

// Handle tracks one job running in the background.
type Handle struct {
	JobID  string
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

// Done is closed when the job's workflow has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job finishes or ctx ends, and returns the workflow
// error.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel aborts the job's context. The job is then recorded as failed.
func (h *Handle) Cancel() { h.cancel() }

// LocalRunner executes jobs in goroutines owned by the process.
type LocalRunner struct {
	exec    Executor
	timeout time.Duration
	log     *zap.Logger

	base context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewLocalRunner returns a runner; a positive timeout bounds each job.
func NewLocalRunner(exec Executor, timeout time.Duration, log *zap.Logger) *LocalRunner {
	if log == nil {
		log = zap.NewNop()
	}
	base, stop := context.WithCancel(context.Background())
	return &LocalRunner{exec: exec, timeout: timeout, log: log, base: base, stop: stop}
}

func (r *LocalRunner) Start(j *job.Job) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRunnerClosed
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(r.base, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(r.base)
	}
	h := &Handle{JobID: j.ID, done: make(chan struct{}), cancel: cancel}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(h.done)
		defer cancel()
		h.err = r.exec.Execute(ctx, j)
	}()
	return h, nil
}

// Submit starts j without waiting for it.
func (r *LocalRunner) Submit(ctx context.Context, j *job.Job) error {
	_, err := r.Start(j)
	return err
}

// Shutdown refuses new jobs and waits for running ones. When ctx ends first
// the remaining jobs are cancelled and Shutdown returns once they have
// recorded their failure.
func (r *LocalRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.stop()
		return nil
	case <-ctx.Done():
		r.log.Warn("shutdown deadline reached, cancelling running jobs")
		r.stop()
		<-done
		return ctx.Err()
	}
}
