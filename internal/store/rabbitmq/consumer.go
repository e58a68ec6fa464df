package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/job"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const retryDelay = 5 * time.Second

// ErrDeliveriesClosed means the broker closed the consumer's channel.
var ErrDeliveriesClosed = errors.New("rabbit delivery channel closed")

// Executor runs a stored job and records its outcome.
type Executor interface {
	Execute(ctx context.Context, j *job.Job) error
}

type ConsumerConfig struct {
	URL         string
	Queue       string
	Concurrency int
	// JobTimeout bounds each job when positive.
	JobTimeout time.Duration
}

// Consumer pulls job ids off the queue and executes them with a bounded
// pool of workers.
type Consumer struct {
	cfg  ConsumerConfig
	jobs job.Store
	exec Executor
	log  *zap.Logger

	conn *amqp.Connection
	ch   *amqp.Channel

	// retry re-queues a job id after retryDelay
	retry func(ctx context.Context, jobID string) error
}

func NewConsumer(cfg ConsumerConfig, jobs job.Store, exec Executor, log *zap.Logger) (*Consumer, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.Concurrency > 50 {
		cfg.Concurrency = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	conn, ch, err := dial(cfg.URL, cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("rabbit consumer: %w", err)
	}
	// strict concurrency control
	if err := ch.Qos(cfg.Concurrency, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbit qos: %w", err)
	}
	c := &Consumer{cfg: cfg, jobs: jobs, exec: exec, log: log, conn: conn, ch: ch}
	c.retry = func(ctx context.Context, jobID string) error {
		return publish(ctx, ch, retryQueue(cfg.Queue), jobID, retryDelay)
	}
	return c, nil
}

func (c *Consumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

// Run consumes until ctx ends or the broker closes the channel. In-flight
// jobs are allowed to finish before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbit consume: %w", err)
	}
	c.log.Info("worker started",
		zap.String("queue", c.cfg.Queue),
		zap.Int("concurrency", c.cfg.Concurrency),
	)
	return c.dispatch(ctx, msgs)
}

func (c *Consumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery) error {
	deliveries := make(chan amqp.Delivery, c.cfg.Concurrency*2)

	var wg sync.WaitGroup
	wg.Add(c.cfg.Concurrency)
	for i := 0; i < c.cfg.Concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range deliveries {
				c.handle(ctx, workerID, d)
			}
		}(i)
	}

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			c.log.Info("worker shutting down")
			break loop
		case d, ok := <-msgs:
			if !ok {
				err = ErrDeliveriesClosed
				break loop
			}
			deliveries <- d
		}
	}
	close(deliveries)
	wg.Wait()
	return err
}

func (c *Consumer) handle(ctx context.Context, workerID int, d amqp.Delivery) {
	log := c.log.With(zap.Int("worker", workerID))

	var m JobMessage
	if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
		log.Warn("bad message", zap.ByteString("body", d.Body), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	log = log.With(zap.String("job_id", m.JobID))

	// the job outlives a cancelled consumer; its record must still be written
	jobCtx := context.WithoutCancel(ctx)
	j, err := c.jobs.Get(jobCtx, m.JobID)
	switch {
	case errors.Is(err, job.ErrNotFound):
		log.Warn("job not found")
		_ = d.Nack(false, false)
		return
	case err != nil:
		log.Warn("load job, retrying", zap.Duration("delay", retryDelay), zap.Error(err))
		if rerr := c.retry(jobCtx, m.JobID); rerr != nil {
			log.Error("retry publish failed", zap.Error(rerr))
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
		return
	case j.Status.Terminal():
		// redelivered after a crash between recording and ack
		log.Info("job already finished", zap.String("status", string(j.Status)))
		_ = d.Ack(false)
		return
	}

	var cancel context.CancelFunc
	if c.cfg.JobTimeout > 0 {
		jobCtx, cancel = context.WithTimeout(jobCtx, c.cfg.JobTimeout)
	} else {
		jobCtx, cancel = context.WithCancel(jobCtx)
	}
	defer cancel()

	// a failed workflow is recorded on the job; the message is done either way
	_ = c.exec.Execute(jobCtx, j)
	if err := d.Ack(false); err != nil {
		log.Error("ack failed", zap.Error(err))
	}
}
