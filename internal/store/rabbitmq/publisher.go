package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/job"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   *zap.Logger
}

func NewPublisher(url, queue string, log *zap.Logger) (*Publisher, error) {
	conn, ch, err := dial(url, queue)
	if err != nil {
		return nil, fmt.Errorf("rabbit publisher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{conn: conn, ch: ch, queue: queue, log: log}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Submit queues j for a worker. The job itself stays in the shared store.
func (p *Publisher) Submit(ctx context.Context, j *job.Job) error {
	if err := p.PublishJob(ctx, j.ID); err != nil {
		return fmt.Errorf("publish job %s: %w", j.ID, err)
	}
	p.log.Debug("job published", zap.String("job_id", j.ID), zap.String("queue", p.queue))
	return nil
}

func (p *Publisher) PublishJob(ctx context.Context, jobID string) error {
	return publish(ctx, p.ch, p.queue, jobID, 0)
}

// publish sends a job message; a positive delay sets a per-message TTL,
// used for the retry queue.
func publish(ctx context.Context, ch *amqp.Channel, queue, jobID string, delay time.Duration) error {
	body, err := json.Marshal(JobMessage{JobID: jobID})
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	}
	if delay > 0 {
		msg.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	}
	return ch.PublishWithContext(cctx, "", queue, false, false, msg)
}
