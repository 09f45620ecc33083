package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/pkg/queue"
)

// Deleter removes stored model objects.
type Deleter interface {
	DeleteModel(ctx context.Context, key string) error
}

// JobQueue is the job source the processor drains.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// ModelCleanupProcessor deletes booth model objects that nothing points at anymore.
type ModelCleanupProcessor struct {
	storage Deleter
	queue   JobQueue
	backoff time.Duration
	logger  *zap.Logger
}

// NewModelCleanupProcessor creates a model clean-up processor.
func NewModelCleanupProcessor(storage Deleter, q JobQueue, logger *zap.Logger) *ModelCleanupProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelCleanupProcessor{storage: storage, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one clean-up job. When some deletions fail, the job
// payload is narrowed to the failed keys so a retry does not repeat the rest.
func (p *ModelCleanupProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeModelCleanup {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ModelCleanupPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var failed []string
	var errs []error
	for _, key := range payload.Keys {
		if err := p.storage.DeleteModel(ctx, key); err != nil {
			failed = append(failed, key)
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		p.logger.Info("model object deleted", zap.String("key", key))
	}
	if len(failed) == 0 {
		return nil
	}
	if body, err := json.Marshal(queue.ModelCleanupPayload{Keys: failed}); err == nil {
		job.Payload = body
	}
	return errors.Join(errs...)
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ModelCleanupProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("model cleanup worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, queue.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *ModelCleanupProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// InlineCleaner deletes model objects in the background of the calling
// process. It stands in for the queue when Redis is not configured.
type InlineCleaner struct {
	storage Deleter
	logger  *zap.Logger
}

// NewInlineCleaner creates an InlineCleaner.
func NewInlineCleaner(storage Deleter, logger *zap.Logger) *InlineCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InlineCleaner{storage: storage, logger: logger}
}

// EnqueueModelCleanup starts deleting keys and returns immediately.
func (c *InlineCleaner) EnqueueModelCleanup(_ context.Context, keys ...string) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		for _, key := range keys {
			if key == "" {
				continue
			}
			if err := c.storage.DeleteModel(ctx, key); err != nil {
				c.logger.Warn("model object delete failed", zap.String("key", key), zap.Error(err))
			}
		}
	}()
	return nil
}
