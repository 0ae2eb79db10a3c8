package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

// Ingestor is the subset of Orchestrator the worker drives.
type Ingestor interface {
	Ingest(ctx context.Context, event InboundEvent) (Outcome, error)
}

// Worker consumes inbound events from the queue and hands them to the
// orchestrator. Processing failures leave the message on the queue so
// the provider's at-least-once redelivery retries it; dedup makes the
// replay harmless.
type Worker struct {
	ingestor Ingestor
	queue    queueClient
	logger   *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds >= 0 && seconds <= maxWaitSeconds {
			cfg.receiveWaitSecs = seconds
		}
	}
}

func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size > 0 && size <= maxReceiveBatchSize {
			cfg.receiveBatchSize = size
		}
	}
}

// NewWorker creates a queue consumer for inbound events.
func NewWorker(ingestor Ingestor, queue queueClient, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if ingestor == nil {
		panic("conversation: ingestor cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		ingestor: ingestor,
		queue:    queue,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start launches the worker goroutines. They exit when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("conversation worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("conversation worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive inbound events", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode inbound event", "error", err)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	outcome, err := w.ingestor.Ingest(ctx, payload.Event)
	if err != nil {
		// Left on the queue; redelivery replays it and dedup absorbs
		// any partial progress.
		w.logger.Error("ingest failed, leaving event queued",
			"error", err,
			"job_id", payload.ID,
			"thread_id", payload.Event.ThreadID,
		)
		return
	}

	w.logger.Info("inbound event processed",
		"job_id", payload.ID,
		"thread_id", payload.Event.ThreadID,
		"channel", payload.Event.Channel,
		"outcome", outcome,
	)
	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete inbound event", "error", err)
	}
}
