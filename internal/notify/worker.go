package notify

import (
	"context"
	"sync"
	"time"

	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

const (
	defaultQueueBuffer = 64
	notifyTimeout      = 15 * time.Second
)

// Worker drains escalation alerts off a buffered channel so the ingest
// path never blocks on notification latency. Failures are logged, not
// retried.
type Worker struct {
	notifier Notifier
	queue    chan Escalation
	logger   *logging.Logger
	wg       sync.WaitGroup
}

// NewWorker builds an escalation worker around a notifier.
func NewWorker(notifier Notifier, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		notifier: notifier,
		queue:    make(chan Escalation, defaultQueueBuffer),
		logger:   logger,
	}
}

// Enqueue hands off an escalation without blocking. A saturated queue
// drops the alert and reports ErrQueueFull; the thread is already
// marked needs_human by then, so the operator still sees it.
func (w *Worker) Enqueue(esc Escalation) error {
	if w == nil {
		return nil
	}
	select {
	case w.queue <- esc:
		return nil
	default:
		w.logger.Warn("escalation queue full, dropping alert", "thread_id", esc.ThreadID)
		return ErrQueueFull
	}
}

// Start launches the drain goroutine until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case esc := <-w.queue:
				w.deliver(esc)
			}
		}
	}()
}

// Wait blocks until the drain goroutine exits.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) deliver(esc Escalation) {
	if w.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := w.notifier.NotifyEscalation(ctx, esc); err != nil {
		w.logger.Error("escalation notify failed", "error", err, "thread_id", esc.ThreadID)
	}
}
