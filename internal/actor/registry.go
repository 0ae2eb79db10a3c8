package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// ErrRegistryClosed is returned when an operation is submitted after Shutdown.
var ErrRegistryClosed = errors.New("actor: registry closed")

const (
	defaultMailboxBuffer = 64
	defaultIdleTTL       = 5 * time.Minute
)

// Registry routes operations to keyed single-writer instances. All
// operations for one key execute strictly sequentially on a dedicated
// goroutine; different keys run fully in parallel and share no state.
// Idle instances are retired and recreated transparently on next use.
type Registry struct {
	mu        sync.Mutex
	instances map[string]*instance
	closed    bool

	buffer  int
	idleTTL time.Duration
	wg      sync.WaitGroup
	stop    chan struct{}
	logger  *logging.Logger
}

type instance struct {
	key     string
	mailbox chan task
	pending int
}

type task struct {
	ctx  context.Context
	fn   func(context.Context) error
	errc chan error
}

// Option customizes registry behavior.
type Option func(*Registry)

// WithMailboxBuffer sets the per-instance mailbox capacity.
func WithMailboxBuffer(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.buffer = n
		}
	}
}

// WithIdleTTL sets how long an instance with an empty mailbox stays
// resident before its goroutine retires.
func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *logging.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Registry{
		instances: make(map[string]*instance),
		buffer:    defaultMailboxBuffer,
		idleTTL:   defaultIdleTTL,
		stop:      make(chan struct{}),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn on the instance owning key and returns its error. The call
// blocks until fn has completed; operations queued behind other work on
// the same key wait their turn. Once started, fn runs to completion
// even if ctx is cancelled mid-flight.
func (r *Registry) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	inst, err := r.acquire(key)
	if err != nil {
		return err
	}

	t := task{ctx: ctx, fn: fn, errc: make(chan error, 1)}
	select {
	case inst.mailbox <- t:
	case <-ctx.Done():
		r.finish(inst)
		return ctx.Err()
	}

	select {
	case err := <-t.errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues fn without waiting for completion. Errors are logged.
func (r *Registry) Submit(key string, fn func(context.Context) error) error {
	inst, err := r.acquire(key)
	if err != nil {
		return err
	}
	t := task{ctx: context.Background(), fn: fn, errc: make(chan error, 1)}
	select {
	case inst.mailbox <- t:
	default:
		// Mailbox full: the instance is live and draining, block briefly
		// rather than dropping the operation.
		go func() {
			inst.mailbox <- t
		}()
	}
	go func() {
		if err := <-t.errc; err != nil {
			r.logger.Error("actor operation failed", "key", key, "error", err)
		}
	}()
	return nil
}

// Shutdown stops accepting new operations, drains queued ones, and
// waits for all instance goroutines to exit or ctx to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.stop)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the number of resident instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

func (r *Registry) acquire(key string) (*instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	inst, ok := r.instances[key]
	if !ok {
		inst = &instance{
			key:     key,
			mailbox: make(chan task, r.buffer),
		}
		r.instances[key] = inst
		r.wg.Add(1)
		go r.run(inst)
	}
	inst.pending++
	return inst, nil
}

func (r *Registry) finish(inst *instance) {
	r.mu.Lock()
	inst.pending--
	r.mu.Unlock()
}

// tryRetire removes the instance when no operation is pending. Returns
// false when work arrived between the idle timeout and the lock.
func (r *Registry) tryRetire(inst *instance) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst.pending > 0 {
		return false
	}
	delete(r.instances, inst.key)
	return true
}

func (r *Registry) run(inst *instance) {
	defer r.wg.Done()
	idle := time.NewTimer(r.idleTTL)
	defer idle.Stop()

	for {
		select {
		case t := <-inst.mailbox:
			t.errc <- r.execute(inst.key, t)
			r.finish(inst)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.idleTTL)
		case <-idle.C:
			if r.tryRetire(inst) {
				return
			}
			idle.Reset(r.idleTTL)
		case <-r.stop:
			r.drain(inst)
			return
		}
	}
}

func (r *Registry) drain(inst *instance) {
	for {
		select {
		case t := <-inst.mailbox:
			t.errc <- r.execute(inst.key, t)
			r.finish(inst)
		default:
			r.mu.Lock()
			delete(r.instances, inst.key)
			r.mu.Unlock()
			return
		}
	}
}

func (r *Registry) execute(key string, t task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("actor: panic in %s: %v", key, rec)
		}
	}()
	return t.fn(t.ctx)
}
