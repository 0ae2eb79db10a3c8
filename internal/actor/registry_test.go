package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

func TestDoReturnsOperationError(t *testing.T) {
	r := NewRegistry(logging.Default())
	defer r.Shutdown(context.Background())

	want := errors.New("boom")
	err := r.Do(context.Background(), "thread-1", func(context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected operation error, got %v", err)
	}
}

func TestSameKeyExecutesSequentially(t *testing.T) {
	r := NewRegistry(logging.Default())
	defer r.Shutdown(context.Background())

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	var inFlight int

	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			_ = r.Do(context.Background(), "thread-1", func(context.Context) error {
				mu.Lock()
				inFlight++
				if inFlight > 1 {
					t.Error("two operations interleaved on one key")
				}
				order = append(order, i)
				inFlight--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if len(order) != 20 {
		t.Fatalf("expected 20 executions, got %d", len(order))
	}
}

func TestDifferentKeysRunInParallel(t *testing.T) {
	r := NewRegistry(logging.Default())
	defer r.Shutdown(context.Background())

	release := make(chan struct{})
	started := make(chan string, 2)
	var wg sync.WaitGroup
	for _, key := range []string{"prop-a", "prop-b"} {
		wg.Add(1)
		key := key
		go func() {
			defer wg.Done()
			_ = r.Do(context.Background(), key, func(context.Context) error {
				started <- key
				<-release
				return nil
			})
		}()
	}

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("keys did not run in parallel")
		}
	}
	close(release)
	wg.Wait()
}

func TestIdleInstanceRetires(t *testing.T) {
	r := NewRegistry(logging.Default(), WithIdleTTL(20*time.Millisecond))
	defer r.Shutdown(context.Background())

	if err := r.Do(context.Background(), "thread-9", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("do: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for r.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("instance never retired, resident=%d", r.Len())
		case <-time.After(10 * time.Millisecond):
		}
	}

	// A retired key is transparently recreated.
	if err := r.Do(context.Background(), "thread-9", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("do after retire: %v", err)
	}
}

func TestShutdownRejectsNewWork(t *testing.T) {
	r := NewRegistry(logging.Default())
	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	err := r.Do(context.Background(), "thread-1", func(context.Context) error { return nil })
	if !errors.Is(err, ErrRegistryClosed) {
		t.Fatalf("expected ErrRegistryClosed, got %v", err)
	}
}
