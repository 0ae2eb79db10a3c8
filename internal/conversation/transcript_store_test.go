package conversation

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestTranscriptStore(t *testing.T) *TranscriptStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTranscriptStore(client)
}

func TestTranscriptAppendAndList(t *testing.T) {
	store := newTestTranscriptStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, "thread-1", TranscriptMessage{Role: ChatRoleUser, Body: "hi"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, "thread-1", TranscriptMessage{Role: ChatRoleAssistant, Body: "hello"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	messages, err := store.List(ctx, "thread-1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Role != ChatRoleUser || messages[1].Role != ChatRoleAssistant {
		t.Errorf("roles = %q, %q", messages[0].Role, messages[1].Role)
	}
	if messages[0].ID == "" || messages[0].Timestamp.IsZero() {
		t.Error("Append must assign id and timestamp")
	}
}

func TestTranscriptListLimit(t *testing.T) {
	store := newTestTranscriptStore(t)
	ctx := context.Background()

	for _, body := range []string{"one", "two", "three"} {
		if err := store.Append(ctx, "thread-1", TranscriptMessage{Role: ChatRoleUser, Body: body}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	messages, err := store.List(ctx, "thread-1", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Body != "two" || messages[1].Body != "three" {
		t.Errorf("limit should keep the newest messages, got %q, %q", messages[0].Body, messages[1].Body)
	}
}

func TestTranscriptIsolatedPerThread(t *testing.T) {
	store := newTestTranscriptStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, "thread-1", TranscriptMessage{Role: ChatRoleUser, Body: "hi"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	messages, err := store.List(ctx, "thread-2", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("thread-2 should be empty, got %d messages", len(messages))
	}
}

func TestTranscriptNilStoreIsNoop(t *testing.T) {
	var store *TranscriptStore

	if err := store.Append(context.Background(), "thread-1", TranscriptMessage{Body: "hi"}); err != nil {
		t.Fatalf("nil Append: %v", err)
	}
	if _, err := store.List(context.Background(), "thread-1", 0); err != nil {
		t.Fatalf("nil List: %v", err)
	}
}
