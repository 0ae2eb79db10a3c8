package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	transcriptKeyPrefix = "thread_transcript:"
	transcriptTTL       = 30 * 24 * time.Hour
)

// TranscriptMessage is one mirrored message in the Redis transcript.
type TranscriptMessage struct {
	ID                string    `json:"id"`
	Role              string    `json:"role"` // "user" or "assistant"
	Channel           string    `json:"channel"`
	From              string    `json:"from"`
	To                string    `json:"to"`
	Body              string    `json:"body"`
	Timestamp         time.Time `json:"timestamp"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
}

// TranscriptStore mirrors thread transcripts to Redis for fast preview
// reads. The Postgres event log stays authoritative; this store is
// best-effort and safe to run without a Redis client.
type TranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
}

func NewTranscriptStore(redisClient *redis.Client) *TranscriptStore {
	if redisClient == nil {
		return nil
	}
	return &TranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("guestline.internal.conversation.transcript"),
		maxMessages: 250,
	}
}

func (s *TranscriptStore) Append(ctx context.Context, threadID string, msg TranscriptMessage) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if threadID == "" {
		return errors.New("conversation: transcript threadID required")
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("conversation: marshal transcript message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.append")
	defer span.End()

	key := transcriptKey(threadID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	_, err = pipe.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: append transcript message: %w", err)
	}
	return nil
}

func (s *TranscriptStore) List(ctx context.Context, threadID string, limit int64) ([]TranscriptMessage, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if threadID == "" {
		return nil, errors.New("conversation: transcript threadID required")
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.list")
	defer span.End()

	start := int64(0)
	end := int64(-1)
	if limit > 0 {
		start = -limit
	}

	key := transcriptKey(threadID)
	raw, err := s.redis.LRange(ctx, key, start, end).Result()
	if err != nil {
		span.RecordError(err)
		if err == redis.Nil {
			return []TranscriptMessage{}, nil
		}
		return nil, fmt.Errorf("conversation: list transcript: %w", err)
	}

	out := make([]TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg TranscriptMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func transcriptKey(threadID string) string {
	return transcriptKeyPrefix + threadID
}
