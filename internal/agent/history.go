package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Transcripts expire after a day of inactivity.
const historyTTL = 24 * time.Hour

// HistoryStore persists conversation transcripts between requests.
type HistoryStore interface {
	Save(ctx context.Context, conversationID string, history []Message) error
	Load(ctx context.Context, conversationID string) ([]Message, error)
}

// RedisHistoryStore keeps transcripts in redis with a sliding TTL.
type RedisHistoryStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewRedisHistoryStore(client *redis.Client, tracer trace.Tracer) *RedisHistoryStore {
	if client == nil {
		panic("agent: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("receptionist.internal.agent.history")
	}
	return &RedisHistoryStore{redis: client, tracer: tracer}
}

func (s *RedisHistoryStore) Save(ctx context.Context, conversationID string, history []Message) error {
	ctx, span := s.tracer.Start(ctx, "agent.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("agent: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, conversationKey(conversationID), data, historyTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("agent: failed to persist history: %w", err)
	}
	return nil
}

func (s *RedisHistoryStore) Load(ctx context.Context, conversationID string) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "agent.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, conversationKey(conversationID)).Bytes()
	if err != nil {
		span.RecordError(err)
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownConversation, conversationID)
		}
		return nil, fmt.Errorf("agent: failed to load history: %w", err)
	}

	var history []Message
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("agent: failed to decode history: %w", err)
	}
	return history, nil
}

func conversationKey(id string) string {
	return fmt.Sprintf("conversation:%s", id)
}

// MemoryHistoryStore is the in-process HistoryStore for tests and
// single-instance runs without redis. No TTL is applied.
type MemoryHistoryStore struct {
	mu          sync.Mutex
	transcripts map[string][]Message
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{transcripts: map[string][]Message{}}
}

func (s *MemoryHistoryStore) Save(ctx context.Context, conversationID string, history []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[conversationID] = append([]Message(nil), history...)
	return nil
}

func (s *MemoryHistoryStore) Load(ctx context.Context, conversationID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.transcripts[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConversation, conversationID)
	}
	return append([]Message(nil), history...), nil
}
