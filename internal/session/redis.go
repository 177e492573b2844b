package session

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared Store for multi-instance deployments. Each
// conversation lives in one JSON value under its own key with a TTL, so
// expiry and horizontal scale come from Redis itself.
//
// The per-id lock only serializes turns handled by the same process. A
// double-submit split across instances can interleave; with single-value
// read-modify-write the worst case is one clarification asked twice, which
// the round bound absorbs.
type RedisStore struct {
	client      *redis.Client
	ttl         time.Duration
	maxMessages int

	stripes [lockStripes]sync.Mutex
}

type redisConversation struct {
	Messages []Message             `json:"messages"`
	Pending  *PendingClarification `json:"pending,omitempty"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string, ttl time.Duration, maxMessages int) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxMessages <= 0 {
		maxMessages = 20
	}

	return &RedisStore{
		client:      client,
		ttl:         ttl,
		maxMessages: maxMessages,
	}, nil
}

func (r *RedisStore) key(id string) string {
	return "conversation:" + id
}

func (r *RedisStore) Acquire(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	stripe := &r.stripes[h.Sum32()%lockStripes]
	stripe.Lock()
	return stripe.Unlock
}

func (r *RedisStore) History(ctx context.Context, id string) ([]Message, error) {
	c, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Messages, nil
}

func (r *RedisStore) Append(ctx context.Context, id string, role Role, content string) error {
	c, err := r.load(ctx, id)
	if err != nil {
		return err
	}

	c.Messages = append(c.Messages, Message{Role: role, Content: content})
	if len(c.Messages) > r.maxMessages {
		c.Messages = c.Messages[len(c.Messages)-r.maxMessages:]
	}
	return r.save(ctx, id, c)
}

func (r *RedisStore) TakePending(ctx context.Context, id string) (*PendingClarification, error) {
	c, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Pending == nil {
		return nil, nil
	}

	p := *c.Pending
	c.Pending = nil
	if err := r.save(ctx, id, c); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RedisStore) SetPending(ctx context.Context, id string, p PendingClarification) error {
	c, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	c.Pending = &p
	return r.save(ctx, id, c)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) load(ctx context.Context, id string) (*redisConversation, error) {
	data, err := r.client.Get(ctx, r.key(id)).Result()
	if err == redis.Nil {
		return &redisConversation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var c redisConversation
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to parse conversation data: %w", err)
	}
	return &c, nil
}

// save writes the conversation back, refreshing its TTL.
func (r *RedisStore) save(ctx context.Context, id string, c *redisConversation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := r.client.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}
