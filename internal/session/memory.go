package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const lockStripes = 64

// MemoryStore is the single-instance Store: a capacity- and TTL-bounded map
// keyed by conversation id. When the store is full it evicts the least
// recently touched conversation, never individual messages inside one.
type MemoryStore struct {
	mu     sync.Mutex
	convos map[string]*conversation

	maxConversations int
	maxMessages      int
	ttl              time.Duration

	stripes [lockStripes]sync.Mutex
	stop    chan struct{}
	once    sync.Once
}

type conversation struct {
	messages []Message
	pending  *PendingClarification
	lastSeen time.Time
}

// MemoryConfig bounds the in-memory store. Zero values pick safe defaults.
type MemoryConfig struct {
	MaxConversations int
	MaxMessages      int
	TTL              time.Duration
}

// NewMemoryStore creates the store and starts a sweeper that drops expired
// conversations in the background.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.MaxConversations <= 0 {
		cfg.MaxConversations = 10000
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 20
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}

	s := &MemoryStore{
		convos:           make(map[string]*conversation),
		maxConversations: cfg.MaxConversations,
		maxMessages:      cfg.MaxMessages,
		ttl:              cfg.TTL,
		stop:             make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Acquire serializes turns for one conversation id. Locks are striped so
// unrelated conversations only contend on hash collisions, never on a
// global lock.
func (s *MemoryStore) Acquire(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	stripe := &s.stripes[h.Sum32()%lockStripes]
	stripe.Lock()
	return stripe.Unlock
}

func (s *MemoryStore) History(ctx context.Context, id string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.convos[id]
	if c == nil || s.expired(c) {
		return nil, nil
	}
	c.lastSeen = time.Now()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, id string, role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.touch(id)
	c.messages = append(c.messages, Message{Role: role, Content: content})
	if len(c.messages) > s.maxMessages {
		c.messages = c.messages[len(c.messages)-s.maxMessages:]
	}
	return nil
}

func (s *MemoryStore) TakePending(ctx context.Context, id string) (*PendingClarification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.convos[id]
	if c == nil || s.expired(c) || c.pending == nil {
		return nil, nil
	}
	c.lastSeen = time.Now()

	p := *c.pending
	c.pending = nil
	return &p, nil
}

func (s *MemoryStore) SetPending(ctx context.Context, id string, p PendingClarification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.touch(id)
	c.pending = &p
	return nil
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// touch returns the live conversation for id, creating it and evicting the
// stalest conversation when the store is at capacity. Caller holds s.mu.
func (s *MemoryStore) touch(id string) *conversation {
	c := s.convos[id]
	if c != nil && s.expired(c) {
		delete(s.convos, id)
		c = nil
	}
	if c == nil {
		if len(s.convos) >= s.maxConversations {
			s.evictOldest()
		}
		c = &conversation{}
		s.convos[id] = c
	}
	c.lastSeen = time.Now()
	return c
}

func (s *MemoryStore) expired(c *conversation) bool {
	return time.Since(c.lastSeen) > s.ttl
}

func (s *MemoryStore) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, c := range s.convos {
		if oldestID == "" || c.lastSeen.Before(oldest) {
			oldestID = id
			oldest = c.lastSeen
		}
	}
	if oldestID != "" {
		delete(s.convos, oldestID)
		log.Debug().Str("conversation_id", oldestID).Msg("Evicted oldest conversation")
	}
}

func (s *MemoryStore) sweep() {
	interval := s.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			removed := 0
			for id, c := range s.convos {
				if s.expired(c) {
					delete(s.convos, id)
					removed++
				}
			}
			s.mu.Unlock()
			if removed > 0 {
				log.Debug().Int("removed", removed).Msg("Swept expired conversations")
			}
		}
	}
}
