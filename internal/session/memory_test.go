package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg MemoryConfig) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(cfg)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemoryStore_AppendAndHistory(t *testing.T) {
	s := newTestStore(t, MemoryConfig{})
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "c1", RoleUser, "마우스 추천해줘"))
	require.NoError(t, s.Append(ctx, "c1", RoleAssistant, "예산을 알려주세요."))

	history, err := s.History(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "마우스 추천해줘", history[0].Content)
	assert.Equal(t, RoleAssistant, history[1].Role)

	history, err = s.History(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStore_HistoryTrimsToWindow(t *testing.T) {
	s := newTestStore(t, MemoryConfig{MaxMessages: 4})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Append(ctx, "c1", RoleUser, fmt.Sprintf("message %d", i)))
	}

	history, err := s.History(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "message 6", history[0].Content)
	assert.Equal(t, "message 9", history[3].Content)
}

func TestMemoryStore_PendingIsTakenOnce(t *testing.T) {
	s := newTestStore(t, MemoryConfig{})
	ctx := context.Background()

	require.NoError(t, s.SetPending(ctx, "c1", PendingClarification{
		BaseMessage: "마우스 추천해줘",
		Rounds:      1,
	}))

	p, err := s.TakePending(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "마우스 추천해줘", p.BaseMessage)
	assert.Equal(t, 1, p.Rounds)

	p, err = s.TakePending(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMemoryStore_EvictsOldestConversation(t *testing.T) {
	s := newTestStore(t, MemoryConfig{MaxConversations: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(ctx, fmt.Sprintf("c%d", i), RoleUser, "hello"))
		time.Sleep(2 * time.Millisecond)
	}

	// Touch c0 so c1 becomes the stalest.
	_, err := s.History(ctx, "c0")
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, "c3", RoleUser, "hello"))

	history, err := s.History(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, history, "stalest conversation should be evicted")

	history, err = s.History(ctx, "c0")
	require.NoError(t, err)
	assert.Len(t, history, 1, "recently touched conversation must survive")
}

func TestMemoryStore_ExpiredConversationIsInvisible(t *testing.T) {
	s := newTestStore(t, MemoryConfig{TTL: 10 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "c1", RoleUser, "hello"))
	require.NoError(t, s.SetPending(ctx, "c1", PendingClarification{BaseMessage: "hello"}))

	time.Sleep(25 * time.Millisecond)

	history, err := s.History(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, history)

	p, err := s.TakePending(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMemoryStore_AcquireSerializesSameID(t *testing.T) {
	s := newTestStore(t, MemoryConfig{})

	var mu sync.Mutex
	maxConcurrent := 0
	current := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := s.Acquire("same-id")
			defer release()

			mu.Lock()
			current++
			if current > maxConcurrent {
				maxConcurrent = current
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxConcurrent, "turns for one conversation must not overlap")
}
