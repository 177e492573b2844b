package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearshop/internal/llm"
	"github.com/gearshop/internal/session"
)

// scriptedClient returns a fixed response or error for every call.
type scriptedClient struct {
	response string
	err      error
	lastReq  llm.Request
}

func (s *scriptedClient) Complete(_ context.Context, req llm.Request) (string, error) {
	s.lastReq = req
	return s.response, s.err
}

func TestExtract_WellFormedResponse(t *testing.T) {
	client := &scriptedClient{response: `{
		"intent": "search",
		"query": "게이밍 마우스",
		"priceMax": 100000,
		"attrs": [{"key": "connectivity", "op": "eq", "value": "무선"}],
		"limit": 8
	}`}
	e := NewExtractor(client, 0)

	it := e.Extract(context.Background(), "10만원 이하 무선 게이밍 마우스", nil)

	assert.Equal(t, TypeSearch, it.Type)
	assert.Equal(t, "게이밍 마우스", it.Query)
	require.NotNil(t, it.PriceMax)
	assert.Equal(t, int64(100000), *it.PriceMax)
	require.Len(t, it.Attrs, 1)
	assert.Equal(t, "connectivity", it.Attrs[0].Key)
	assert.Equal(t, 8, it.Limit)
	assert.True(t, client.lastReq.JSONOutput)
}

func TestExtract_FencedResponse(t *testing.T) {
	client := &scriptedClient{response: "```json\n{\"intent\": \"recommend\", \"query\": \"마우스\"}\n```"}
	e := NewExtractor(client, 0)

	it := e.Extract(context.Background(), "마우스 추천해줘", nil)

	assert.Equal(t, TypeRecommend, it.Type)
	assert.Equal(t, DefaultLimit, it.Limit)
}

func TestExtract_FallbackPaths(t *testing.T) {
	merged := "게이밍 마우스 추천해줘"

	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "model error", err: errors.New("connection refused")},
		{name: "not json", response: "죄송합니다, 잘 모르겠어요."},
		{name: "unknown intent type", response: `{"intent": "purchase", "query": "마우스"}`},
		{name: "detail without product id", response: `{"intent": "detail"}`},
		{name: "irreparable json", response: `{"intent": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(&scriptedClient{response: tt.response, err: tt.err}, 0)

			it := e.Extract(context.Background(), merged, nil)

			assert.Equal(t, TypeSearch, it.Type)
			assert.Equal(t, merged, it.Query)
			assert.Equal(t, DefaultLimit, it.Limit)
			assert.Empty(t, it.Attrs)
		})
	}
}

func TestExtract_RepairsTrailingComma(t *testing.T) {
	client := &scriptedClient{response: `{"intent": "search", "query": "키보드",}`}
	e := NewExtractor(client, 0)

	it := e.Extract(context.Background(), "키보드", nil)

	assert.Equal(t, TypeSearch, it.Type)
	assert.Equal(t, "키보드", it.Query)
}

func TestExtract_HistoryIsReplayed(t *testing.T) {
	client := &scriptedClient{response: `{"intent": "search", "query": "마우스"}`}
	e := NewExtractor(client, 0)

	history := []session.Message{
		{Role: session.RoleUser, Content: "마우스 추천해줘"},
		{Role: session.RoleAssistant, Content: "예산을 알려주세요."},
	}
	e.Extract(context.Background(), "5만원 이하", history)

	// system + 2 history turns + current message
	require.Len(t, client.lastReq.Messages, 4)
	assert.Equal(t, "system", client.lastReq.Messages[0].Role)
	assert.Equal(t, "마우스 추천해줘", client.lastReq.Messages[1].Content)
	assert.Equal(t, "5만원 이하", client.lastReq.Messages[3].Content)
}
