package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gearshop/internal/catalog"
	"github.com/gearshop/internal/intent"
	"github.com/gearshop/internal/llm"
	"github.com/gearshop/internal/session"
)

const composerSystemPrompt = `너는 한국어 IT기기 쇼핑 도우미(구매 상담 챗봇)다.

규칙:
1) 반드시 payload의 products/detail에 있는 상품만 언급한다.
2) payload에 없는 상품, 가격, 사양을 지어내지 않는다.
3) products와 detail이 모두 비어 있으면, 조건에 맞는 상품을 찾지 못했다고
   정중히 알리고 조건을 조금 바꿔보라고 제안한다.
4) 각 상품은 제품명 / 추천 이유(1~2줄) / 가격으로 짧게 쓴다.
5) 답변은 짧고 실용적으로 불릿으로 작성한다.`

const clarificationHeader = "추천을 더 정확히 하려면 몇 가지만 알려주세요!"

const defaultClarifyReply = "원하시는 조건을 1~2개만 더 알려주세요! (예: 예산/용도/무선 or 유선)"

// Composer builds the user-facing reply. Clarification turns are pure
// templates; result turns make one model call bound to the result payload.
type Composer struct {
	client        llm.Client
	timeout       time.Duration
	historyWindow int
}

// NewComposer builds a composer over the given model client.
func NewComposer(client llm.Client, timeout time.Duration, historyWindow int) *Composer {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &Composer{client: client, timeout: timeout, historyWindow: historyWindow}
}

// ClarificationReply renders the follow-up question list. No model call: the
// questions are already final text and a second call would only add latency
// and cost to a turn that returns no products.
func (c *Composer) ClarificationReply(questions []string) string {
	var b strings.Builder
	b.WriteString(clarificationHeader)
	for i, q := range questions {
		b.WriteString(fmt.Sprintf("\n%d) %s", i+1, q))
	}
	return b.String()
}

// ClarifyReply handles a clarify-type intent: the model already phrased the
// follow-up, or we use the stock one.
func (c *Composer) ClarifyReply(followup string) string {
	if strings.TrimSpace(followup) != "" {
		return followup
	}
	return defaultClarifyReply
}

type composePayload struct {
	UserMessage string            `json:"userMessage"`
	Intent      intent.Intent     `json:"intent"`
	Products    []catalog.Product `json:"products"`
	Detail      *catalog.Detail   `json:"detail"`
}

// Compose makes the prose model call for a result turn. The system prompt
// restricts the reply to the supplied payload; recent history gives the
// model conversational continuity.
func (c *Composer) Compose(ctx context.Context, it intent.Intent, userMessage string, products []catalog.Product, detail *catalog.Detail, history []session.Message) (string, error) {
	if products == nil {
		products = []catalog.Product{}
	}
	payload, err := json.Marshal(composePayload{
		UserMessage: userMessage,
		Intent:      it,
		Products:    products,
		Detail:      detail,
	})
	if err != nil {
		return "", fmt.Errorf("marshal compose payload: %w", err)
	}

	if len(history) > c.historyWindow {
		history = history[len(history)-c.historyWindow:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: composerSystemPrompt})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: string(payload)})

	reply, err := c.client.Complete(ctx, llm.Request{
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   700,
		Timeout:     c.timeout,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
