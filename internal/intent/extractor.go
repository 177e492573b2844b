package intent

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gearshop/internal/llm"
	"github.com/gearshop/internal/session"
)

const extractorSystemPrompt = `You are the intent parser for an IT gear
shopping assistant. Turn the user's message into one JSON object and output
nothing else. Schema:

{
  "intent": "search" | "recommend" | "detail" | "clarify",
  "query": string,
  "categoryId": number | null,
  "brand": string | null,
  "priceMin": number | null,
  "priceMax": number | null,
  "attrs": [{"key": string, "op": "eq" | "like", "value": string}],
  "productId": number | null,
  "limit": number | null,
  "followupQuestion": string | null
}

Prices are Korean won. Put connectivity, grip, switch type and similar specs
into attrs. Use "detail" only when the user refers to one specific product id.
Use "clarify" with a followupQuestion when the message cannot be acted on.`

// Extractor wraps one structured-output model call per turn. It never
// returns an error: malformed or unavailable model output degrades to the
// deterministic fallback intent.
type Extractor struct {
	client  llm.Client
	timeout time.Duration
}

// NewExtractor builds an extractor using the given model client.
func NewExtractor(client llm.Client, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Extractor{client: client, timeout: timeout}
}

// Extract parses the merged message text into an Intent. The recent history
// window gives the model context for elliptical follow-ups ("the cheaper
// one"), but only merged carries the current request.
func (e *Extractor) Extract(ctx context.Context, merged string, history []session.Message) Intent {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: extractorSystemPrompt})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: merged})

	response, err := e.client.Complete(ctx, llm.Request{
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   300,
		JSONOutput:  true,
		Timeout:     e.timeout,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Intent extraction call failed, using fallback intent")
		return Fallback(merged)
	}

	var it Intent
	repairedJSON, err := llm.UnmarshalLenient(response, &it)
	if err != nil {
		log.Warn().Err(err).Str("response", truncate(response, 200)).
			Msg("Intent extraction returned malformed JSON, using fallback intent")
		return Fallback(merged)
	}
	if repairedJSON {
		log.Warn().Msg("Intent JSON needed repair before parsing")
	}

	if !it.Normalize() {
		log.Warn().Str("type", string(it.Type)).
			Msg("Intent failed schema validation, using fallback intent")
		return Fallback(merged)
	}

	if it.Query == "" {
		it.Query = merged
	}
	return it
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
