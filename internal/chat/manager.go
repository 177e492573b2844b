// Package chat orchestrates one assistant turn: merge pending context,
// extract intent, gate on the clarification policy, query the catalog and
// compose the reply.
package chat

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gearshop/internal/catalog"
	"github.com/gearshop/internal/intent"
	"github.com/gearshop/internal/session"
)

// mergeSeparator joins a pending base message with the user's follow-up
// answer, mirroring how the questions were asked.
const mergeSeparator = "\n추가 조건: "

// IntentExtractor produces a validated intent from merged message text. It
// must not fail; degraded output is the fallback intent.
type IntentExtractor interface {
	Extract(ctx context.Context, merged string, history []session.Message) intent.Intent
}

// Policy yields the follow-up questions still needed before searching.
type Policy interface {
	Evaluate(merged string) []string
}

// Catalog is the read-only product store contract the manager drives.
type Catalog interface {
	Search(ctx context.Context, it intent.Intent) ([]catalog.Product, error)
	Recommend(ctx context.Context, it intent.Intent, userID int64) ([]catalog.Product, error)
	Newest(ctx context.Context, limit int) ([]catalog.Product, error)
	Detail(ctx context.Context, productID int64) (*catalog.Detail, error)
}

// Request is one inbound chat turn.
type Request struct {
	ConversationID string
	Message        string
	UserID         *int64 // nil for anonymous users
}

// Response is the reply for one turn.
type Response struct {
	ConversationID string            `json:"conversationId"`
	Reply          string            `json:"reply"`
	Products       []catalog.Product `json:"products"`
}

// Manager runs the dialogue state machine. A conversation is FRESH unless a
// pending clarification exists; consecutive clarification rounds are bounded
// by maxRounds, after which the turn proceeds to a query with whatever
// information is available.
type Manager struct {
	store        session.Store
	extractor    IntentExtractor
	policy       Policy
	catalog      Catalog
	composer     *Composer
	maxRounds    int
	replayWindow int
}

// Options bound the manager's dialogue behavior.
type Options struct {
	MaxClarifyRounds int
	ReplayWindow     int
}

// NewManager wires the dialogue manager.
func NewManager(store session.Store, extractor IntentExtractor, policy Policy, cat Catalog, composer *Composer, opts Options) *Manager {
	if opts.MaxClarifyRounds <= 0 {
		opts.MaxClarifyRounds = 2
	}
	if opts.ReplayWindow <= 0 {
		opts.ReplayWindow = 10
	}
	return &Manager{
		store:        store,
		extractor:    extractor,
		policy:       policy,
		catalog:      cat,
		composer:     composer,
		maxRounds:    opts.MaxClarifyRounds,
		replayWindow: opts.ReplayWindow,
	}
}

// Handle processes one turn for a conversation. Turns for the same
// conversation id are serialized; different ids run in parallel.
func (m *Manager) Handle(ctx context.Context, req Request) (Response, error) {
	release := m.store.Acquire(req.ConversationID)
	defer release()

	merged := req.Message
	rounds := 0
	pending, err := m.store.TakePending(ctx, req.ConversationID)
	if err != nil {
		return Response{}, err
	}
	if pending != nil {
		merged = pending.BaseMessage + mergeSeparator + req.Message
		rounds = pending.Rounds
	}

	history, err := m.store.History(ctx, req.ConversationID)
	if err != nil {
		return Response{}, err
	}
	replay := history
	if len(replay) > m.replayWindow {
		replay = replay[len(replay)-m.replayWindow:]
	}

	it := m.extractor.Extract(ctx, merged, replay)
	log.Debug().
		Str("conversation_id", req.ConversationID).
		Str("intent", string(it.Type)).
		Int("rounds", rounds).
		Msg("Intent extracted")

	// Clarification gate: only search/recommend turns can be short-circuited,
	// and only while the round budget lasts. Past the budget we search with
	// best-available information so the conversation always terminates.
	if it.Type == intent.TypeSearch || it.Type == intent.TypeRecommend {
		if questions := m.policy.Evaluate(merged); len(questions) > 0 && rounds < m.maxRounds {
			if err := m.store.SetPending(ctx, req.ConversationID, session.PendingClarification{
				BaseMessage: merged,
				Rounds:      rounds + 1,
			}); err != nil {
				return Response{}, err
			}
			reply := m.composer.ClarificationReply(questions)
			if err := m.remember(ctx, req.ConversationID, req.Message, reply); err != nil {
				return Response{}, err
			}
			return Response{ConversationID: req.ConversationID, Reply: reply, Products: []catalog.Product{}}, nil
		}
	}

	if it.Type == intent.TypeClarify {
		reply := m.composer.ClarifyReply(it.FollowupQuestion)
		if err := m.remember(ctx, req.ConversationID, req.Message, reply); err != nil {
			return Response{}, err
		}
		return Response{ConversationID: req.ConversationID, Reply: reply, Products: []catalog.Product{}}, nil
	}

	products, detail, err := m.execute(ctx, it, req.UserID)
	if err != nil {
		return Response{}, err
	}

	reply, err := m.composer.Compose(ctx, it, merged, products, detail, history)
	if err != nil {
		return Response{}, err
	}

	if err := m.remember(ctx, req.ConversationID, req.Message, reply); err != nil {
		return Response{}, err
	}

	if products == nil {
		products = []catalog.Product{}
	}
	return Response{ConversationID: req.ConversationID, Reply: reply, Products: products}, nil
}

// execute dispatches the intent to the right catalog shape.
func (m *Manager) execute(ctx context.Context, it intent.Intent, userID *int64) ([]catalog.Product, *catalog.Detail, error) {
	switch it.Type {
	case intent.TypeDetail:
		d, err := m.catalog.Detail(ctx, *it.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if d == nil {
			// Unknown id is a normal outcome; the composer explains it.
			return nil, nil, nil
		}
		return []catalog.Product{d.Product}, d, nil

	case intent.TypeRecommend:
		if userID == nil {
			// Anonymous users get a plain search; personalization needs an
			// identity to join the score table on.
			products, err := m.catalog.Search(ctx, it)
			return products, nil, err
		}
		products, err := m.catalog.Recommend(ctx, it, *userID)
		if err != nil {
			return nil, nil, err
		}
		if len(products) == 0 {
			// Cold start: no score rows yet for this user.
			products, err = m.catalog.Newest(ctx, it.Limit)
		}
		return products, nil, err

	default:
		products, err := m.catalog.Search(ctx, it)
		return products, nil, err
	}
}

func (m *Manager) remember(ctx context.Context, id, userMessage, reply string) error {
	if err := m.store.Append(ctx, id, session.RoleUser, userMessage); err != nil {
		return err
	}
	return m.store.Append(ctx, id, session.RoleAssistant, reply)
}
