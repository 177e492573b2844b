// Package intent defines the structured purchase intent extracted from free
// text and the validation that keeps model output inside the schema.
package intent

// Type is the kind of request the user is making.
type Type string

const (
	TypeSearch    Type = "search"
	TypeRecommend Type = "recommend"
	TypeDetail    Type = "detail"
	TypeClarify   Type = "clarify"
)

// Predicate operators for free-form attribute matching.
const (
	OpEq   = "eq"
	OpLike = "like"
)

// Predicate is a single key/operator/value constraint against the product
// attribute table. Built only from validated schema output, never from raw
// user text.
type Predicate struct {
	Key   string `json:"key"`
	Op    string `json:"op"`
	Value string `json:"value"`
}

// Intent is the validated representation of what the user wants.
type Intent struct {
	Type             Type        `json:"intent"`
	Query            string      `json:"query"`
	CategoryID       *int64      `json:"categoryId"`
	Brand            string      `json:"brand"`
	PriceMin         *int64      `json:"priceMin"`
	PriceMax         *int64      `json:"priceMax"`
	Attrs            []Predicate `json:"attrs"`
	ProductID        *int64      `json:"productId"`
	Limit            int         `json:"limit"`
	FollowupQuestion string      `json:"followupQuestion"`
}

const (
	// DefaultLimit matches the source chatbot's result count.
	DefaultLimit = 5
	// MaxLimit caps how many products one turn may return.
	MaxLimit = 50
	// MaxPredicates bounds the EXISTS-join chain an intent can produce.
	MaxPredicates = 10
)

// Fallback is the deterministic degraded-path intent used whenever model
// output cannot be trusted: a plain catalog search over the merged text.
// Unauthenticated users never fall back to recommend.
func Fallback(query string) Intent {
	return Intent{
		Type:  TypeSearch,
		Query: query,
		Limit: DefaultLimit,
		Attrs: []Predicate{},
	}
}

// Normalize forces an intent into the schema's invariants: a known type, a
// clamped limit, a bounded predicate list with no empty keys or values, and
// an ordered price range. Returns false when the type itself is unusable and
// the caller must substitute the fallback.
func (it *Intent) Normalize() bool {
	switch it.Type {
	case TypeSearch, TypeRecommend, TypeDetail, TypeClarify:
	default:
		return false
	}

	if it.Type == TypeDetail && it.ProductID == nil {
		return false
	}

	if it.Limit < 1 {
		it.Limit = DefaultLimit
	}
	if it.Limit > MaxLimit {
		it.Limit = MaxLimit
	}

	kept := it.Attrs[:0]
	for _, p := range it.Attrs {
		if p.Key == "" || p.Value == "" {
			continue
		}
		if p.Op != OpLike {
			p.Op = OpEq
		}
		kept = append(kept, p)
		if len(kept) == MaxPredicates {
			break
		}
	}
	it.Attrs = kept

	if it.PriceMin != nil && *it.PriceMin < 0 {
		it.PriceMin = nil
	}
	if it.PriceMax != nil && *it.PriceMax < 0 {
		it.PriceMax = nil
	}
	if it.PriceMin != nil && it.PriceMax != nil && *it.PriceMin > *it.PriceMax {
		it.PriceMin, it.PriceMax = it.PriceMax, it.PriceMin
	}

	return true
}
