package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearshop/internal/intent"
)

func int64p(v int64) *int64 { return &v }

func TestBuildSearch_KeywordAndPriceRange(t *testing.T) {
	q := BuildSearch(intent.Intent{
		Type:     intent.TypeSearch,
		Query:    "게이밍 마우스",
		PriceMin: int64p(100000),
		PriceMax: int64p(200000),
		Limit:    5,
	})

	assert.Contains(t, q.SQL, "p.product_name ILIKE '%' || $1 || '%'")
	assert.Contains(t, q.SQL, "p.brand ILIKE '%' || $2 || '%'")
	assert.Contains(t, q.SQL, "p.price >= $3")
	assert.Contains(t, q.SQL, "p.price <= $4")
	assert.Contains(t, q.SQL, "ORDER BY p.created_at DESC")
	assert.Contains(t, q.SQL, "LIMIT $5")
	assert.Equal(t, []interface{}{"게이밍 마우스", "게이밍 마우스", int64(100000), int64(200000), 5}, q.Args)
}

func TestBuildSearch_EmptyQuerySkipsKeywordClause(t *testing.T) {
	q := BuildSearch(intent.Intent{Type: intent.TypeSearch, Query: "   ", Limit: 5})

	assert.NotContains(t, q.SQL, "ILIKE")
	assert.Contains(t, q.SQL, "WHERE TRUE")
	assert.Equal(t, []interface{}{5}, q.Args)
}

func TestBuildSearch_InjectionTextStaysBound(t *testing.T) {
	hostile := `'; DROP TABLE products; --`

	q := BuildSearch(intent.Intent{
		Type:  intent.TypeSearch,
		Query: hostile,
		Brand: hostile,
		Attrs: []intent.Predicate{{Key: hostile, Op: intent.OpEq, Value: hostile}},
		Limit: 5,
	})

	assert.NotContains(t, q.SQL, "DROP TABLE", "user text must never reach the SQL string")
	for _, arg := range q.Args[:len(q.Args)-1] {
		assert.Equal(t, hostile, arg)
	}
}

func TestBuildSearch_AttributePredicates(t *testing.T) {
	q := BuildSearch(intent.Intent{
		Type:  intent.TypeSearch,
		Query: "마우스",
		Attrs: []intent.Predicate{
			{Key: "connectivity", Op: intent.OpEq, Value: "무선"},
			{Key: "grip", Op: intent.OpLike, Value: "팜"},
		},
		Limit: 5,
	})

	// one EXISTS subquery per predicate
	assert.Equal(t, 2, strings.Count(q.SQL, "EXISTS (SELECT 1 FROM product_attributes"))
	assert.Contains(t, q.SQL, "a.attr_value = $4")
	assert.Contains(t, q.SQL, "a.attr_value ILIKE '%' || $6 || '%'")
	assert.Equal(t, []interface{}{"마우스", "마우스", "connectivity", "무선", "grip", "팜", 5}, q.Args)
}

func TestBuildRecommend(t *testing.T) {
	q := BuildRecommend(intent.Intent{
		Type:       intent.TypeRecommend,
		CategoryID: int64p(7),
		PriceMax:   int64p(150000),
		Limit:      10,
	}, 42)

	assert.Contains(t, q.SQL, "FROM user_recommendations ur")
	assert.Contains(t, q.SQL, "JOIN products p ON ur.item_no = p.product_id")
	assert.Contains(t, q.SQL, "ur.user_no = $1")
	assert.Contains(t, q.SQL, "p.category_id = $2")
	assert.Contains(t, q.SQL, "p.price <= $3")
	assert.Contains(t, q.SQL, "ORDER BY ur.score DESC, ur.rec_rank ASC")
	assert.Contains(t, q.SQL, "LIMIT $4")
	assert.Equal(t, []interface{}{int64(42), int64(7), int64(150000), 10}, q.Args)
}

func TestBuildNewest(t *testing.T) {
	q := BuildNewest(5)

	assert.Contains(t, q.SQL, "ORDER BY p.created_at DESC")
	assert.Contains(t, q.SQL, "LIMIT $1")
	assert.Equal(t, []interface{}{5}, q.Args)
}

func TestBuildDetail(t *testing.T) {
	product, attributes := BuildDetail(99)

	assert.Contains(t, product.SQL, "p.product_id = $1")
	require.Equal(t, []interface{}{int64(99)}, product.Args)

	assert.Contains(t, attributes.SQL, "a.product_id = $1")
	assert.Contains(t, attributes.SQL, "ORDER BY a.attr_key")
	require.Equal(t, []interface{}{int64(99)}, attributes.Args)
}
