package catalog

import (
	"fmt"
	"strings"

	"github.com/gearshop/internal/intent"
)

// Query is a parameterized SQL statement. Every filter value travels as a
// bound argument; nothing from an intent is ever spliced into the SQL text.
type Query struct {
	SQL  string
	Args []interface{}
}

// builder accumulates WHERE fragments, each bound to its own placeholders.
type builder struct {
	conds []string
	args  []interface{}
}

// bind registers a value and returns its $n placeholder.
func (b *builder) bind(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) where(format string, vals ...interface{}) {
	placeholders := make([]interface{}, len(vals))
	for i, v := range vals {
		placeholders[i] = b.bind(v)
	}
	b.conds = append(b.conds, fmt.Sprintf(format, placeholders...))
}

func (b *builder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " AND " + strings.Join(b.conds, " AND ")
}

// applyFilters adds the optional category/brand/price/attribute conditions
// shared by the search and recommend shapes.
func (b *builder) applyFilters(it intent.Intent) {
	if it.CategoryID != nil {
		b.where("p.category_id = %s", *it.CategoryID)
	}
	if it.Brand != "" {
		b.where("p.brand = %s", it.Brand)
	}
	if it.PriceMin != nil {
		b.where("p.price >= %s", *it.PriceMin)
	}
	if it.PriceMax != nil {
		b.where("p.price <= %s", *it.PriceMax)
	}

	for _, pred := range it.Attrs {
		// Wildcards are added server-side so a literal % in a value
		// stays a literal under eq.
		if pred.Op == intent.OpLike {
			b.where(`EXISTS (SELECT 1 FROM product_attributes a WHERE a.product_id = p.product_id AND a.attr_key = %s AND a.attr_value ILIKE '%%' || %s || '%%')`,
				pred.Key, pred.Value)
		} else {
			b.where(`EXISTS (SELECT 1 FROM product_attributes a WHERE a.product_id = p.product_id AND a.attr_key = %s AND a.attr_value = %s)`,
				pred.Key, pred.Value)
		}
	}
}

// BuildSearch produces the keyword+filter shape, newest first.
func BuildSearch(it intent.Intent) Query {
	b := &builder{}

	if q := strings.TrimSpace(it.Query); q != "" {
		b.where(`(p.product_name ILIKE '%%' || %s || '%%' OR p.brand ILIKE '%%' || %s || '%%')`, q, q)
	}
	b.applyFilters(it)

	sql := `SELECT p.product_id, p.category_id, p.product_name, p.brand, p.price, p.thumbnail_url
FROM products p
WHERE TRUE` + b.clause() + `
ORDER BY p.created_at DESC
LIMIT ` + b.bind(it.Limit)

	return Query{SQL: sql, Args: b.args}
}

// BuildRecommend produces the personalized shape: the caller's precomputed
// score rows inner-joined to the catalog, best score first.
func BuildRecommend(it intent.Intent, userID int64) Query {
	b := &builder{}

	userPlaceholder := b.bind(userID)
	b.applyFilters(it)

	sql := `SELECT p.product_id, p.category_id, p.product_name, p.brand, p.price, p.thumbnail_url, ur.score
FROM user_recommendations ur
JOIN products p ON ur.item_no = p.product_id
WHERE ur.user_no = ` + userPlaceholder + b.clause() + `
ORDER BY ur.score DESC, ur.rec_rank ASC
LIMIT ` + b.bind(it.Limit)

	return Query{SQL: sql, Args: b.args}
}

// BuildNewest produces the cold-start shape used when a user has no
// personalization rows: newest catalog entries, no filters.
func BuildNewest(limit int) Query {
	b := &builder{}
	sql := `SELECT p.product_id, p.category_id, p.product_name, p.brand, p.price, p.thumbnail_url
FROM products p
ORDER BY p.created_at DESC
LIMIT ` + b.bind(limit)
	return Query{SQL: sql, Args: b.args}
}

// BuildDetail produces the single-item shape plus its attribute query.
func BuildDetail(productID int64) (product Query, attributes Query) {
	pb := &builder{}
	product = Query{
		SQL: `SELECT p.product_id, p.category_id, p.product_name, p.brand, p.price, p.thumbnail_url
FROM products p
WHERE p.product_id = ` + pb.bind(productID),
		Args: pb.args,
	}

	ab := &builder{}
	attributes = Query{
		SQL: `SELECT a.attr_key, a.attr_value
FROM product_attributes a
WHERE a.product_id = ` + ab.bind(productID) + `
ORDER BY a.attr_key`,
		Args: ab.args,
	}
	return product, attributes
}
