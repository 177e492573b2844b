package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gearshop/internal/intent"
)

// Accessor executes catalog queries. Stateless and read-only; safe for
// concurrent use.
type Accessor struct {
	db *sql.DB
}

// NewAccessor wraps the catalog database handle.
func NewAccessor(db *sql.DB) *Accessor {
	return &Accessor{db: db}
}

// Search runs the keyword+filter shape. An empty slice is a normal result.
func (a *Accessor) Search(ctx context.Context, it intent.Intent) ([]Product, error) {
	return a.queryProducts(ctx, BuildSearch(it), false)
}

// Recommend runs the personalized shape for the given user. Zero rows means
// the user has no personalization data; the caller decides whether to fall
// back to a generic result.
func (a *Accessor) Recommend(ctx context.Context, it intent.Intent, userID int64) ([]Product, error) {
	return a.queryProducts(ctx, BuildRecommend(it, userID), true)
}

// Newest runs the cold-start shape.
func (a *Accessor) Newest(ctx context.Context, limit int) ([]Product, error) {
	return a.queryProducts(ctx, BuildNewest(limit), false)
}

// Detail fetches one product and its full attribute set. Unknown ids return
// (nil, nil), not an error.
func (a *Accessor) Detail(ctx context.Context, productID int64) (*Detail, error) {
	productQ, attrsQ := BuildDetail(productID)

	var d Detail
	var categoryID sql.NullInt64
	var thumbnail sql.NullString
	err := a.db.QueryRowContext(ctx, productQ.SQL, productQ.Args...).Scan(
		&d.Product.ID, &categoryID, &d.Product.Name, &d.Product.Brand,
		&d.Product.Price, &thumbnail,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: detail query: %v", ErrUnavailable, err)
	}
	if categoryID.Valid {
		d.Product.CategoryID = &categoryID.Int64
	}
	d.Product.ThumbnailURL = thumbnail.String

	rows, err := a.db.QueryContext(ctx, attrsQ.SQL, attrsQ.Args...)
	if err != nil {
		return nil, fmt.Errorf("%w: attribute query: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var attr Attribute
		if err := rows.Scan(&attr.Key, &attr.Value); err != nil {
			return nil, fmt.Errorf("%w: attribute scan: %v", ErrUnavailable, err)
		}
		d.Attributes = append(d.Attributes, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: attribute rows: %v", ErrUnavailable, err)
	}

	return &d, nil
}

func (a *Accessor) queryProducts(ctx context.Context, q Query, withScore bool) ([]Product, error) {
	rows, err := a.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var categoryID sql.NullInt64
		var thumbnail sql.NullString

		if withScore {
			var score float64
			err = rows.Scan(&p.ID, &categoryID, &p.Name, &p.Brand, &p.Price, &thumbnail, &score)
			p.Score = &score
		} else {
			err = rows.Scan(&p.ID, &categoryID, &p.Name, &p.Brand, &p.Price, &thumbnail)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrUnavailable, err)
		}

		if categoryID.Valid {
			p.CategoryID = &categoryID.Int64
		}
		p.ThumbnailURL = thumbnail.String
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrUnavailable, err)
	}

	return products, nil
}
