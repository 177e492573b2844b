// Package catalog is the read-only interface over the product store: a
// placeholder-bound query builder for the three query shapes and the
// accessor that executes them.
package catalog

import "errors"

// ErrUnavailable reports that the catalog database could not be reached.
// Empty results are success, not this error.
var ErrUnavailable = errors.New("catalog unavailable")

// Product is the result projection returned to chat clients. Score is only
// populated by the personalized recommend shape.
type Product struct {
	ID           int64    `json:"id"`
	CategoryID   *int64   `json:"categoryId,omitempty"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand"`
	Price        int64    `json:"price"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	Score        *float64 `json:"score,omitempty"`
}

// Attribute is one free-form spec row for a product.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Detail is a single product with its full attribute set.
type Detail struct {
	Product    Product     `json:"product"`
	Attributes []Attribute `json:"attributes"`
}
