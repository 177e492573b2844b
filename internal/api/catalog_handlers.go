package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/gearshop/internal/auth"
	"github.com/gearshop/internal/catalog"
	"github.com/gearshop/internal/intent"
)

// recommendHandler serves the storefront's personalized ranked list. Without
// a login there is nothing to personalize, so anonymous callers get the
// newest products, same as a user with no score rows yet.
func recommendHandler(accessor *catalog.Accessor) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := intent.DefaultLimit * 2
		if raw := c.QueryParam("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		if limit > intent.MaxLimit {
			limit = intent.MaxLimit
		}

		ctx := c.Request().Context()
		userID := auth.UserID(c)

		var products []catalog.Product
		var err error
		if userID != nil {
			products, err = accessor.Recommend(ctx, intent.Intent{Type: intent.TypeRecommend, Limit: limit}, *userID)
		}
		if err == nil && len(products) == 0 {
			products, err = accessor.Newest(ctx, limit)
		}
		if err != nil {
			log.Error().Err(err).Msg("Recommend query failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "recommend failed"})
		}

		if products == nil {
			products = []catalog.Product{}
		}
		return c.JSON(http.StatusOK, products)
	}
}

// productDetailHandler serves one product with its attribute set.
func productDetailHandler(accessor *catalog.Accessor) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		}

		detail, err := accessor.Detail(c.Request().Context(), id)
		if err != nil {
			log.Error().Err(err).Int64("product_id", id).Msg("Detail query failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "detail failed"})
		}
		if detail == nil {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "product not found"})
		}

		return c.JSON(http.StatusOK, detail)
	}
}
