// Package handler holds the pieces shared by the HTTP handlers: request
// parsing with validation, pagination and the list envelope.
package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
)

var validate = validator.New()

// ParseBody unmarshals and validates a JSON request body. Validation
// tags on the DTO drive the field checks.
func ParseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Wrap(err, apperr.KindBadRequest, apperr.CodeInvalidRequest)
	}

	if err := validate.Struct(out); err != nil {
		return apperr.Wrap(err, apperr.KindBadRequest, apperr.CodeInvalidRequest)
	}

	return nil
}

// Pagination carries the page window parsed from the query string.
type Pagination struct {
	Page  int
	Limit int
}

// ParsePagination reads page and limit query parameters. Out-of-range
// values are clamped, not rejected.
func ParsePagination(c *fiber.Ctx) Pagination {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	limit := c.QueryInt("limit", 10)
	if limit < 1 {
		limit = 10
	}

	if limit > 100 {
		limit = 100
	}

	return Pagination{Page: page, Limit: limit}
}

// ParseDate reads an RFC 3339 or date-only query parameter. A missing
// parameter yields a nil time without error.
func ParseDate(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed, nil
		}
	}

	return nil, apperr.BadRequest(apperr.CodeInvalidRequest)
}

// Page is the envelope for paginated listings.
type Page struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// JSONPage renders a paginated listing.
func JSONPage(c *fiber.Ctx, data interface{}, total int64, p Pagination) error {
	return c.JSON(Page{Data: data, Total: total, Page: p.Page, Limit: p.Limit})
}
