package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
)

// errorHandler renders every handler error as JSON. Typed domain errors
// map to their status with a catalog message in the configured language;
// anything else is a 500 with a generic message and a log line.
func errorHandler(lang string) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			body := fiber.Map{
				"error":   appErr.Code,
				"message": apperr.Message(appErr.Code, lang),
			}

			if len(appErr.Missing) > 0 {
				body["missing"] = appErr.Missing
			}

			return c.Status(appErr.HTTPStatus()).JSON(body)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error":   "http_error",
				"message": fiberErr.Message,
			})
		}

		log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   apperr.CodeInternal,
			"message": apperr.Message(apperr.CodeInternal, lang),
		})
	}
}
