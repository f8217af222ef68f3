package middlewares

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// NewErrorHandler centralizes error responses and keeps messages sanitized.
func NewErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// 1) Fiber errors (use their status code + message)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			if fe.Code >= fiber.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		// 2) Validation errors (400 + per-field info)
		var fieldErr *FieldError
		if errors.As(err, &fieldErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": fieldErr.Message,
				"errors":  fieldErr.Fields,
			})
		}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "validation failed",
				"errors":  FieldErrors(ve),
			})
		}

		// 3) Unknown errors (500)
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("internal error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "internal server error",
		})
	}
}

// FieldErrors maps validation errors to json field paths, e.g. "supplier.tax_id": "taxid".
func FieldErrors(ve validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out[field] = fe.Tag()
	}
	return out
}

// FieldError is a validation failure detected outside validator, rendered like one.
type FieldError struct {
	Message string
	Fields  map[string]string
}

func (e *FieldError) Error() string { return e.Message }

// Invalid reports a single failed field rule.
func Invalid(field, rule, message string) *FieldError {
	return &FieldError{Message: message, Fields: map[string]string{field: rule}}
}
