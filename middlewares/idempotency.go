package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"marketplace-backend/database"
	"marketplace-backend/models"
)

const idempotencyHeader = "Idempotency-Key"

// Idempotency replays the stored response for a repeated Idempotency-Key on mutating
// requests of an authenticated user. Keys are scoped per user. It uses its own short
// transactions so the record is not tied to the handler's transaction.
func Idempotency(db *gorm.DB, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		user := UserFrom(c)
		if user == nil {
			// anonymous requests have no scope to store keys under
			return c.Next()
		}

		path := c.OriginalURL()
		reqHash := requestHash(method, path, c.Body(), user.Id)

		// ---- Phase 1: read or create the pending record
		var (
			existing models.IdempotencyKey
			created  bool
		)
		err := db.Transaction(func(tx *gorm.DB) error {
			err := tx.Where("user_id = ? AND key = ?", user.Id, key).First(&existing).Error
			if err == nil {
				return nil
			}
			if !database.IsNotFound(err) {
				return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
			}
			rec := models.IdempotencyKey{
				UserID:      user.Id,
				Key:         key,
				RequestHash: reqHash,
				Method:      method,
				Path:        path,
			}
			if err := tx.Create(&rec).Error; err != nil {
				if database.IsUniqueViolation(err) {
					return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is in progress")
				}
				return fiber.NewError(fiber.StatusInternalServerError, "idempotency create failed")
			}
			existing, created = rec, true
			return nil
		})
		if err != nil {
			return err
		}

		if existing.RequestHash != reqHash {
			return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
		}
		if !created {
			if existing.ResponseStatus == 0 {
				return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is in progress")
			}
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}

		if err := c.Next(); err != nil {
			// failed requests may be retried with the same key
			if derr := db.Where("id = ?", existing.ID).Delete(&models.IdempotencyKey{}).Error; derr != nil {
				log.Warn().Err(derr).Str("key", key).Msg("could not release idempotency key")
			}
			return err
		}

		// ---- Phase 2: store the response
		now := time.Now().UTC()
		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)

		err = db.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"response_status": c.Response().StatusCode(),
				"response_body":   blob,
				"completed_at":    &now,
			}).Error
		if err != nil {
			// best-effort: don't break the successful response
			log.Warn().Err(err).Str("key", key).Msg("could not store idempotent response")
		}
		return nil
	}
}

// requestHash is sha256 over method|path|body|user.
func requestHash(method, path string, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	h.Write([]byte{'\n'})
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}
