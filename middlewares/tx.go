package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"marketplace-backend/database"
)

// Tx opens a per-request DB transaction that handlers reach through database.GetDB.
// It commits when the handler succeeds with a non-error status and rolls back otherwise.
// Work queued with database.AfterCommit runs only after a successful commit.
// Order: run AFTER auth and Idempotency so neither is tied to the request TX.
func Tx(db *gorm.DB, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		tx := db.WithContext(c.UserContext()).Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}

		// Ensure we always cleanup.
		defer func() {
			c.Locals(database.TxKey, nil)
			hooks := database.TakeAfterCommit(c)
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r) // re-panic after rollback so the recover middleware can catch
			}
			if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				log.Error().Err(e).Str("path", c.Path()).Msg("tx commit failed")
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
				return
			}
			for _, fn := range hooks {
				fn()
			}
		}()

		c.Locals(database.TxKey, tx)
		err = c.Next()
		return err
	}
}
