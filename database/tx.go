package database

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// TxKey is the fiber Locals key under which the per-request transaction is stored.
const TxKey = "tx"

const afterCommitKey = "tx.after_commit"

// GetDB returns the request's transaction when one was opened, base otherwise.
func GetDB(c *fiber.Ctx, base *gorm.DB) *gorm.DB {
	if tx, ok := c.Locals(TxKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return base.WithContext(c.UserContext())
}

// AfterCommit defers fn until the request transaction commits. Without a request
// transaction fn runs right away. fn never runs when the transaction rolls back.
func AfterCommit(c *fiber.Ctx, fn func()) {
	if tx, ok := c.Locals(TxKey).(*gorm.DB); !ok || tx == nil {
		fn()
		return
	}
	hooks, _ := c.Locals(afterCommitKey).([]func())
	c.Locals(afterCommitKey, append(hooks, fn))
}

// TakeAfterCommit returns the functions queued by AfterCommit and clears them.
func TakeAfterCommit(c *fiber.Ctx) []func() {
	hooks, _ := c.Locals(afterCommitKey).([]func())
	c.Locals(afterCommitKey, nil)
	return hooks
}
