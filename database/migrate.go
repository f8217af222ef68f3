package database

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"marketplace-backend/models"
)

// Migrate creates or updates every table in one transaction.
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.User{},
			&models.Customer{},
			&models.Supplier{},
			&models.Category{},
			&models.Product{},
			&models.ProductListing{},
			&models.Parameter{},
			&models.ProductParameterValue{},
			&models.Cart{},
			&models.CartLine{},
			&models.CatalogImport{},
			&models.IdempotencyKey{},
		); err != nil {
			return errors.Wrap(err, "auto migrate")
		}

		if tx.Dialector.Name() == "postgres" {
			// emails are stored lowercased, the expression index keeps legacy rows honest too
			if err := tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (lower(email))`).Error; err != nil {
				return errors.Wrap(err, "create email index")
			}
		}
		return nil
	})
}

// ResyncCategorySequence moves the categories id sequence past ids that were inserted
// explicitly. Only postgres keeps a separate sequence.
func ResyncCategorySequence(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	err := tx.Exec(`SELECT setval(pg_get_serial_sequence('categories', 'id'), COALESCE((SELECT MAX(id) FROM categories), 1))`).Error
	return errors.Wrap(err, "resync categories sequence")
}
