package database

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"marketplace-backend/models"
)

// EnsureStaff creates a staff account for email if none exists yet. An existing user with
// that email is promoted to staff; its password is left untouched.
func EnsureStaff(db *gorm.DB, log zerolog.Logger, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if user.IsStaff {
			return nil
		}
		if err := db.Model(&user).Update("is_staff", true).Error; err != nil {
			return errors.Wrap(err, "promote staff user")
		}
		log.Info().Str("email", email).Msg("existing user promoted to staff")
		return nil
	case !IsNotFound(err):
		return errors.Wrap(err, "lookup staff user")
	}

	user = models.User{
		Username: strings.Split(email, "@")[0],
		Email:    email,
		Role:     models.RoleCustomer,
		IsStaff:  true,
	}
	if err := user.SetPassword(password); err != nil {
		return errors.Wrap(err, "hash staff password")
	}
	if err := db.Create(&user).Error; err != nil {
		return errors.Wrap(err, "create staff user")
	}
	log.Info().Str("email", email).Msg("staff user created")
	return nil
}
