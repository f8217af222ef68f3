package models

import (
	"gorm.io/gorm"

	"marketplace-backend/validation"
)

type Customer struct {
	Id          uint   `json:"id" gorm:"primaryKey"`
	UserId      string `json:"user_id" gorm:"size:36;uniqueIndex;not null"`
	PhoneNumber string `json:"phone_number"`
}

// BeforeSave keeps the phone rule enforced for writes that bypass request validation.
func (c *Customer) BeforeSave(tx *gorm.DB) error {
	if c.PhoneNumber != "" && !validation.IsPhone(c.PhoneNumber) {
		return validation.ErrPhone
	}
	return nil
}
