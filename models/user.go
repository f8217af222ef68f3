package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupplier Role = "supplier"
)

func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleSupplier
}

const passwordCost = 12

type User struct {
	Id        string    `json:"id" gorm:"primaryKey;size:36"`
	Username  string    `json:"username" gorm:"not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  []byte    `json:"-" gorm:"not null"`
	Role      Role      `json:"user_type" gorm:"type:varchar(16);not null"`
	IsStaff   bool      `json:"is_staff" gorm:"not null;default:false"`
	AvatarKey string    `json:"avatar,omitempty"`
	Customer  *Customer `json:"customer,omitempty" gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	Supplier  *Supplier `json:"supplier,omitempty" gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if user.Id == "" {
		user.Id = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return
}

func (user *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return err
	}
	user.Password = hashedPassword
	return nil
}

func (user *User) ComparePassword(password string) error {
	return bcrypt.CompareHashAndPassword(user.Password, []byte(password))
}
