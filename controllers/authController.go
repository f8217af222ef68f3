package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"marketplace-backend/database"
	"marketplace-backend/middlewares"
	"marketplace-backend/models"
)

type customerProfile struct {
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone"`
}

type supplierProfile struct {
	ContactPerson    string `json:"contact_person" validate:"max=255"`
	SupplierType     string `json:"supplier_type" validate:"required,oneof=legal_entity sole_proprietor"`
	TaxID            string `json:"tax_id" validate:"required,taxid"`
	SecondaryTaxCode string `json:"secondary_tax_code" validate:"required_if=SupplierType legal_entity,excluded_if=SupplierType sole_proprietor"`
	PhoneNumber      string `json:"phone_number" validate:"omitempty,phone"`
	OrganizationName string `json:"organization_name" validate:"max=255"`
}

type registerRequest struct {
	Username string           `json:"username" validate:"required,max=150"`
	Email    string           `json:"email" validate:"required,email"`
	Password string           `json:"password" validate:"required,min=8,max=128"`
	UserType string           `json:"user_type" validate:"required,oneof=customer supplier"`
	Customer *customerProfile `json:"customer" validate:"required_if=UserType customer,excluded_unless=UserType customer"`
	Supplier *supplierProfile `json:"supplier" validate:"required_if=UserType supplier,excluded_unless=UserType supplier"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates a user together with the profile matching its user_type.
// No token is issued here; clients log in afterwards.
func (h *Controller) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	db := h.db(c)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return middlewares.Invalid("email", "unique", "email already exists")
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     models.Role(req.UserType),
	}
	if err := user.SetPassword(req.Password); err != nil {
		return err
	}
	switch user.Role {
	case models.RoleCustomer:
		user.Customer = &models.Customer{PhoneNumber: req.Customer.PhoneNumber}
	case models.RoleSupplier:
		p := req.Supplier
		user.Supplier = &models.Supplier{
			ContactPerson:    p.ContactPerson,
			SupplierType:     p.SupplierType,
			TaxID:            p.TaxID,
			SecondaryTaxCode: p.SecondaryTaxCode,
			PhoneNumber:      p.PhoneNumber,
			OrganizationName: p.OrganizationName,
		}
	}

	if err := db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return middlewares.Invalid("email", "unique", "email already exists")
		}
		return dbError(err)
	}

	h.Log.Info().Str("user", user.Id).Str("role", string(user.Role)).Msg("user registered")
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *Controller) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	var user models.User
	err := h.DB.WithContext(c.UserContext()).Preload("Customer").Preload("Supplier").
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if err != nil || user.ComparePassword(req.Password) != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}

	token, err := h.Auth.Issue(user.Id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}
