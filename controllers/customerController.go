package controllers

import (
	"github.com/gofiber/fiber/v2"

	"marketplace-backend/middlewares"
	"marketplace-backend/models"
)

type customerUpdate struct {
	PhoneNumber *string `json:"phone_number" validate:"omitempty,phone"`
}

func (h *Controller) GetCustomers(c *fiber.Ctx) error {
	var customers []models.Customer
	if err := h.db(c).Order("id").Find(&customers).Error; err != nil {
		return err
	}
	return c.JSON(customers)
}

func (h *Controller) loadCustomer(c *fiber.Ctx) (*models.Customer, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}
	var customer models.Customer
	if err := h.db(c).First(&customer, id).Error; err != nil {
		return nil, dbError(err)
	}
	return &customer, nil
}

func (h *Controller) GetCustomer(c *fiber.Ctx) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}
	return c.JSON(customer)
}

func (h *Controller) UpdateCustomer(c *fiber.Ctx) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}
	var req customerUpdate
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if c.Method() == fiber.MethodPut {
		if err := requireFields(&req, "phone_number"); err != nil {
			return err
		}
	}
	if req.PhoneNumber != nil {
		customer.PhoneNumber = *req.PhoneNumber
	}
	if err := h.db(c).Save(customer).Error; err != nil {
		return dbError(err)
	}
	return c.JSON(customer)
}

// DeleteCustomer removes the profile; the customer's cart goes with it.
func (h *Controller) DeleteCustomer(c *fiber.Ctx) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}
	if err := h.db(c).Delete(customer).Error; err != nil {
		return dbError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
