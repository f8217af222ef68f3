package controllers

import (
	"github.com/gofiber/fiber/v2"

	"marketplace-backend/middlewares"
	"marketplace-backend/models"
	"marketplace-backend/utils"
)

type supplierUpdate struct {
	ContactPerson    *string `json:"contact_person" validate:"omitempty,max=255"`
	SupplierType     *string `json:"supplier_type" validate:"omitempty,oneof=legal_entity sole_proprietor"`
	TaxID            *string `json:"tax_id" validate:"omitempty,taxid"`
	SecondaryTaxCode *string `json:"secondary_tax_code" validate:"omitempty,digits"`
	PhoneNumber      *string `json:"phone_number" validate:"omitempty,phone"`
	OrganizationName *string `json:"organization_name" validate:"omitempty,max=255"`
}

func (h *Controller) GetSuppliers(c *fiber.Ctx) error {
	var suppliers []models.Supplier
	if err := h.db(c).Order("id").Find(&suppliers).Error; err != nil {
		return err
	}
	return c.JSON(suppliers)
}

func (h *Controller) loadSupplier(c *fiber.Ctx) (*models.Supplier, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}
	var supplier models.Supplier
	if err := h.db(c).First(&supplier, id).Error; err != nil {
		return nil, dbError(err)
	}
	return &supplier, nil
}

func (h *Controller) GetSupplier(c *fiber.Ctx) error {
	supplier, err := h.loadSupplier(c)
	if err != nil {
		return err
	}
	return c.JSON(supplier)
}

// UpdateSupplier serves PUT and PATCH. The secondary tax code rule is checked against the
// merged record by the model hook, so switching supplier_type needs a matching code.
func (h *Controller) UpdateSupplier(c *fiber.Ctx) error {
	supplier, err := h.loadSupplier(c)
	if err != nil {
		return err
	}
	var req supplierUpdate
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if c.Method() == fiber.MethodPut {
		if err := requireFields(&req, "supplier_type", "tax_id"); err != nil {
			return err
		}
		if req.SecondaryTaxCode == nil {
			empty := ""
			req.SecondaryTaxCode = &empty
		}
	}
	utils.NormalizeDTO(&req)
	utils.ApplyPtrDTO(&req, supplier)

	if err := h.db(c).Omit("Listings").Save(supplier).Error; err != nil {
		return dbError(err)
	}
	return c.JSON(supplier)
}

// DeleteSupplier removes the profile together with its listings and their parameter values.
func (h *Controller) DeleteSupplier(c *fiber.Ctx) error {
	supplier, err := h.loadSupplier(c)
	if err != nil {
		return err
	}
	if err := h.db(c).Delete(supplier).Error; err != nil {
		return dbError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
