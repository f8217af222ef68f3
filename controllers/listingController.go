package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"marketplace-backend/database"
	"marketplace-backend/middlewares"
	"marketplace-backend/models"
	"marketplace-backend/policy"
	"marketplace-backend/utils"
)

type listingRequest struct {
	ProductID  *uint    `json:"product" validate:"omitempty,gt=0"`
	SupplierID *uint    `json:"supplier" validate:"omitempty,gt=0"`
	Model      *string  `json:"model" validate:"omitempty,max=255"`
	ExternalID *int64   `json:"external_id"`
	Quantity   *int     `json:"quantity" validate:"omitempty,gte=0"`
	Price      *float64 `json:"price" validate:"omitempty,gte=0"`
	PriceRRC   *float64 `json:"price_rrc" validate:"omitempty,gte=0"`
}

// listingUpdate leaves out product and supplier; a listing never moves.
type listingUpdate struct {
	Model      *string  `json:"model" validate:"omitempty,max=255"`
	ExternalID *int64   `json:"external_id"`
	Quantity   *int     `json:"quantity" validate:"omitempty,gte=0"`
	Price      *float64 `json:"price" validate:"omitempty,gte=0"`
	PriceRRC   *float64 `json:"price_rrc" validate:"omitempty,gte=0"`
}

type parameterValueRequest struct {
	ListingID   *uint   `json:"listing" validate:"omitempty,gt=0"`
	ParameterID *uint   `json:"parameter" validate:"omitempty,gt=0"`
	Value       *string `json:"value" validate:"omitempty,max=255"`
}

type parameterValueUpdate struct {
	Value *string `json:"value" validate:"omitempty,max=255"`
}

// ---- Listings

func (h *Controller) GetListings(c *fiber.Ctx) error {
	if err := decide(c, policy.Listings, policy.List, nil); err != nil {
		return err
	}
	q := h.db(c).Order("id")
	for param, column := range map[string]string{"product": "product_id", "supplier": "supplier_id"} {
		id, ok, err := queryID(c, param)
		if err != nil {
			return err
		}
		if ok {
			q = q.Where(column+" = ?", id)
		}
	}
	if id, ok, err := queryID(c, "category"); err != nil {
		return err
	} else if ok {
		q = q.Where("product_id IN (?)", h.db(c).Model(&models.Product{}).Select("id").Where("category_id = ?", id))
	}
	for param, op := range map[string]string{"min_price": ">=", "max_price": "<="} {
		raw := strings.TrimSpace(c.Query(param))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid "+param+" filter")
		}
		q = q.Where("price "+op+" ?", v)
	}
	if c.QueryBool("in_stock") {
		q = q.Where("quantity > 0")
	}

	var listings []models.ProductListing
	if err := q.Find(&listings).Error; err != nil {
		return err
	}
	return c.JSON(listings)
}

func (h *Controller) loadListing(c *fiber.Ctx) (*models.ProductListing, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}
	var listing models.ProductListing
	if err := h.db(c).First(&listing, id).Error; err != nil {
		return nil, dbError(err)
	}
	return &listing, nil
}

func (h *Controller) GetListing(c *fiber.Ctx) error {
	listing, err := h.loadListing(c)
	if err != nil {
		return err
	}
	if err := decide(c, policy.Listings, policy.Retrieve, &policy.Ownership{OwnerSupplierID: listing.SupplierID}); err != nil {
		return err
	}
	return c.JSON(listing)
}

// CreateListing lists a product for the requesting supplier. Staff must name the supplier.
func (h *Controller) CreateListing(c *fiber.Ctx) error {
	if err := decide(c, policy.Listings, policy.Create, nil); err != nil {
		return err
	}
	var req listingRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if err := requireFields(&req, "product", "price"); err != nil {
		return err
	}
	utils.NormalizeDTO(&req)

	actor := middlewares.ActorFrom(c)
	supplierID := actor.SupplierID
	if actor.IsStaff && req.SupplierID != nil {
		supplierID = *req.SupplierID
	}
	if supplierID == 0 {
		return middlewares.Invalid("supplier", "required", "supplier is required")
	}
	if req.SupplierID != nil && *req.SupplierID != supplierID {
		return forbidden()
	}

	listing := models.ProductListing{ProductID: *req.ProductID, SupplierID: supplierID}
	utils.ApplyPtrDTO(&listingUpdate{
		Model: req.Model, ExternalID: req.ExternalID, Quantity: req.Quantity, Price: req.Price, PriceRRC: req.PriceRRC,
	}, &listing)

	if err := h.db(c).Create(&listing).Error; err != nil {
		return dbError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(listing)
}

func (h *Controller) UpdateListing(c *fiber.Ctx) error {
	listing, err := h.loadListing(c)
	if err != nil {
		return err
	}
	if err := decide(c, policy.Listings, updateAction(c), &policy.Ownership{OwnerSupplierID: listing.SupplierID}); err != nil {
		return err
	}
	var req listingUpdate
	if err := bindUpdate(c, &req, "price", "quantity"); err != nil {
		return err
	}
	utils.ApplyPtrDTO(&req, listing)
	if err := h.db(c).Omit("Product", "Values").Save(listing).Error; err != nil {
		return dbError(err)
	}
	return c.JSON(listing)
}

func (h *Controller) DeleteListing(c *fiber.Ctx) error {
	listing, err := h.loadListing(c)
	if err != nil {
		return err
	}
	if err := decide(c, policy.Listings, policy.Destroy, &policy.Ownership{OwnerSupplierID: listing.SupplierID}); err != nil {
		return err
	}
	if err := h.db(c).Delete(listing).Error; err != nil {
		return dbError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- Parameter values

func (h *Controller) GetParameterValues(c *fiber.Ctx) error {
	if err := decide(c, policy.ParameterValues, policy.List, nil); err != nil {
		return err
	}
	q := h.db(c).Order("id")
	for param, column := range map[string]string{"listing": "listing_id", "parameter": "parameter_id"} {
		id, ok, err := queryID(c, param)
		if err != nil {
			return err
		}
		if ok {
			q = q.Where(column+" = ?", id)
		}
	}
	var values []models.ProductParameterValue
	if err := q.Find(&values).Error; err != nil {
		return err
	}
	return c.JSON(values)
}

// loadParameterValue also returns the supplier owning the value's listing.
func (h *Controller) loadParameterValue(c *fiber.Ctx) (*models.ProductParameterValue, *policy.Ownership, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, nil, err
	}
	var value models.ProductParameterValue
	if err := h.db(c).First(&value, id).Error; err != nil {
		return nil, nil, dbError(err)
	}
	var listing models.ProductListing
	if err := h.db(c).Select("id", "supplier_id").First(&listing, value.ListingID).Error; err != nil {
		return nil, nil, dbError(err)
	}
	return &value, &policy.Ownership{OwnerSupplierID: listing.SupplierID}, nil
}

func (h *Controller) GetParameterValue(c *fiber.Ctx) error {
	value, own, err := h.loadParameterValue(c)
	if err != nil {
		return err
	}
	if err := decide(c, policy.ParameterValues, policy.Retrieve, own); err != nil {
		return err
	}
	return c.JSON(value)
}

// CreateParameterValue requires owning the target listing.
func (h *Controller) CreateParameterValue(c *fiber.Ctx) error {
	if a := middlewares.ActorFrom(c); a == nil || (!a.IsStaff && !a.IsSupplier()) {
		return forbidden()
	}
	var req parameterValueRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if err := requireFields(&req, "listing", "parameter", "value"); err != nil {
		return err
	}
	utils.NormalizeDTO(&req)

	var listing models.ProductListing
	if err := h.db(c).Select("id", "supplier_id").First(&listing, *req.ListingID).Error; err != nil {
		if database.IsNotFound(err) {
			return middlewares.Invalid("listing", "exists", "listing does not exist")
		}
		return dbError(err)
	}
	if err := decide(c, policy.ParameterValues, policy.Create, &policy.Ownership{OwnerSupplierID: listing.SupplierID}); err != nil {
		return err
	}

	value := models.ProductParameterValue{ListingID: listing.ID, ParameterID: *req.ParameterID, Value: *req.Value}
	if err := h.db(c).Create(&value).Error; err != nil {
		return dbError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(value)
}

func (h *Controller) UpdateParameterValue(c *fiber.Ctx) error {
	value, own, err := h.loadParameterValue(c)
	if err != nil {
		return err
	}
	if err := decide(c, policy.ParameterValues, updateAction(c), own); err != nil {
		return err
	}
	var req parameterValueUpdate
	if err := bindUpdate(c, &req, "value"); err != nil {
		return err
	}
	utils.ApplyPtrDTO(&req, value)
	if err := h.db(c).Omit("Parameter").Save(value).Error; err != nil {
		return dbError(err)
	}
	return c.JSON(value)
}

func (h *Controller) DeleteParameterValue(c *fiber.Ctx) error {
	value, own, err := h.loadParameterValue(c)
	if err != nil {
		return err
	}
	if err := decide(c, policy.ParameterValues, policy.Destroy, own); err != nil {
		return err
	}
	if err := h.db(c).Delete(value).Error; err != nil {
		return dbError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
