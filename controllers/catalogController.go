package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"marketplace-backend/middlewares"
	"marketplace-backend/models"
	"marketplace-backend/policy"
	"marketplace-backend/utils"
)

type categoryRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=255"`
}

type productRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=255"`
	CategoryID *uint   `json:"category" validate:"omitempty,gt=0"`
}

type parameterRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=255"`
}

// ---- Categories

func (h *Controller) GetCategories(c *fiber.Ctx) error {
	if err := decide(c, policy.Categories, policy.List, nil); err != nil {
		return err
	}
	q := h.db(c).Order("id")
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		q = q.Where("name = ?", name)
	}
	var categories []models.Category
	if err := q.Find(&categories).Error; err != nil {
		return err
	}
	return c.JSON(categories)
}

func (h *Controller) loadCategory(c *fiber.Ctx) (*models.Category, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}
	var category models.Category
	if err := h.db(c).First(&category, id).Error; err != nil {
		return nil, dbError(err)
	}
	return &category, nil
}

func (h *Controller) GetCategory(c *fiber.Ctx) error {
	if err := decide(c, policy.Categories, policy.Retrieve, nil); err != nil {
		return err
	}
	category, err := h.loadCategory(c)
	if err != nil {
		return err
	}
	return c.JSON(category)
}

func (h *Controller) CreateCategory(c *fiber.Ctx) error {
	if err := decide(c, policy.Categories, policy.Create, nil); err != nil {
		return err
	}
	var req categoryRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if err := requireFields(&req, "name"); err != nil {
		return err
	}
	utils.NormalizeDTO(&req)

	category := models.Category{Name: *req.Name}
	if err := h.db(c).Create(&category).Error; err != nil {
		return dbError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *Controller) UpdateCategory(c *fiber.Ctx) error {
	if err := decide(c, policy.Categories, updateAction(c), nil); err != nil {
		return err
	}
	category, err := h.loadCategory(c)
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := bindUpdate(c, &req, "name"); err != nil {
		return err
	}
	utils.ApplyPtrDTO(&req, category)
	if err := h.db(c).Save(category).Error; err != nil {
		return dbError(err)
	}
	return c.JSON(category)
}

func (h *Controller) DeleteCategory(c *fiber.Ctx) error {
	if err := decide(c, policy.Categories, policy.Destroy, nil); err != nil {
		return err
	}
	category, err := h.loadCategory(c)
	if err != nil {
		return err
	}
	if err := h.db(c).Delete(category).Error; err != nil {
		return dbError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- Products

func (h *Controller) GetProducts(c *fiber.Ctx) error {
	if err := decide(c, policy.Products, policy.List, nil); err != nil {
		return err
	}
	q := h.db(c).Order("id")
	categoryID, ok, err := queryID(c, "category")
	if err != nil {
		return err
	}
	if ok {
		q = q.Where("category_id = ?", categoryID)
	}
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return err
	}
	return c.JSON(products)
}

func (h *Controller) loadProduct(c *fiber.Ctx) (*models.Product, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}
	var product models.Product
	if err := h.db(c).First(&product, id).Error; err != nil {
		return nil, dbError(err)
	}
	return &product, nil
}

func (h *Controller) GetProduct(c *fiber.Ctx) error {
	if err := decide(c, policy.Products, policy.Retrieve, nil); err != nil {
		return err
	}
	product, err := h.loadProduct(c)
	if err != nil {
		return err
	}
	return c.JSON(product)
}

func (h *Controller) CreateProduct(c *fiber.Ctx) error {
	if err := decide(c, policy.Products, policy.Create, nil); err != nil {
		return err
	}
	var req productRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if err := requireFields(&req, "name", "category"); err != nil {
		return err
	}
	utils.NormalizeDTO(&req)

	product := models.Product{Name: *req.Name, CategoryID: *req.CategoryID}
	if err := h.db(c).Create(&product).Error; err != nil {
		return dbError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *Controller) UpdateProduct(c *fiber.Ctx) error {
	if err := decide(c, policy.Products, updateAction(c), nil); err != nil {
		return err
	}
	product, err := h.loadProduct(c)
	if err != nil {
		return err
	}
	var req productRequest
	if err := bindUpdate(c, &req, "name", "category"); err != nil {
		return err
	}
	utils.ApplyPtrDTO(&req, product)
	if err := h.db(c).Omit("Category").Save(product).Error; err != nil {
		return dbError(err)
	}
	return c.JSON(product)
}

func (h *Controller) DeleteProduct(c *fiber.Ctx) error {
	if err := decide(c, policy.Products, policy.Destroy, nil); err != nil {
		return err
	}
	product, err := h.loadProduct(c)
	if err != nil {
		return err
	}
	if err := h.db(c).Delete(product).Error; err != nil {
		return dbError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- Parameters

func (h *Controller) GetParameters(c *fiber.Ctx) error {
	if err := decide(c, policy.Parameters, policy.List, nil); err != nil {
		return err
	}
	var params []models.Parameter
	if err := h.db(c).Order("name").Find(&params).Error; err != nil {
		return err
	}
	return c.JSON(params)
}

func (h *Controller) loadParameter(c *fiber.Ctx) (*models.Parameter, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}
	var param models.Parameter
	if err := h.db(c).First(&param, id).Error; err != nil {
		return nil, dbError(err)
	}
	return &param, nil
}

func (h *Controller) GetParameter(c *fiber.Ctx) error {
	if err := decide(c, policy.Parameters, policy.Retrieve, nil); err != nil {
		return err
	}
	param, err := h.loadParameter(c)
	if err != nil {
		return err
	}
	return c.JSON(param)
}

func (h *Controller) CreateParameter(c *fiber.Ctx) error {
	if err := decide(c, policy.Parameters, policy.Create, nil); err != nil {
		return err
	}
	var req parameterRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if err := requireFields(&req, "name"); err != nil {
		return err
	}
	utils.NormalizeDTO(&req)

	param := models.Parameter{Name: *req.Name}
	if err := h.db(c).Create(&param).Error; err != nil {
		return dbError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(param)
}

func (h *Controller) UpdateParameter(c *fiber.Ctx) error {
	if err := decide(c, policy.Parameters, updateAction(c), nil); err != nil {
		return err
	}
	param, err := h.loadParameter(c)
	if err != nil {
		return err
	}
	var req parameterRequest
	if err := bindUpdate(c, &req, "name"); err != nil {
		return err
	}
	utils.ApplyPtrDTO(&req, param)
	if err := h.db(c).Save(param).Error; err != nil {
		return dbError(err)
	}
	return c.JSON(param)
}

func (h *Controller) DeleteParameter(c *fiber.Ctx) error {
	if err := decide(c, policy.Parameters, policy.Destroy, nil); err != nil {
		return err
	}
	param, err := h.loadParameter(c)
	if err != nil {
		return err
	}
	if err := h.db(c).Delete(param).Error; err != nil {
		return dbError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// updateAction distinguishes PUT from PATCH for the policy.
func updateAction(c *fiber.Ctx) policy.Action {
	if c.Method() == fiber.MethodPatch {
		return policy.PartialUpdate
	}
	return policy.Update
}

// bindUpdate binds a pointer DTO; PUT additionally requires the named fields.
func bindUpdate(c *fiber.Ctx, dto any, required ...string) error {
	if err := middlewares.BindAndValidate(c, dto); err != nil {
		return err
	}
	if c.Method() == fiber.MethodPut {
		if err := requireFields(dto, required...); err != nil {
			return err
		}
	}
	utils.NormalizeDTO(dto)
	return nil
}
