package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"marketplace-backend/database"
	"marketplace-backend/jobs"
	"marketplace-backend/middlewares"
	"marketplace-backend/models"
	"marketplace-backend/policy"
	"marketplace-backend/storage"
	"marketplace-backend/utils"
	"marketplace-backend/validation"
)

const permissionDenied = "You do not have permission to perform this action."

// Controller holds the dependencies shared by all HTTP handlers.
type Controller struct {
	DB      *gorm.DB
	Auth    *middlewares.Auth
	Jobs    jobs.Submitter
	Avatars *storage.Avatars
	Log     zerolog.Logger
}

func New(db *gorm.DB, auth *middlewares.Auth, submitter jobs.Submitter, avatars *storage.Avatars, log zerolog.Logger) *Controller {
	return &Controller{DB: db, Auth: auth, Jobs: submitter, Avatars: avatars, Log: log}
}

// db returns the request transaction when the route opened one.
func (h *Controller) db(c *fiber.Ctx) *gorm.DB {
	return database.GetDB(c, h.DB)
}

func forbidden() error {
	return fiber.NewError(fiber.StatusForbidden, permissionDenied)
}

func notFound() error {
	return fiber.NewError(fiber.StatusNotFound, "Not found.")
}

// pathID parses :id; an id that cannot exist is reported as not found.
func pathID(c *fiber.Ctx) (uint, error) {
	id, ok := utils.ParseID(c.Params("id"))
	if !ok {
		return 0, notFound()
	}
	return id, nil
}

func queryID(c *fiber.Ctx, name string) (uint, bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, nil
	}
	id, ok := utils.ParseID(raw)
	if !ok {
		return 0, false, fiber.NewError(fiber.StatusBadRequest, "invalid "+name+" filter")
	}
	return id, true, nil
}

// decide checks the catalog policy and turns a denial into 403.
func decide(c *fiber.Ctx, res policy.Resource, act policy.Action, own *policy.Ownership) error {
	if !policy.Decide(middlewares.ActorFrom(c), res, act, own).Allowed() {
		return forbidden()
	}
	return nil
}

// requireFields rejects a PUT body that leaves out one of the required fields.
func requireFields(dto any, required ...string) error {
	missing := map[string]bool{}
	for _, f := range utils.NilFields(dto) {
		missing[f] = true
	}
	errs := map[string]string{}
	for _, f := range required {
		if missing[f] {
			errs[f] = "required"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &middlewares.FieldError{Message: "validation failed", Fields: errs}
}

// dbError maps persistence and model-hook errors to HTTP errors.
func dbError(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsNotFound(err):
		return notFound()
	case database.IsUniqueViolation(err):
		return fiber.NewError(fiber.StatusConflict, "An object with these values already exists.")
	case database.IsForeignKeyViolation(err):
		return fiber.NewError(fiber.StatusBadRequest, "Referenced object does not exist or is still in use.")
	case errors.Is(err, validation.ErrTaxID),
		errors.Is(err, validation.ErrPhone),
		errors.Is(err, validation.ErrSupplierType),
		errors.Is(err, validation.ErrSecondaryRequired),
		errors.Is(err, validation.ErrSecondaryForbidden),
		errors.Is(err, models.ErrNegativeAmount),
		errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrCartNotOpen):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}
