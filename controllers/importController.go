package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"marketplace-backend/ingest"
	"marketplace-backend/middlewares"
	"marketplace-backend/models"
)

// UploadCatalog imports the multipart "file" (yaml, json or xlsx) in one transaction.
func (h *Controller) UploadCatalog(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	format, err := ingest.FormatFromFilename(fh.Filename)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := ingest.Decode(format, f)
	if err != nil {
		return importError(err)
	}

	actor := middlewares.ActorFrom(c)
	record, err := ingest.Run(h.DB.WithContext(c.UserContext()), doc, actor, format)
	if err != nil {
		return importError(err)
	}

	h.Log.Info().
		Uint("supplier", record.SupplierID).
		Str("format", format).
		Int("goods", record.Goods).
		Msg("catalog imported")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "catalog imported",
		"import":  record.ID,
	})
}

func importError(err error) error {
	switch {
	case errors.Is(err, ingest.ErrForbidden):
		return forbidden()
	case errors.Is(err, ingest.ErrDuplicateListing):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ingest.ErrNoShop),
		errors.Is(err, ingest.ErrUnknownShop),
		errors.Is(err, ingest.ErrUnknownCategory),
		errors.Is(err, ingest.ErrInvalidGood),
		errors.Is(err, ingest.ErrMalformed),
		errors.Is(err, ingest.ErrUnsupportedFormat):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

// GetImports lists import records: all for staff, own for suppliers.
func (h *Controller) GetImports(c *fiber.Ctx) error {
	actor := middlewares.ActorFrom(c)
	q := h.db(c).Order("created_at DESC")
	switch {
	case actor.IsStaff:
	case actor.IsSupplier():
		q = q.Where("supplier_id = ?", actor.SupplierID)
	default:
		return forbidden()
	}
	var imports []models.CatalogImport
	if err := q.Omit("snapshot").Find(&imports).Error; err != nil {
		return err
	}
	return c.JSON(imports)
}
