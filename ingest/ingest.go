package ingest

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"marketplace-backend/database"
	"marketplace-backend/models"
	"marketplace-backend/policy"
)

var (
	ErrNoShop           = errors.New("document has no shop entry")
	ErrForbidden        = errors.New("not allowed to upload a catalog for this shop")
	ErrUnknownShop      = errors.New("shop does not exist")
	ErrUnknownCategory  = errors.New("category does not exist")
	ErrDuplicateListing = errors.New("listing for this product already exists")
	ErrInvalidGood      = errors.New("invalid good")
)

// Run stores doc for the supplier named by its shop entry. All writes happen in one
// transaction: on any error nothing of the upload is kept.
func Run(db *gorm.DB, doc *Document, actor *policy.Actor, format string) (*models.CatalogImport, error) {
	shopID, ok := doc.ShopID()
	if !ok {
		return nil, ErrNoShop
	}
	if !policy.CanImport(actor, shopID) {
		return nil, ErrForbidden
	}

	snapshot, err := Encode(doc)
	if err != nil {
		return nil, err
	}

	record := &models.CatalogImport{
		SupplierID: shopID,
		UploadedBy: actor.UserID,
		Format:     format,
		Categories: len(doc.Categories),
		Goods:      len(doc.Goods),
		Parameters: doc.ParameterCount(),
		Snapshot:   datatypes.JSON(snapshot),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, c := range doc.Categories {
			if err := ensureCategory(tx, c); err != nil {
				return err
			}
		}

		var supplier models.Supplier
		if err := tx.First(&supplier, shopID).Error; err != nil {
			if database.IsNotFound(err) {
				return errors.Wrapf(ErrUnknownShop, "shop %d", shopID)
			}
			return errors.Wrap(err, "load supplier")
		}

		params := make(map[string]uint)
		for _, g := range doc.Goods {
			if err := storeGood(tx, supplier.Id, g, params); err != nil {
				return err
			}
		}

		if err := tx.Create(record).Error; err != nil {
			return errors.Wrap(err, "store import record")
		}
		return database.ResyncCategorySequence(tx)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ensureCategory creates the category when its id is unused. An existing name is kept.
func ensureCategory(tx *gorm.DB, c Category) error {
	if c.ID == 0 {
		return errors.Wrapf(ErrInvalidGood, "category %q has no id", c.Name)
	}
	var existing models.Category
	err := tx.First(&existing, c.ID).Error
	if err == nil {
		return nil
	}
	if !database.IsNotFound(err) {
		return errors.Wrap(err, "load category")
	}
	return errors.Wrap(tx.Create(&models.Category{ID: c.ID, Name: c.Name}).Error, "create category")
}

func storeGood(tx *gorm.DB, supplierID uint, g Good, params map[string]uint) error {
	if strings.TrimSpace(g.Name) == "" {
		return errors.Wrapf(ErrInvalidGood, "good %d has no name", g.ID)
	}

	var category models.Category
	if err := tx.First(&category, g.Category).Error; err != nil {
		if database.IsNotFound(err) {
			return errors.Wrapf(ErrUnknownCategory, "good %d: category %d", g.ID, g.Category)
		}
		return errors.Wrap(err, "load category")
	}

	product := models.Product{Name: g.Name, CategoryID: category.ID}
	if err := tx.Where(&product).FirstOrCreate(&product).Error; err != nil {
		return errors.Wrap(err, "get or create product")
	}

	listing := models.ProductListing{
		ProductID:  product.ID,
		SupplierID: supplierID,
		Model:      g.Model,
		ExternalID: g.ID,
		Quantity:   g.Quantity,
		Price:      g.Price,
		PriceRRC:   g.PriceRRC,
	}
	if err := tx.Create(&listing).Error; err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return errors.Wrapf(ErrDuplicateListing, "good %d (%s)", g.ID, g.Name)
		case errors.Is(err, models.ErrNegativeAmount):
			return errors.Wrapf(ErrInvalidGood, "good %d: %v", g.ID, err)
		}
		return errors.Wrap(err, "create listing")
	}

	names := make([]string, 0, len(g.Parameters))
	for name := range g.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		paramID, ok := params[name]
		if !ok {
			param := models.Parameter{Name: name}
			if err := tx.Where(&param).FirstOrCreate(&param).Error; err != nil {
				return errors.Wrapf(err, "get or create parameter %q", name)
			}
			paramID = param.ID
			params[name] = paramID
		}
		value := models.ProductParameterValue{
			ListingID:   listing.ID,
			ParameterID: paramID,
			Value:       string(g.Parameters[name]),
		}
		if err := tx.Create(&value).Error; err != nil {
			return errors.Wrapf(err, "store parameter %q", name)
		}
	}
	return nil
}
