package models

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrNegativeAmount = errors.New("quantity and prices must not be negative")

type Category struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null"`
}

type Product struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	Name       string   `json:"name" gorm:"not null;uniqueIndex:idx_products_name_category,priority:1"`
	CategoryID uint     `json:"category" gorm:"not null;index;uniqueIndex:idx_products_name_category,priority:2"`
	Category   Category `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// ProductListing is one supplier's offering of a product.
type ProductListing struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	ProductID  uint    `json:"product" gorm:"not null;uniqueIndex:idx_listings_product_supplier,priority:1"`
	Product    Product `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	SupplierID uint    `json:"supplier" gorm:"not null;index;uniqueIndex:idx_listings_product_supplier,priority:2"`
	Model      string  `json:"model"`
	ExternalID int64   `json:"external_id" gorm:"index"`
	Quantity   int     `json:"quantity" gorm:"not null;default:0;check:chk_listings_quantity_nonneg,quantity >= 0"`
	Price      float64 `json:"price" gorm:"type:numeric(12,2);not null;check:chk_listings_price_nonneg,price >= 0"`
	PriceRRC   float64 `json:"price_rrc" gorm:"type:numeric(12,2);not null;default:0"`

	Values []ProductParameterValue `json:"-" gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
}

func (l *ProductListing) BeforeSave(tx *gorm.DB) error {
	if l.Quantity < 0 || l.Price < 0 || l.PriceRRC < 0 {
		return ErrNegativeAmount
	}
	return nil
}

type Parameter struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

type ProductParameterValue struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ListingID   uint      `json:"listing" gorm:"not null;uniqueIndex:idx_values_listing_parameter,priority:1"`
	ParameterID uint      `json:"parameter" gorm:"not null;uniqueIndex:idx_values_listing_parameter,priority:2"`
	Parameter   Parameter `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Value       string    `json:"value"`
}
