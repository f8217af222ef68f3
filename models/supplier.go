package models

import (
	"gorm.io/gorm"

	"marketplace-backend/validation"
)

type Supplier struct {
	Id               uint             `json:"id" gorm:"primaryKey"`
	UserId           string           `json:"user_id" gorm:"size:36;uniqueIndex;not null"`
	ContactPerson    string           `json:"contact_person"`
	SupplierType     string           `json:"supplier_type" gorm:"type:varchar(20);not null"`
	TaxID            string           `json:"tax_id" gorm:"size:12;not null"`
	SecondaryTaxCode string           `json:"secondary_tax_code" gorm:"size:12"`
	PhoneNumber      string           `json:"phone_number"`
	OrganizationName string           `json:"organization_name"`
	Listings         []ProductListing `json:"-" gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE"`
}

func (s *Supplier) BeforeSave(tx *gorm.DB) error {
	if !validation.IsTaxID(s.TaxID) {
		return validation.ErrTaxID
	}
	return validation.CheckSecondaryTaxCode(s.SupplierType, s.SecondaryTaxCode)
}
