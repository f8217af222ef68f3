// Package validation holds the field rules shared by the request validator and the model
// save hooks.
package validation

import (
	"github.com/pkg/errors"
)

const (
	SupplierLegalEntity    = "legal_entity"
	SupplierSoleProprietor = "sole_proprietor"

	minPhoneDigits = 10
)

var (
	ErrTaxID              = errors.New("tax id must consist of 10 or 12 digits")
	ErrPhone              = errors.New("phone number must contain at least 10 digits")
	ErrSupplierType       = errors.New("supplier type must be legal_entity or sole_proprietor")
	ErrSecondaryRequired  = errors.New("secondary tax code is required for legal entities")
	ErrSecondaryForbidden = errors.New("secondary tax code must be empty for sole proprietors")
)

// IsDigits reports whether s is non-empty and made of ASCII digits only.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func IsTaxID(s string) bool {
	return IsDigits(s) && (len(s) == 10 || len(s) == 12)
}

func IsPhone(s string) bool {
	return IsDigits(s) && len(s) >= minPhoneDigits
}

func IsSupplierType(s string) bool {
	return s == SupplierLegalEntity || s == SupplierSoleProprietor
}

// CheckSecondaryTaxCode enforces the conditional secondary tax code:
// required for legal entities, forbidden for sole proprietors.
func CheckSecondaryTaxCode(supplierType, code string) error {
	switch supplierType {
	case SupplierLegalEntity:
		if code == "" {
			return ErrSecondaryRequired
		}
	case SupplierSoleProprietor:
		if code != "" {
			return ErrSecondaryForbidden
		}
	default:
		return ErrSupplierType
	}
	return nil
}
