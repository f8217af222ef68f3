package models

import (
	"time"

	"gorm.io/datatypes"
)

// CatalogImport records one successful catalog upload together with the decoded document.
type CatalogImport struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	SupplierID uint           `json:"supplier" gorm:"not null;index"`
	UploadedBy string         `json:"uploaded_by" gorm:"size:36;not null"`
	Format     string         `json:"format" gorm:"type:varchar(10)"` // "yaml" | "json" | "xlsx"
	Categories int            `json:"categories"`
	Goods      int            `json:"goods"`
	Parameters int            `json:"parameters"`
	Snapshot   datatypes.JSON `json:"snapshot"`
	CreatedAt  time.Time      `json:"created_at"`
}
