package models

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace-backend/utils"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrCartNotOpen     = errors.New("cart is no longer collecting")
	ErrLineNotFound    = errors.New("cart line not found")
)

type Cart struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	CustomerID uint       `json:"customer" gorm:"not null;uniqueIndex"`
	Customer   Customer   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Status     CartStatus `json:"status" gorm:"type:varchar(32);not null;default:collecting;index"`
	Address    string     `json:"address"`
	Lines      []CartLine `json:"lines" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type CartLine struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	CartID     uint           `json:"cart" gorm:"not null;uniqueIndex:idx_cart_lines_cart_listing,priority:1"`
	ListingID  uint           `json:"listing" gorm:"not null;uniqueIndex:idx_cart_lines_cart_listing,priority:2"`
	Listing    ProductListing `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	SupplierID uint           `json:"supplier" gorm:"not null"`
	Quantity   int            `json:"quantity" gorm:"not null;check:chk_cart_lines_quantity_pos,quantity > 0"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.Status == "" {
		c.Status = StatusCollecting
	}
	return nil
}

// BeforeSave rejects non-positive quantities even when a caller skipped request validation.
func (l *CartLine) BeforeSave(tx *gorm.DB) error {
	if l.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// Total sums price times quantity over the preloaded lines (Lines.Listing must be loaded).
func (c *Cart) Total() float64 {
	var total float64
	for _, line := range c.Lines {
		total += line.Listing.Price * float64(line.Quantity)
	}
	return utils.Round2(total)
}

// Fire applies ev to the in-memory status and reports whether the transition was legal.
func (c *Cart) Fire(ev CartEvent) bool {
	next, ok := c.Status.Next(ev)
	if ok {
		c.Status = next
	}
	return ok
}

// Transition fires ev and persists the new status only if the stored status is still the one
// the transition started from. It returns false without error when the guard rejects the
// event or another request changed the status first.
func (c *Cart) Transition(tx *gorm.DB, ev CartEvent) (bool, error) {
	prev := c.Status
	if !c.Fire(ev) {
		return false, nil
	}
	res := tx.Model(&Cart{}).
		Where("id = ? AND status = ?", c.ID, prev).
		Updates(map[string]any{"status": c.Status, "updated_at": time.Now()})
	if res.Error != nil {
		c.Status = prev
		return false, errors.Wrap(res.Error, "update cart status")
	}
	if res.RowsAffected == 0 {
		c.Status = prev
		return false, nil
	}
	return true, nil
}

// AddListing increments the line for listing by quantity, creating it when absent.
func (c *Cart) AddListing(tx *gorm.DB, listing *ProductListing, quantity int) (*CartLine, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if c.Status != StatusCollecting {
		return nil, ErrCartNotOpen
	}

	line := CartLine{CartID: c.ID, ListingID: listing.ID, SupplierID: listing.SupplierID, Quantity: quantity}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "listing_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity": gorm.Expr("cart_lines.quantity + ?", quantity),
		}),
	}).Create(&line).Error
	if err != nil {
		return nil, errors.Wrap(err, "add cart line")
	}

	var stored CartLine
	if err := tx.Where("cart_id = ? AND listing_id = ?", c.ID, listing.ID).First(&stored).Error; err != nil {
		return nil, errors.Wrap(err, "reload cart line")
	}
	return &stored, nil
}

// SetQuantity overwrites the quantity of a line in this cart.
func (c *Cart) SetQuantity(tx *gorm.DB, line *CartLine, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if c.Status != StatusCollecting {
		return ErrCartNotOpen
	}
	if line.CartID != c.ID {
		return ErrLineNotFound
	}
	line.Quantity = quantity
	return tx.Save(line).Error
}

// RemoveLine deletes a line from this cart.
func (c *Cart) RemoveLine(tx *gorm.DB, line *CartLine) error {
	if c.Status != StatusCollecting {
		return ErrCartNotOpen
	}
	if line.CartID != c.ID {
		return ErrLineNotFound
	}
	return tx.Delete(&CartLine{}, line.ID).Error
}
