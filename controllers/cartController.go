package controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"marketplace-backend/database"
	"marketplace-backend/jobs"
	"marketplace-backend/middlewares"
	"marketplace-backend/models"
	"marketplace-backend/policy"
)

type cartRequest struct {
	Address    string `json:"address" validate:"max=500"`
	CustomerID uint   `json:"customer"` // staff only
}

type cartLineRequest struct {
	CartID    uint `json:"cart" validate:"required"`
	ListingID uint `json:"listing" validate:"required"`
	Quantity  *int `json:"quantity" validate:"omitempty,gt=0"`
}

type cartLineUpdate struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

// cartResponse adds the computed total to a cart with its lines.
type cartResponse struct {
	*models.Cart
	Total float64 `json:"total"`
}

func present(cart *models.Cart) cartResponse {
	if cart.Lines == nil {
		cart.Lines = []models.CartLine{}
	}
	return cartResponse{Cart: cart, Total: cart.Total()}
}

func presentAll(carts []models.Cart) []cartResponse {
	out := make([]cartResponse, 0, len(carts))
	for i := range carts {
		out = append(out, present(&carts[i]))
	}
	return out
}

// visibleCarts scopes a cart query to what the actor may see.
func visibleCarts(q *gorm.DB, actor *policy.Actor) *gorm.DB {
	switch {
	case actor.IsStaff:
		return q
	case actor.IsCustomer():
		return q.Where("customer_id = ?", actor.CustomerID)
	}
	return q.Where("1 = 0")
}

func (h *Controller) GetCarts(c *fiber.Ctx) error {
	q := visibleCarts(h.db(c).Preload("Lines.Listing").Order("id"), middlewares.ActorFrom(c))
	if status := c.Query("status"); status != "" {
		if !models.CartStatus(status).IsValid() {
			return fiber.NewError(fiber.StatusBadRequest, "invalid status filter")
		}
		q = q.Where("status = ?", status)
	}
	var carts []models.Cart
	if err := q.Find(&carts).Error; err != nil {
		return err
	}
	return c.JSON(presentAll(carts))
}

// loadCart returns 404 for unknown ids before checking ownership.
func (h *Controller) loadCart(c *fiber.Ctx, id uint) (*models.Cart, error) {
	var cart models.Cart
	if err := h.db(c).Preload("Lines.Listing").First(&cart, id).Error; err != nil {
		return nil, dbError(err)
	}
	if !policy.CanAccessCart(middlewares.ActorFrom(c), cart.CustomerID) {
		return nil, forbidden()
	}
	return &cart, nil
}

func (h *Controller) cartFromPath(c *fiber.Ctx) (*models.Cart, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}
	return h.loadCart(c, id)
}

func (h *Controller) GetCart(c *fiber.Ctx) error {
	cart, err := h.cartFromPath(c)
	if err != nil {
		return err
	}
	return c.JSON(present(cart))
}

// CreateCart opens the customer's cart. A customer has at most one.
func (h *Controller) CreateCart(c *fiber.Ctx) error {
	var req cartRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	actor := middlewares.ActorFrom(c)

	customerID := actor.CustomerID
	if actor.IsStaff && req.CustomerID != 0 {
		customerID = req.CustomerID
	}
	if customerID == 0 {
		if actor.IsStaff {
			return middlewares.Invalid("customer", "required", "customer is required")
		}
		return forbidden()
	}
	if !policy.CanAccessCart(actor, customerID) {
		return forbidden()
	}

	db := h.db(c)
	var count int64
	if err := db.Model(&models.Cart{}).Where("customer_id = ?", customerID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return duplicateCart()
	}

	cart := models.Cart{CustomerID: customerID, Address: req.Address}
	if err := db.Create(&cart).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return duplicateCart()
		}
		return dbError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(present(&cart))
}

func duplicateCart() error {
	return middlewares.Invalid("customer", "unique", "a cart already exists for this customer")
}

// UpdateCart changes the delivery address while the order is still open.
func (h *Controller) UpdateCart(c *fiber.Ctx) error {
	cart, err := h.cartFromPath(c)
	if err != nil {
		return err
	}
	var req cartRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if cart.Status.IsTerminal() {
		return fiber.NewError(fiber.StatusBadRequest, "cart is "+string(cart.Status))
	}
	err = h.db(c).Model(&models.Cart{}).Where("id = ?", cart.ID).Update("address", req.Address).Error
	if err != nil {
		return dbError(err)
	}
	cart.Address = req.Address
	return c.JSON(present(cart))
}

func (h *Controller) DeleteCart(c *fiber.Ctx) error {
	cart, err := h.cartFromPath(c)
	if err != nil {
		return err
	}
	if err := h.db(c).Delete(&models.Cart{}, cart.ID).Error; err != nil {
		return dbError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- Transitions

func (h *Controller) ConfirmOrder(c *fiber.Ctx) error {
	return h.fire(c, models.EventConfirmOrder)
}

func (h *Controller) CancelOrder(c *fiber.Ctx) error {
	return h.fire(c, models.EventCancelOrder)
}

func (h *Controller) ConfirmPayment(c *fiber.Ctx) error {
	return h.fire(c, models.EventConfirmPayment)
}

// fire answers 400 when the cart's current status does not allow ev.
func (h *Controller) fire(c *fiber.Ctx, ev models.CartEvent) error {
	cart, err := h.cartFromPath(c)
	if err != nil {
		return err
	}
	from := cart.Status
	ok, err := cart.Transition(h.db(c), ev)
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "cannot "+string(ev)+" for a cart that is "+string(from))
	}
	h.Log.Info().Uint("cart", cart.ID).Str("from", string(from)).Str("to", string(cart.Status)).Msg("cart transition")

	if ev == models.EventConfirmOrder {
		h.notifyOrderConfirmed(c, cart)
	}
	return c.JSON(present(cart))
}

// notifyOrderConfirmed queues the confirmation mail for the cart's customer. Failures are
// logged only; the transition already happened.
func (h *Controller) notifyOrderConfirmed(c *fiber.Ctx, cart *models.Cart) {
	var customer models.Customer
	if err := h.db(c).First(&customer, cart.CustomerID).Error; err != nil {
		h.Log.Warn().Err(err).Uint("cart", cart.ID).Msg("confirmation mail: customer not found")
		return
	}
	var user models.User
	if err := h.db(c).Select("id", "email").First(&user, "id = ?", customer.UserId).Error; err != nil {
		h.Log.Warn().Err(err).Uint("cart", cart.ID).Msg("confirmation mail: user not found")
		return
	}
	msg := jobs.OrderConfirmedMail(user.Email, cart.ID, cart.Total())
	if err := h.Jobs.SubmitMail(c.UserContext(), jobs.KindOrderConfirmed, msg); err != nil {
		h.Log.Warn().Err(err).Uint("cart", cart.ID).Msg("confirmation mail not submitted")
	}
}

// ---- Lines

// AddCartLine adds quantity (default 1) of a listing, incrementing an existing line.
func (h *Controller) AddCartLine(c *fiber.Ctx) error {
	var req cartLineRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.loadCart(c, req.CartID)
	if err != nil {
		return err
	}
	var listing models.ProductListing
	if err := h.db(c).First(&listing, req.ListingID).Error; err != nil {
		if database.IsNotFound(err) {
			return middlewares.Invalid("listing", "exists", "listing does not exist")
		}
		return err
	}

	line, err := cart.AddListing(h.db(c), &listing, quantity)
	if err != nil {
		return dbError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(line)
}

func (h *Controller) lineFromPath(c *fiber.Ctx) (*models.Cart, *models.CartLine, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, nil, err
	}
	var line models.CartLine
	if err := h.db(c).First(&line, id).Error; err != nil {
		return nil, nil, dbError(err)
	}
	cart, err := h.loadCart(c, line.CartID)
	if err != nil {
		return nil, nil, err
	}
	return cart, &line, nil
}

// UpdateCartLine sets an explicit quantity. Zero or less is rejected, never clamped.
func (h *Controller) UpdateCartLine(c *fiber.Ctx) error {
	cart, line, err := h.lineFromPath(c)
	if err != nil {
		return err
	}
	var req cartLineUpdate
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if err := cart.SetQuantity(h.db(c), line, req.Quantity); err != nil {
		return dbError(err)
	}
	return c.JSON(line)
}

func (h *Controller) DeleteCartLine(c *fiber.Ctx) error {
	cart, line, err := h.lineFromPath(c)
	if err != nil {
		return err
	}
	if err := cart.RemoveLine(h.db(c), line); err != nil {
		return dbError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- Orders

// GetOrders lists carts that left the collecting state.
func (h *Controller) GetOrders(c *fiber.Ctx) error {
	q := visibleCarts(h.db(c).Preload("Lines.Listing").Order("updated_at DESC"), middlewares.ActorFrom(c)).
		Where("status <> ?", models.StatusCollecting)
	var carts []models.Cart
	if err := q.Find(&carts).Error; err != nil {
		return err
	}
	return c.JSON(presentAll(carts))
}

func (h *Controller) GetOrder(c *fiber.Ctx) error {
	cart, err := h.cartFromPath(c)
	if err != nil {
		return err
	}
	if cart.Status == models.StatusCollecting {
		return notFound()
	}
	return c.JSON(present(cart))
}
