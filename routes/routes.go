package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"marketplace-backend/controllers"
	"marketplace-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, h *controllers.Controller, db *gorm.DB, log zerolog.Logger) {
	api := app.Group("/api/v1")

	idempotency := middlewares.Idempotency(db, log)
	tx := middlewares.Tx(db, log)

	// Public auth endpoints
	api.Post("/login", h.Login)
	api.Post("/users", tx, h.Register)

	// Groups on the same prefix would stack their middleware, so chains are per route.
	catalog := chain(h.Auth.Optional(), idempotency)
	protected := chain(h.Auth.Required(), idempotency)

	// Catalog: anonymous reads, writes checked by the catalog policy
	api.Get("/categories", catalog(h.GetCategories)...)
	api.Post("/categories", catalog(h.CreateCategory)...)
	api.Get("/categories/:id", catalog(h.GetCategory)...)
	api.Put("/categories/:id", catalog(h.UpdateCategory)...)
	api.Patch("/categories/:id", catalog(h.UpdateCategory)...)
	api.Delete("/categories/:id", catalog(h.DeleteCategory)...)

	api.Get("/products", catalog(h.GetProducts)...)
	api.Post("/products", catalog(h.CreateProduct)...)
	api.Get("/products/:id", catalog(h.GetProduct)...)
	api.Put("/products/:id", catalog(h.UpdateProduct)...)
	api.Patch("/products/:id", catalog(h.UpdateProduct)...)
	api.Delete("/products/:id", catalog(tx, h.DeleteProduct)...)

	api.Get("/listings", catalog(h.GetListings)...)
	api.Post("/listings", catalog(h.CreateListing)...)
	api.Get("/listings/:id", catalog(h.GetListing)...)
	api.Put("/listings/:id", catalog(h.UpdateListing)...)
	api.Patch("/listings/:id", catalog(h.UpdateListing)...)
	api.Delete("/listings/:id", catalog(tx, h.DeleteListing)...)

	api.Get("/parameters", catalog(h.GetParameters)...)
	api.Post("/parameters", catalog(h.CreateParameter)...)
	api.Get("/parameters/:id", catalog(h.GetParameter)...)
	api.Put("/parameters/:id", catalog(h.UpdateParameter)...)
	api.Patch("/parameters/:id", catalog(h.UpdateParameter)...)
	api.Delete("/parameters/:id", catalog(tx, h.DeleteParameter)...)

	api.Get("/parameter-values", catalog(h.GetParameterValues)...)
	api.Post("/parameter-values", catalog(h.CreateParameterValue)...)
	api.Get("/parameter-values/:id", catalog(h.GetParameterValue)...)
	api.Put("/parameter-values/:id", catalog(h.UpdateParameterValue)...)
	api.Patch("/parameter-values/:id", catalog(h.UpdateParameterValue)...)
	api.Delete("/parameter-values/:id", catalog(h.DeleteParameterValue)...)

	// Protected endpoints (JWT auth), idempotency guard before any request TX
	// Users
	api.Get("/users", protected(h.ListUsers)...)
	api.Get("/users/:id", protected(h.GetUser)...)
	api.Put("/users/:id", protected(h.UpdateUser)...)
	api.Patch("/users/:id", protected(h.UpdateUser)...)
	api.Delete("/users/:id", protected(tx, h.DeleteUser)...)
	api.Put("/users/:id/avatar", protected(h.UploadAvatar)...)

	// Customer and supplier profiles (staff)
	api.Get("/customers", protected(controllers.StaffOnly, h.GetCustomers)...)
	api.Get("/customers/:id", protected(controllers.StaffOnly, h.GetCustomer)...)
	api.Put("/customers/:id", protected(controllers.StaffOnly, h.UpdateCustomer)...)
	api.Patch("/customers/:id", protected(controllers.StaffOnly, h.UpdateCustomer)...)
	api.Delete("/customers/:id", protected(controllers.StaffOnly, tx, h.DeleteCustomer)...)

	api.Get("/suppliers", protected(controllers.StaffOnly, h.GetSuppliers)...)
	api.Get("/suppliers/:id", protected(controllers.StaffOnly, h.GetSupplier)...)
	api.Put("/suppliers/:id", protected(controllers.StaffOnly, h.UpdateSupplier)...)
	api.Patch("/suppliers/:id", protected(controllers.StaffOnly, h.UpdateSupplier)...)
	api.Delete("/suppliers/:id", protected(controllers.StaffOnly, tx, h.DeleteSupplier)...)

	// Catalog ingestion (runs its own transaction)
	api.Post("/catalog/upload", protected(h.UploadCatalog)...)
	api.Get("/catalog/imports", protected(h.GetImports)...)

	// Carts and lines
	api.Get("/carts", protected(h.GetCarts)...)
	api.Post("/carts", protected(h.CreateCart)...)
	api.Get("/carts/:id", protected(h.GetCart)...)
	api.Put("/carts/:id", protected(h.UpdateCart)...)
	api.Delete("/carts/:id", protected(tx, h.DeleteCart)...)
	api.Post("/carts/:id/confirm", protected(h.ConfirmOrder)...)
	api.Post("/carts/:id/cancel", protected(h.CancelOrder)...)
	api.Post("/carts/:id/confirm-payment", protected(h.ConfirmPayment)...)

	api.Post("/cart-lines", protected(h.AddCartLine)...)
	api.Put("/cart-lines/:id", protected(h.UpdateCartLine)...)
	api.Delete("/cart-lines/:id", protected(h.DeleteCartLine)...)

	// Orders
	api.Get("/orders", protected(h.GetOrders)...)
	api.Get("/orders/:id", protected(h.GetOrder)...)
}

// chain prepends mw to every handler list it is given.
func chain(mw ...fiber.Handler) func(...fiber.Handler) []fiber.Handler {
	return func(handlers ...fiber.Handler) []fiber.Handler {
		out := make([]fiber.Handler, 0, len(mw)+len(handlers))
		return append(append(out, mw...), handlers...)
	}
}
