package controllers_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-backend/models"
)

func TestCatalogPermissions(t *testing.T) {
	e := newEnv(t)
	_, customer := e.user("c@example.com", models.RoleCustomer, false)
	_, supplier := e.user("s@example.com", models.RoleSupplier, false)

	res := e.do(http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, res.List(t))

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/v1/categories", "", map[string]any{"name": "x"}).Status)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/v1/categories", customer, map[string]any{"name": "x"}).Status)

	res = e.do(http.MethodPost, "/api/v1/categories", supplier, map[string]any{"name": "Phones"})
	require.Equal(t, http.StatusCreated, res.Status, string(res.Body))
	categoryID := id(t, res)

	product := map[string]any{"name": "iPhone", "category": categoryID}
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/v1/products", "", product).Status)
	res = e.do(http.MethodPost, "/api/v1/products", supplier, product)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Body))
	productID := id(t, res)

	res = e.do(http.MethodPost, "/api/v1/products", supplier, product)
	assert.Equal(t, http.StatusConflict, res.Status)

	res = e.do(http.MethodGet, "/api/v1/products?category="+strconv.Itoa(int(categoryID)), "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)

	res = e.do(http.MethodGet, "/api/v1/products/"+strconv.Itoa(int(productID)), "", nil)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/v1/products/999", "", nil).Status)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/v1/products/abc", "", nil).Status)

	res = e.do(http.MethodPatch, "/api/v1/products/"+strconv.Itoa(int(productID)), customer, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, res.Status)
	res = e.do(http.MethodPatch, "/api/v1/products/"+strconv.Itoa(int(productID)), supplier, map[string]any{"name": "iPhone XS"})
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))
	assert.Equal(t, "iPhone XS", res.JSON(t)["name"])

	res = e.do(http.MethodPost, "/api/v1/products", supplier, map[string]any{"name": "ghost", "category": 999})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = e.do(http.MethodPost, "/api/v1/products", supplier, map[string]any{"name": "no category"})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Contains(t, res.JSON(t)["errors"], "category")
}

func TestListingOwnership(t *testing.T) {
	e := newEnv(t)
	_, owner := e.user("owner@example.com", models.RoleSupplier, false)
	_, rival := e.user("rival@example.com", models.RoleSupplier, false)
	_, customer := e.user("c@example.com", models.RoleCustomer, false)

	cat := models.Category{Name: "Phones"}
	require.NoError(t, e.db.Create(&cat).Error)
	product := models.Product{Name: "iPhone", CategoryID: cat.ID}
	require.NoError(t, e.db.Create(&product).Error)

	res := e.do(http.MethodPost, "/api/v1/listings", customer, map[string]any{"product": product.ID, "price": 10})
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = e.do(http.MethodPost, "/api/v1/listings", owner, map[string]any{"product": product.ID, "price": 100, "quantity": 3})
	require.Equal(t, http.StatusCreated, res.Status, string(res.Body))
	listingID := strconv.Itoa(int(id(t, res)))

	res = e.do(http.MethodPost, "/api/v1/listings", owner, map[string]any{"product": product.ID, "price": 100})
	assert.Equal(t, http.StatusConflict, res.Status)

	res = e.do(http.MethodPost, "/api/v1/listings", owner, map[string]any{"product": product.ID, "price": -1})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/v1/listings/"+listingID, "", nil).Status)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPatch, "/api/v1/listings/"+listingID, rival, map[string]any{"price": 1}).Status)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodDelete, "/api/v1/listings/"+listingID, rival, nil).Status)

	res = e.do(http.MethodPatch, "/api/v1/listings/"+listingID, owner, map[string]any{"price": 90.5})
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))
	assert.Equal(t, 90.5, res.JSON(t)["price"])
	assert.Equal(t, 3.0, res.JSON(t)["quantity"])

	param := models.Parameter{Name: "Color"}
	require.NoError(t, e.db.Create(&param).Error)
	value := map[string]any{"listing": id(t, res), "parameter": param.ID, "value": "gold"}
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/v1/parameter-values", rival, value).Status)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/v1/parameter-values", "", value).Status)
	res = e.do(http.MethodPost, "/api/v1/parameter-values", owner, value)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Body))
	valueID := strconv.Itoa(int(id(t, res)))

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPatch, "/api/v1/parameter-values/"+valueID, rival, map[string]any{"value": "red"}).Status)
	res = e.do(http.MethodGet, "/api/v1/parameter-values?listing="+listingID, "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/v1/listings/"+listingID, owner, nil).Status)
	var count int64
	require.NoError(t, e.db.Model(&models.ProductParameterValue{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListingFilters(t *testing.T) {
	e := newEnv(t)
	seller, _ := e.user("s@example.com", models.RoleSupplier, false)

	cat := models.Category{Name: "Phones"}
	require.NoError(t, e.db.Create(&cat).Error)
	for i, price := range []float64{50, 150, 250} {
		p := models.Product{Name: "p" + strconv.Itoa(i), CategoryID: cat.ID}
		require.NoError(t, e.db.Create(&p).Error)
		require.NoError(t, e.db.Create(&models.ProductListing{ProductID: p.ID, SupplierID: seller.Supplier.Id, Price: price, Quantity: i}).Error)
	}

	res := e.do(http.MethodGet, "/api/v1/listings?min_price=100&max_price=200", "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.List(t), 1)

	res = e.do(http.MethodGet, "/api/v1/listings?in_stock=true", "", nil)
	assert.Len(t, res.List(t), 2)

	res = e.do(http.MethodGet, "/api/v1/listings?category="+strconv.Itoa(int(cat.ID)), "", nil)
	assert.Len(t, res.List(t), 3)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/v1/listings?min_price=cheap", "", nil).Status)
}

func TestProfilesAreStaffOnly(t *testing.T) {
	e := newEnv(t)
	_, customer := e.user("c@example.com", models.RoleCustomer, false)
	_, staff := e.user("staff@example.com", models.RoleCustomer, true)
	seller, _ := e.user("s@example.com", models.RoleSupplier, false)
	sid := strconv.Itoa(int(seller.Supplier.Id))

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/v1/customers", customer, nil).Status)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/v1/customers", staff, nil).Status)

	res := e.do(http.MethodPatch, "/api/v1/suppliers/"+sid, staff, map[string]any{"supplier_type": "legal_entity"})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = e.do(http.MethodPatch, "/api/v1/suppliers/"+sid, staff, map[string]any{
		"supplier_type": "legal_entity", "secondary_tax_code": "123456789",
	})
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))
	assert.Equal(t, "legal_entity", res.JSON(t)["supplier_type"])

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/v1/suppliers/"+sid, staff, nil).Status)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/v1/suppliers/"+sid, staff, nil).Status)
}
