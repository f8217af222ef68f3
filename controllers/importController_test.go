package controllers_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-backend/models"
)

func catalogYAML(shop, category uint) []byte {
	return []byte(fmt.Sprintf(`
shop:
  - id: %d
    name: Svyaznoy
categories:
  - id: 224
    name: Smartphones
goods:
  - id: 4216292
    category: %d
    model: apple/iphone/xs-max
    name: Smartphone Apple iPhone XS Max 512GB
    price: 110000
    price_rrc: 116990
    quantity: 14
    parameters:
      "Color": gold
`, shop, category))
}

func countRows(t *testing.T, e *env, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func TestUploadCatalog(t *testing.T) {
	e := newEnv(t)
	seller, sellerToken := e.user("seller@example.com", models.RoleSupplier, false)
	rival, rivalToken := e.user("rival@example.com", models.RoleSupplier, false)
	_, customer := e.user("c@example.com", models.RoleCustomer, false)
	_, staff := e.user("staff@example.com", models.RoleCustomer, true)
	shop := seller.Supplier.Id

	upload := func(token, name string, content []byte) response {
		return e.upload(http.MethodPost, "/api/v1/catalog/upload", token, "file", name, "application/octet-stream", content)
	}

	assert.Equal(t, http.StatusUnauthorized, upload("", "shop.yaml", catalogYAML(shop, 224)).Status)
	assert.Equal(t, http.StatusForbidden, upload(rivalToken, "shop.yaml", catalogYAML(shop, 224)).Status)
	assert.Equal(t, http.StatusForbidden, upload(customer, "shop.yaml", catalogYAML(shop, 224)).Status)
	assert.Equal(t, http.StatusBadRequest, upload(sellerToken, "shop.csv", catalogYAML(shop, 224)).Status)
	assert.Equal(t, http.StatusBadRequest, upload(sellerToken, "shop.yaml", []byte("goods: [")).Status)

	res := upload(sellerToken, "shop.yaml", catalogYAML(shop, 999))
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Zero(t, countRows(t, e, &models.Category{}))
	assert.Zero(t, countRows(t, e, &models.ProductListing{}))

	res = upload(sellerToken, "shop.yaml", catalogYAML(shop, 224))
	require.Equal(t, http.StatusCreated, res.Status, string(res.Body))
	assert.NotZero(t, res.JSON(t)["import"])
	assert.EqualValues(t, 1, countRows(t, e, &models.ProductListing{}))
	assert.EqualValues(t, 1, countRows(t, e, &models.ProductParameterValue{}))

	res = upload(sellerToken, "shop.yaml", catalogYAML(shop, 224))
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.EqualValues(t, 1, countRows(t, e, &models.ProductListing{}))

	res = upload(staff, "rival.yml", catalogYAML(rival.Supplier.Id, 224))
	require.Equal(t, http.StatusCreated, res.Status, string(res.Body))
	assert.EqualValues(t, 1, countRows(t, e, &models.Product{}))
	assert.EqualValues(t, 2, countRows(t, e, &models.ProductListing{}))

	res = e.do(http.MethodGet, "/api/v1/catalog/imports", sellerToken, nil)
	require.Equal(t, http.StatusOK, res.Status)
	imports := res.List(t)
	require.Len(t, imports, 1)
	assert.Equal(t, "yaml", imports[0]["format"])
	assert.Nil(t, imports[0]["snapshot"])

	assert.Len(t, e.do(http.MethodGet, "/api/v1/catalog/imports", staff, nil).List(t), 2)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/v1/catalog/imports", customer, nil).Status)
}

func TestUploadAvatar(t *testing.T) {
	e := newEnv(t)
	alice, token := e.user("alice@example.com", models.RoleCustomer, false)
	_, bob := e.user("bob@example.com", models.RoleCustomer, false)
	path := "/api/v1/users/" + alice.Id + "/avatar"
	png := []byte("\x89PNG\r\n\x1a\n")

	assert.Equal(t, http.StatusForbidden, e.upload(http.MethodPut, path, bob, "avatar", "me.png", "image/png", png).Status)
	assert.Equal(t, http.StatusBadRequest, e.upload(http.MethodPut, path, token, "avatar", "me.txt", "text/plain", []byte("hi")).Status)

	res := e.upload(http.MethodPut, path, token, "avatar", "me.png", "image/png", png)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))
	key, _ := res.JSON(t)["avatar"].(string)
	assert.True(t, strings.HasPrefix(key, "avatars/"+alice.Id+"/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)

	require.Len(t, e.jobs.thumbs, 1)
	assert.Equal(t, alice.Id, e.jobs.thumbs[0].UserID)
	assert.Equal(t, key, e.jobs.thumbs[0].Key)

	var stored models.User
	require.NoError(t, e.db.First(&stored, "id = ?", alice.Id).Error)
	assert.Equal(t, key, stored.AvatarKey)
}

func TestDeleteUserRemovesAvatar(t *testing.T) {
	e := newEnv(t)
	alice, token := e.user("alice@example.com", models.RoleCustomer, false)

	res := e.upload(http.MethodPut, "/api/v1/users/"+alice.Id+"/avatar", token, "avatar", "me.png", "image/png", []byte("png"))
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))
	key, _ := res.JSON(t)["avatar"].(string)
	require.NotEmpty(t, key)

	ok, err := e.avatars.Exists(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/v1/users/"+alice.Id, token, nil).Status)

	ok, err = e.avatars.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, countRows(t, e, &models.User{}))
}
