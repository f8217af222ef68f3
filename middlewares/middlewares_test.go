package middlewares

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace-backend/config"
	"marketplace-backend/database"
	"marketplace-backend/database/dbtest"
	"marketplace-backend/models"
)

func newAuth(db *gorm.DB) *Auth {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = time.Hour
	return NewAuth(cfg, db)
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(zerolog.Nop())})
}

func createUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	u := models.User{Username: "buyer", Email: "buyer@example.com", Password: []byte("unused"), Role: models.RoleCustomer,
		Customer: &models.Customer{}}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func do(t *testing.T, app *fiber.App, method, path, token, body string, headers ...string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestAuth_RequiredAndOptional(t *testing.T) {
	db := dbtest.Open(t)
	user := createUser(t, db)
	auth := newAuth(db)

	app := newApp()
	whoami := func(c *fiber.Ctx) error {
		if a := ActorFrom(c); a != nil {
			return c.SendString(a.UserID)
		}
		return c.SendString("anonymous")
	}
	app.Get("/required", auth.Required(), whoami)
	app.Get("/optional", auth.Optional(), whoami)

	token, err := auth.Issue(user.Id)
	require.NoError(t, err)

	status, body := do(t, app, http.MethodGet, "/required", token, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, user.Id, body)

	status, _ = do(t, app, http.MethodGet, "/required", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = do(t, app, http.MethodGet, "/optional", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anonymous", body)

	status, _ = do(t, app, http.MethodGet, "/optional", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	otherCfg := &config.Config{}
	otherCfg.JWT.Secret = "other"
	otherCfg.JWT.TTL = time.Hour
	other := NewAuth(otherCfg, db)
	forged, err := other.Issue(user.Id)
	require.NoError(t, err)
	status, _ = do(t, app, http.MethodGet, "/required", forged, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestActorOf(t *testing.T) {
	u := &models.User{Id: "u", IsStaff: true, Supplier: &models.Supplier{Id: 4}}
	a := ActorOf(u)
	assert.True(t, a.IsStaff)
	assert.Equal(t, uint(4), a.SupplierID)
	assert.Zero(t, a.CustomerID)
}

type registration struct {
	Email    string `json:"email" validate:"required,email"`
	Supplier struct {
		TaxID string `json:"tax_id" validate:"taxid"`
		Phone string `json:"phone_number" validate:"omitempty,phone"`
	} `json:"supplier"`
}

func TestBindAndValidate_FieldNames(t *testing.T) {
	app := newApp()
	app.Post("/", func(c *fiber.Ctx) error {
		var r registration
		if err := BindAndValidate(c, &r); err != nil {
			return err
		}
		return c.SendStatus(http.StatusCreated)
	})

	status, body := do(t, app, http.MethodPost, "/", "", `{"email":"nope","supplier":{"tax_id":"12a","phone_number":"123"}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, `"email":"email"`)
	assert.Contains(t, body, `"supplier.tax_id":"taxid"`)
	assert.Contains(t, body, `"supplier.phone_number":"phone"`)

	status, _ = do(t, app, http.MethodPost, "/", "", `{"email":"a@b.cd","supplier":{"tax_id":"1234567890"}}`)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = do(t, app, http.MethodPost, "/", "", `{`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestErrorHandler_SanitizesUnknownErrors(t *testing.T) {
	app := newApp()
	app.Get("/", func(c *fiber.Ctx) error { return io.ErrUnexpectedEOF })
	status, body := do(t, app, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"message":"internal server error"}`, body)
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	db := dbtest.Open(t)
	user := createUser(t, db)
	auth := newAuth(db)
	token, err := auth.Issue(user.Id)
	require.NoError(t, err)

	calls := 0
	app := newApp()
	app.Post("/carts", auth.Required(), Idempotency(db, zerolog.Nop()), func(c *fiber.Ctx) error {
		calls++
		return c.Status(http.StatusCreated).JSON(fiber.Map{"call": calls})
	})

	status, first := do(t, app, http.MethodPost, "/carts", token, `{"a":1}`, "Idempotency-Key", "k1")
	assert.Equal(t, http.StatusCreated, status)
	status, second := do(t, app, http.MethodPost, "/carts", token, `{"a":1}`, "Idempotency-Key", "k1")
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	status, _ = do(t, app, http.MethodPost, "/carts", token, `{"a":2}`, "Idempotency-Key", "k1")
	assert.Equal(t, http.StatusConflict, status)

	status, _ = do(t, app, http.MethodPost, "/carts", token, `{"a":2}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 2, calls)
}

func TestTx_RollsBackOnError(t *testing.T) {
	db := dbtest.Open(t)

	app := newApp()
	app.Post("/:fail", Tx(db, zerolog.Nop()), func(c *fiber.Ctx) error {
		tx := database.GetDB(c, db)
		if err := tx.Create(&models.Category{Name: c.Params("fail")}).Error; err != nil {
			return err
		}
		if c.Params("fail") == "yes" {
			return fiber.NewError(http.StatusBadRequest, "nope")
		}
		return c.SendStatus(http.StatusCreated)
	})

	status, _ := do(t, app, http.MethodPost, "/yes", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = do(t, app, http.MethodPost, "/no", "", "")
	assert.Equal(t, http.StatusCreated, status)

	var names []string
	require.NoError(t, db.Model(&models.Category{}).Pluck("name", &names).Error)
	assert.Equal(t, []string{"no"}, names)
}

func TestTx_AfterCommitRunsOnlyOnCommit(t *testing.T) {
	db := dbtest.Open(t)

	var ran []string
	app := newApp()
	app.Post("/:name", Tx(db, zerolog.Nop()), func(c *fiber.Ctx) error {
		name := c.Params("name")
		if err := database.GetDB(c, db).Create(&models.Category{Name: name}).Error; err != nil {
			return err
		}
		database.AfterCommit(c, func() { ran = append(ran, name) })
		if name == "fail" {
			return fiber.NewError(http.StatusConflict, "nope")
		}
		return c.SendStatus(http.StatusNoContent)
	})

	status, _ := do(t, app, http.MethodPost, "/fail", "", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Empty(t, ran)

	status, _ = do(t, app, http.MethodPost, "/ok", "", "")
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, []string{"ok"}, ran)
}

func TestAfterCommit_WithoutTxRunsImmediately(t *testing.T) {
	app := newApp()
	ran := false
	app.Get("/", func(c *fiber.Ctx) error {
		database.AfterCommit(c, func() { ran = true })
		assert.True(t, ran)
		return c.SendStatus(http.StatusOK)
	})
	status, _ := do(t, app, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, ran)
}
