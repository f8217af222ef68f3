package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
	"gorm.io/gorm"

	"marketplace-backend/config"
	"marketplace-backend/controllers"
	"marketplace-backend/database/dbtest"
	"marketplace-backend/jobs"
	"marketplace-backend/mailer"
	"marketplace-backend/middlewares"
	"marketplace-backend/models"
	"marketplace-backend/routes"
	"marketplace-backend/storage"
	"marketplace-backend/validation"
)

type fakeJobs struct {
	mu     sync.Mutex
	mails  []mailer.Message
	thumbs []jobs.ThumbnailJob
}

func (f *fakeJobs) SubmitMail(_ context.Context, _ string, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mails = append(f.mails, msg)
	return nil
}

func (f *fakeJobs) SubmitThumbnail(_ context.Context, job jobs.ThumbnailJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thumbs = append(f.thumbs, job)
	return nil
}

type env struct {
	t       *testing.T
	app     *fiber.App
	db      *gorm.DB
	auth    *middlewares.Auth
	jobs    *fakeJobs
	avatars *storage.Avatars
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t)

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = time.Hour

	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { _ = bucket.Close() })

	auth := middlewares.NewAuth(cfg, db)
	fj := &fakeJobs{}
	avatars := storage.NewAvatars(bucket)
	h := controllers.New(db, auth, fj, avatars, zerolog.Nop())

	app := fiber.New(fiber.Config{ErrorHandler: middlewares.NewErrorHandler(zerolog.Nop())})
	routes.Register(app, h, db, zerolog.Nop())

	return &env{t: t, app: app, db: db, auth: auth, jobs: fj, avatars: avatars}
}

// user inserts a user directly and returns it with a bearer token.
func (e *env) user(email string, role models.Role, staff bool) (models.User, string) {
	e.t.Helper()
	u := models.User{Username: email, Email: email, Role: role, IsStaff: staff}
	u.Password = []byte("unused")
	switch role {
	case models.RoleCustomer:
		u.Customer = &models.Customer{}
	case models.RoleSupplier:
		u.Supplier = &models.Supplier{SupplierType: validation.SupplierSoleProprietor, TaxID: "1234567890"}
	}
	require.NoError(e.t, e.db.Create(&u).Error)
	token, err := e.auth.Issue(u.Id)
	require.NoError(e.t, err)
	return u, token
}

type response struct {
	Status int
	Body   []byte
}

func (r response) JSON(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(r.Body, &out), string(r.Body))
	return out
}

func (r response) List(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(r.Body, &out), string(r.Body))
	return out
}

func (e *env) send(req *http.Request, token string) response {
	e.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return response{Status: resp.StatusCode, Body: body}
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (e *env) do(method, path, token string, body any) response {
	e.t.Helper()
	return e.send(newJSONRequest(e.t, method, path, body), token)
}

func (e *env) upload(method, path, token, field, filename, contentType string, content []byte) response {
	e.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(e.t, err)
	_, err = part.Write(content)
	require.NoError(e.t, err)
	require.NoError(e.t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.send(req, token)
}

func id(t *testing.T, r response) uint {
	t.Helper()
	v, ok := r.JSON(t)["id"].(float64)
	require.True(t, ok, string(r.Body))
	return uint(v)
}
