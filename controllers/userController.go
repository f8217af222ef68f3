package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"marketplace-backend/database"
	"marketplace-backend/jobs"
	"marketplace-backend/middlewares"
	"marketplace-backend/models"
	"marketplace-backend/policy"
	"marketplace-backend/storage"
)

type userUpdate struct {
	Username *string `json:"username" validate:"omitempty,min=1,max=150"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
}

// ListUsers returns every user to staff and only the requester otherwise.
func (h *Controller) ListUsers(c *fiber.Ctx) error {
	actor := middlewares.ActorFrom(c)
	q := h.db(c).Preload("Customer").Preload("Supplier").Order("created_at")
	if !actor.IsStaff {
		q = q.Where("id = ?", actor.UserID)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return err
	}
	return c.JSON(users)
}

func (h *Controller) loadUser(c *fiber.Ctx) (*models.User, error) {
	id := c.Params("id")
	if !policy.CanAccessUser(middlewares.ActorFrom(c), id) {
		// only staff may learn whether another id exists
		return nil, forbidden()
	}
	var user models.User
	if err := h.db(c).Preload("Customer").Preload("Supplier").First(&user, "id = ?", id).Error; err != nil {
		return nil, dbError(err)
	}
	return &user, nil
}

func (h *Controller) GetUser(c *fiber.Ctx) error {
	user, err := h.loadUser(c)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// UpdateUser serves PUT (username and email required) and PATCH. The role never changes.
func (h *Controller) UpdateUser(c *fiber.Ctx) error {
	user, err := h.loadUser(c)
	if err != nil {
		return err
	}

	var req userUpdate
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if c.Method() == fiber.MethodPut {
		if err := requireFields(&req, "username", "email"); err != nil {
			return err
		}
	}

	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			var count int64
			if err := h.db(c).Model(&models.User{}).Where("email = ? AND id <> ?", email, user.Id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return middlewares.Invalid("email", "unique", "email already exists")
			}
		}
		user.Email = email
	}
	if req.Password != nil {
		if err := user.SetPassword(*req.Password); err != nil {
			return err
		}
	}

	if err := h.db(c).Omit("Customer", "Supplier").Save(user).Error; err != nil {
		return dbError(err)
	}
	return c.JSON(user)
}

// DeleteUser removes the account; profiles, carts and listings follow through cascades.
func (h *Controller) DeleteUser(c *fiber.Ctx) error {
	user, err := h.loadUser(c)
	if err != nil {
		return err
	}
	if err := h.db(c).Delete(&models.User{}, "id = ?", user.Id).Error; err != nil {
		return dbError(err)
	}
	ctx, key := c.UserContext(), user.AvatarKey
	database.AfterCommit(c, func() {
		if err := h.Avatars.Delete(ctx, key); err != nil {
			h.Log.Warn().Err(err).Str("user", user.Id).Msg("could not delete avatar")
		}
	})
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadAvatar stores the multipart "avatar" file and queues a thumbnail job.
func (h *Controller) UploadAvatar(c *fiber.Ctx) error {
	user, err := h.loadUser(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("avatar")
	if err != nil {
		return middlewares.Invalid("avatar", "required", "avatar file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := c.UserContext()
	key, err := h.Avatars.Put(ctx, user.Id, fh.Header.Get(fiber.HeaderContentType), f)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			return middlewares.Invalid("avatar", "image", err.Error())
		}
		return err
	}

	old := user.AvatarKey
	if err := h.db(c).Model(&models.User{}).Where("id = ?", user.Id).Update("avatar_key", key).Error; err != nil {
		_ = h.Avatars.Delete(ctx, key)
		return dbError(err)
	}
	user.AvatarKey = key

	if err := h.Avatars.Delete(ctx, old); err != nil {
		h.Log.Warn().Err(err).Str("key", old).Msg("could not delete previous avatar")
	}
	if err := h.Jobs.SubmitThumbnail(ctx, jobs.ThumbnailJob{UserID: user.Id, Key: key}); err != nil {
		h.Log.Warn().Err(err).Str("user", user.Id).Msg("thumbnail job not submitted")
	}
	return c.JSON(user)
}

// StaffOnly guards the customer and supplier profile endpoints.
func StaffOnly(c *fiber.Ctx) error {
	if !policy.CanManageProfiles(middlewares.ActorFrom(c)) {
		return forbidden()
	}
	return c.Next()
}
