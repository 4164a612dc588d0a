package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/atypikhouse/internal/repository"
	"github.com/iliyamo/atypikhouse/internal/storage"
)

// UserHandler manages files attached to the caller's account.
type UserHandler struct {
	Users *repository.UserRepo
	Files *storage.Local
	Log   logrus.FieldLogger
}

// UploadPicture handles POST /users/me/picture.
func (h *UserHandler) UploadPicture(c echo.Context) error {
	return h.upload(c, storage.UserImages, "user", h.Users.SetProfilePicture)
}

// UploadVerificationDocument handles POST /users/me/verification-document.
// It does not change is_verified; an admin still has to review it.
func (h *UserHandler) UploadVerificationDocument(c echo.Context) error {
	return h.upload(c, storage.Verification, "verification", h.Users.SetVerificationDocument)
}

type setPath func(ctx context.Context, id uint64, path string) error

func (h *UserHandler) upload(c echo.Context, kind, prefix string, set setPath) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	prev, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	path, err := h.Files.Save(kind, prefix+"_"+strconv.FormatUint(uid, 10), fh)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrUnsupportedType) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return fail(c, h.Log, err, "save file failed")
	}
	if err := set(ctx, uid, path); err != nil {
		_ = h.Files.Remove(path)
		return fail(c, h.Log, err, "update user failed")
	}

	old := prev.ProfilePicture
	if kind == storage.Verification {
		old = prev.VerificationDocument
	}
	if old != nil && *old != "" {
		if err := h.Files.Remove(*old); err != nil {
			h.Log.WithError(err).WithField("path", *old).Warn("remove replaced upload failed")
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"path": path, "url": h.Files.URL(path)})
}
