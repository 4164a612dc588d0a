package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/atypikhouse/internal/model"
	"github.com/iliyamo/atypikhouse/internal/repository"
	"github.com/iliyamo/atypikhouse/internal/service"
)

// ReviewHandler serves tenant reviews and their moderation.
type ReviewHandler struct {
	Reviews  *repository.ReviewRepo
	Bookings *repository.BookingRepo
	Log      logrus.FieldLogger
	Now      func() time.Time
	// Purge drops cached property review listings.  May be nil.
	Purge func(ctx context.Context) error
}

type reviewReq struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=10,max=1000"`
}

type reviewUpdateReq struct {
	Rating      *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment     *string `json:"comment" validate:"omitempty,min=10,max=1000"`
	IsModerated *bool   `json:"is_moderated"`
}

type moderateReq struct {
	IsModerated *bool `json:"is_moderated"`
}

func (h *ReviewHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// Create handles POST /bookings/:id/review.
func (h *ReviewHandler) Create(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, ok := paramID(c, "id")
	if !ok {
		return badID(c, "booking")
	}
	var req reviewReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	d, err := h.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	if err := service.CheckReviewable(d.Booking, uid, h.now()); err != nil {
		return fail(c, h.Log, err, "review check failed")
	}
	rv := model.Review{
		BookingID:  d.ID,
		PropertyID: d.PropertyID,
		Rating:     req.Rating,
		Comment:    strings.TrimSpace(req.Comment),
		TenantID:   uid,
	}
	if err := h.Reviews.Create(ctx, &rv); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already reviewed"})
		}
		return fail(c, h.Log, err, "create review failed")
	}
	return c.JSON(http.StatusCreated, rv)
}

// UserReviews handles GET /reviews/user.
func (h *ReviewHandler) UserReviews(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Reviews.ListByTenant(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// Update handles PUT /reviews/:id.  Authors may edit within 24h;
// admins at any time and they alone may change is_moderated.
func (h *ReviewHandler) Update(c echo.Context) error {
	uid, admin, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "review")
	}
	var req reviewUpdateReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	if err := service.CheckReviewEditable(rv, uid, admin, h.now()); err != nil {
		return fail(c, h.Log, err, "review check failed")
	}
	if req.Rating != nil {
		rv.Rating = *req.Rating
	}
	if req.Comment != nil {
		rv.Comment = strings.TrimSpace(*req.Comment)
	}
	if req.IsModerated != nil && admin {
		rv.IsModerated = *req.IsModerated
	}
	if err := h.Reviews.Update(ctx, &rv); err != nil {
		return fail(c, h.Log, err, "update review failed")
	}
	// moderated reviews are served from the catalogue cache
	purgeCache(ctx, h.Purge, h.Log)
	rv.UpdatedAt = h.now()
	return c.JSON(http.StatusOK, rv)
}

// Moderate handles PUT /reviews/:id/moderate.  The body may carry
// {"is_moderated": false} to hide a review again.
func (h *ReviewHandler) Moderate(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "review")
	}
	// an empty body means approve
	var req moderateReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	moderated := req.IsModerated == nil || *req.IsModerated

	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Reviews.SetModerated(ctx, id, moderated); err != nil {
		return fail(c, h.Log, err, "moderate review failed")
	}
	purgeCache(ctx, h.Purge, h.Log)
	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, rv)
}

// ForModeration handles GET /reviews/for-moderation.
func (h *ReviewHandler) ForModeration(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Reviews.ListForModeration(ctx)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// All handles GET /admin/reviews.
func (h *ReviewHandler) All(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Reviews.ListAll(ctx)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}
