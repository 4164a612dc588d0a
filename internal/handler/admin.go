package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/atypikhouse/internal/model"
	"github.com/iliyamo/atypikhouse/internal/queue"
	"github.com/iliyamo/atypikhouse/internal/repository"
)

// AdminHandler groups the back-office endpoints under /api/admin.
type AdminHandler struct {
	Users  *repository.UserRepo
	Props  *repository.PropertyRepo
	Ref    *repository.ReferenceRepo
	Stats  *repository.StatsRepo // dashboard aggregates
	Events EventPublisher        // property.moderated and owner.notice
	Log    logrus.FieldLogger
	Purge  func(ctx context.Context) error // catalogue cache purge; may be nil
}

type roleReq struct {
	Role string `json:"role" validate:"required"`
}

type verifyReq struct {
	IsVerified *bool `json:"is_verified"`
}

type noticeReq struct {
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

type propertyTypeReq struct {
	Name        string  `json:"name" validate:"required,min=2,max=50"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Icon        *string `json:"icon" validate:"omitempty,max=50"`
}

type amenityReq struct {
	Name        string  `json:"name" validate:"required,min=2,max=50"`
	Icon        *string `json:"icon" validate:"omitempty,max=50"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// ListUsers handles GET /admin/users?role=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	role := strings.ToUpper(strings.TrimSpace(c.QueryParam("role")))
	if role != "" && !model.ValidRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Users.List(ctx, role)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// VerifyUser handles PUT /admin/users/:id/verify.  Without a body the
// user is verified.
func (h *AdminHandler) VerifyUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "user")
	}
	var req verifyReq
	_ = c.Bind(&req)
	verified := req.IsVerified == nil || *req.IsVerified

	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Users.SetVerified(ctx, id, verified); err != nil {
		return fail(c, h.Log, err, "update user failed")
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, u)
}

// SetRole handles PUT /admin/users/:id/role.
func (h *AdminHandler) SetRole(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "user")
	}
	var req roleReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if !model.ValidRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Users.SetRole(ctx, id, role); err != nil {
		return fail(c, h.Log, err, "update user failed")
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, u)
}

// ListProperties handles GET /admin/properties?active=true|false.
func (h *AdminHandler) ListProperties(c echo.Context) error {
	var active *bool
	if raw := c.QueryParam("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid active flag"})
		}
		active = &v
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Props.ListAll(ctx, active)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// PropertiesForModeration handles GET /admin/properties/for-moderation.
func (h *AdminHandler) PropertiesForModeration(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Props.ListForModeration(ctx)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// ApproveProperty handles PUT /admin/properties/:id/approve.
func (h *AdminHandler) ApproveProperty(c echo.Context) error { return h.moderate(c, true) }

// RejectProperty handles PUT /admin/properties/:id/reject.
func (h *AdminHandler) RejectProperty(c echo.Context) error { return h.moderate(c, false) }

func (h *AdminHandler) moderate(c echo.Context, approved bool) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Props.SetActive(ctx, id, approved); err != nil {
		return fail(c, h.Log, err, "update property failed")
	}
	p, err := h.Props.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	purgeCache(ctx, h.Purge, h.Log)
	if owner, err := h.Users.GetByID(ctx, p.OwnerID); err == nil {
		publish(h.Events, queue.PropertyModerated, queue.PropertyModeratedEvent{
			PropertyID:    p.ID,
			PropertyTitle: p.Title,
			OwnerEmail:    owner.Email,
			OwnerName:     owner.FullName(),
			Approved:      approved,
		})
	} else {
		h.Log.WithError(err).WithField("property_id", p.ID).Warn("moderation notice skipped: owner lookup failed")
	}
	return c.JSON(http.StatusOK, p)
}

// OverallStats handles GET /admin/stats.
func (h *AdminHandler) OverallStats(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	s, err := h.Stats.Overall(ctx)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, s)
}

// UserStats handles GET /admin/stats/users.
func (h *AdminHandler) UserStats(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	s, err := h.Stats.Users(ctx)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, s)
}

// PropertyStats handles GET /admin/stats/properties.
func (h *AdminHandler) PropertyStats(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	s, err := h.Stats.Properties(ctx)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, s)
}

// BookingStats handles GET /admin/stats/bookings.
func (h *AdminHandler) BookingStats(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	s, err := h.Stats.Bookings(ctx)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, s)
}

// NotifyOwners handles POST /admin/notify-owners.  One owner.notice
// event is queued per owner; the response carries the count.
func (h *AdminHandler) NotifyOwners(c echo.Context) error {
	var req noticeReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	owners, err := h.Users.List(ctx, model.RoleOwner)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	msg := strings.TrimSpace(req.Message)
	for _, o := range owners {
		publish(h.Events, queue.OwnerNotice, queue.OwnerNoticeEvent{
			OwnerEmail: o.Email,
			OwnerName:  o.FullName(),
			Message:    msg,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"notified": len(owners)})
}

// CreatePropertyType handles POST /admin/property-types.
func (h *AdminHandler) CreatePropertyType(c echo.Context) error {
	var req propertyTypeReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	t := model.PropertyType{Name: strings.TrimSpace(req.Name), Description: req.Description, Icon: req.Icon}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Ref.CreatePropertyType(ctx, &t); err != nil {
		return fail(c, h.Log, err, "create property type failed")
	}
	purgeCache(ctx, h.Purge, h.Log)
	return c.JSON(http.StatusCreated, t)
}

// CreateAmenity handles POST /admin/amenities.
func (h *AdminHandler) CreateAmenity(c echo.Context) error {
	var req amenityReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	a := model.Amenity{Name: strings.TrimSpace(req.Name), Icon: req.Icon, Description: req.Description}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Ref.CreateAmenity(ctx, &a); err != nil {
		return fail(c, h.Log, err, "create amenity failed")
	}
	purgeCache(ctx, h.Purge, h.Log)
	return c.JSON(http.StatusCreated, a)
}
