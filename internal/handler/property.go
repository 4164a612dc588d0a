package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/atypikhouse/internal/model"
	"github.com/iliyamo/atypikhouse/internal/repository"
	"github.com/iliyamo/atypikhouse/internal/service"
	"github.com/iliyamo/atypikhouse/internal/storage"
)

// PropertyHandler serves the public catalogue and the owner's property
// management endpoints.
type PropertyHandler struct {
	Props    *repository.PropertyRepo
	Avail    *repository.AvailabilityRepo
	Reviews  *repository.ReviewRepo
	Ref      *repository.ReferenceRepo
	Users    *repository.UserRepo
	Bookings *service.BookingService
	Files    *storage.Local
	// Purge drops cached catalogue responses after a write.  May be nil.
	Purge func(ctx context.Context) error
	Log   logrus.FieldLogger
}

const featuredLimit = 6

type propertyReq struct {
	PropertyTypeID uint64   `json:"property_type_id" validate:"required"`
	Title          string   `json:"title" validate:"required,min=5,max=255"`
	Description    string   `json:"description" validate:"required,min=20"`
	BasePriceCents int64    `json:"base_price_cents" validate:"required,gt=0"`
	Capacity       int      `json:"capacity" validate:"required,gt=0"`
	Address        string   `json:"address" validate:"required,max=255"`
	Latitude       *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude      *float64 `json:"longitude" validate:"omitempty,longitude"`
	AmenityIDs     []uint64 `json:"amenity_ids"`
}

type propertyPatch struct {
	PropertyTypeID *uint64  `json:"property_type_id" validate:"omitempty,gt=0"`
	Title          *string  `json:"title" validate:"omitempty,min=5,max=255"`
	Description    *string  `json:"description" validate:"omitempty,min=20"`
	BasePriceCents *int64   `json:"base_price_cents" validate:"omitempty,gt=0"`
	Capacity       *int     `json:"capacity" validate:"omitempty,gt=0"`
	Address        *string  `json:"address" validate:"omitempty,max=255"`
	Latitude       *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude      *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type windowReq struct {
	StartDate         string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate           string `json:"end_date" validate:"required,datetime=2006-01-02"`
	SpecialPriceCents *int64 `json:"special_price_cents" validate:"omitempty,gt=0"`
}

type amenitiesReq struct {
	AmenityIDs []uint64 `json:"amenity_ids"`
}

// ----- public -----

// Search handles GET /properties/search.
func (h *PropertyHandler) Search(c echo.Context) error {
	crit, err := searchCriteria(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	props, err := h.Props.Search(ctx, crit)
	if err != nil {
		return fail(c, h.Log, err, "search failed")
	}
	return c.JSON(http.StatusOK, props)
}

// Featured handles GET /properties/featured.
func (h *PropertyHandler) Featured(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	props, err := h.Props.Featured(ctx, featuredLimit)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, props)
}

// Get handles GET /properties/:id.  Inactive properties are hidden.
func (h *PropertyHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.Props.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(c, "property")
		}
		return fail(c, h.Log, err, "query failed")
	}
	if !p.IsActive {
		return notFound(c, "property")
	}
	return c.JSON(http.StatusOK, p)
}

// Availability handles GET /properties/:id/availability.
func (h *PropertyHandler) Availability(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	windows, err := h.Avail.ListByProperty(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, windows)
}

// CheckAvailability handles GET /properties/:id/check-availability.
func (h *PropertyHandler) CheckAvailability(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	checkIn, err1 := parseDateParam(c, "check_in")
	checkOut, err2 := parseDateParam(c, "check_out")
	if err1 != nil || err2 != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in and check_out must be YYYY-MM-DD"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.Props.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	// inactive properties still answer, always unavailable
	q, err := h.Bookings.Quote(ctx, p, checkIn, checkOut)
	if err != nil {
		return fail(c, h.Log, err, "availability check failed")
	}
	return c.JSON(http.StatusOK, q)
}

// PropertyReviews handles GET /properties/:id/reviews (moderated only).
func (h *PropertyHandler) PropertyReviews(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Reviews.ListByProperty(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

// ReviewStats handles GET /properties/:id/reviews/stats.
func (h *PropertyHandler) ReviewStats(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	st, err := h.Reviews.Stats(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, st)
}

// ----- owner -----

// Create handles POST /properties.  Owners must be verified.
func (h *PropertyHandler) Create(c echo.Context) error {
	uid, admin, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req propertyReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if !admin {
		u, err := h.Users.GetByID(ctx, uid)
		if err != nil {
			return fail(c, h.Log, err, "load user failed")
		}
		if !u.IsVerified {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "owner account is not verified yet"})
		}
	}
	if exists, err := h.Ref.PropertyTypeExists(ctx, req.PropertyTypeID); err != nil {
		return fail(c, h.Log, err, "query failed")
	} else if !exists {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": map[string]string{"property_type_id": "unknown property type"}})
	}

	p := model.Property{
		OwnerID:        uid,
		PropertyTypeID: req.PropertyTypeID,
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		BasePriceCents: req.BasePriceCents,
		Capacity:       req.Capacity,
		Address:        strings.TrimSpace(req.Address),
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
	}
	if err := h.Props.Create(ctx, &p); err != nil {
		return fail(c, h.Log, err, "create property failed")
	}
	if len(req.AmenityIDs) > 0 {
		if err := h.Props.ReplaceAmenities(ctx, p.ID, req.AmenityIDs); err != nil {
			return fail(c, h.Log, err, "save amenities failed")
		}
		amenities, err := h.Props.ListAmenities(ctx, p.ID)
		if err != nil {
			return fail(c, h.Log, err, "query failed")
		}
		p.Amenities = amenities
	}
	return c.JSON(http.StatusCreated, p)
}

// Update handles PUT /properties/:id (partial).
func (h *PropertyHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	var req propertyPatch
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.authorize(ctx, c, id); err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	if req.PropertyTypeID != nil {
		if exists, err := h.Ref.PropertyTypeExists(ctx, *req.PropertyTypeID); err != nil {
			return fail(c, h.Log, err, "query failed")
		} else if !exists {
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": map[string]string{"property_type_id": "unknown property type"}})
		}
	}
	if err := h.Props.Update(ctx, id, repository.PropertyUpdate{
		PropertyTypeID: req.PropertyTypeID,
		Title:          req.Title,
		Description:    req.Description,
		BasePriceCents: req.BasePriceCents,
		Capacity:       req.Capacity,
		Address:        req.Address,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
	}); err != nil {
		return fail(c, h.Log, err, "update property failed")
	}
	h.purge(ctx)
	p, err := h.Props.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /properties/:id.  Uploaded images are removed
// from disk once the row is gone.
func (h *PropertyHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.authorize(ctx, c, id); err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	images, err := h.Props.ListImages(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	if err := h.Props.Delete(ctx, id); err != nil {
		return fail(c, h.Log, err, "delete property failed")
	}
	for _, img := range images {
		if err := h.Files.Remove(img.Path); err != nil {
			h.Log.WithError(err).WithField("path", img.Path).Warn("remove image file failed")
		}
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}

// AddAvailability handles POST /properties/:id/availability.  The
// conflict check and insert run under the property row lock.
func (h *PropertyHandler) AddAvailability(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	var req windowReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	start, _ := model.ParseDate(req.StartDate)
	end, _ := model.ParseDate(req.EndDate)
	if !start.Before(end) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start date must be before end date"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.authorize(ctx, c, id); err != nil {
		return fail(c, h.Log, err, "query failed")
	}

	w := model.Availability{PropertyID: id, StartDate: start, EndDate: end, SpecialPriceCents: req.SpecialPriceCents}
	tx, err := h.Props.DB().BeginTx(ctx, nil)
	if err != nil {
		return fail(c, h.Log, err, "failed to start transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := repository.LockForUpdate(ctx, tx, id); err != nil {
		return fail(c, h.Log, err, "lock property failed")
	}
	if err := service.AddWindow(ctx, repository.NewAvailabilityRepo(tx), &w); err != nil {
		return fail(c, h.Log, err, "create availability failed")
	}
	if err := tx.Commit(); err != nil {
		return fail(c, h.Log, err, "commit failed")
	}
	committed = true
	h.purge(ctx)
	return c.JSON(http.StatusCreated, w)
}

// DeleteAvailability handles DELETE /properties/:id/availability/:availabilityId.
func (h *PropertyHandler) DeleteAvailability(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	wid, ok := paramID(c, "availabilityId")
	if !ok {
		return badID(c, "availability")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.authorize(ctx, c, id); err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	if err := h.Avail.Delete(ctx, id, wid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(c, "availability period")
		}
		return fail(c, h.Log, err, "delete availability failed")
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}

// UploadImage handles POST /properties/:id/images (multipart "file",
// optional "is_featured" and "position").
func (h *PropertyHandler) UploadImage(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	featured, _ := strconv.ParseBool(c.FormValue("is_featured"))
	position, _ := strconv.Atoi(c.FormValue("position"))

	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.authorize(ctx, c, id); err != nil {
		return fail(c, h.Log, err, "query failed")
	}

	path, err := h.Files.Save(storage.PropertyImages, "property_"+strconv.FormatUint(id, 10), fh)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrUnsupportedType) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return fail(c, h.Log, err, "save file failed")
	}
	img := model.PropertyImage{PropertyID: id, Path: path, Position: position, IsFeatured: featured}
	if err := h.Props.AddImage(ctx, &img); err != nil {
		_ = h.Files.Remove(path)
		return fail(c, h.Log, err, "save image failed")
	}
	h.purge(ctx)
	return c.JSON(http.StatusCreated, echo.Map{"image": img, "url": h.Files.URL(path)})
}

// ReplaceAmenities handles PUT /properties/:id/amenities.
func (h *PropertyHandler) ReplaceAmenities(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "property")
	}
	var req amenitiesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.authorize(ctx, c, id); err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	if err := h.Props.ReplaceAmenities(ctx, id, req.AmenityIDs); err != nil {
		return fail(c, h.Log, err, "save amenities failed")
	}
	list, err := h.Props.ListAmenities(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, list)
}

// OwnerProperties handles GET /owner/properties.
func (h *PropertyHandler) OwnerProperties(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	props, err := h.Props.ListByOwner(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, props)
}

// authorize returns nil when the caller owns property id or is admin.
func (h *PropertyHandler) authorize(ctx context.Context, c echo.Context, id uint64) error {
	uid, admin, ok := caller(c)
	if !ok {
		return service.ErrForbidden
	}
	owner, err := h.Props.GetOwnerID(ctx, id)
	if err != nil {
		return err
	}
	if owner != uid && !admin {
		return service.ErrForbidden
	}
	return nil
}

func (h *PropertyHandler) purge(ctx context.Context) { purgeCache(ctx, h.Purge, h.Log) }

// searchCriteria reads the query string of /properties/search.  Prices
// are in cents; amenities may repeat or be comma separated.
func searchCriteria(c echo.Context) (repository.SearchCriteria, error) {
	var crit repository.SearchCriteria
	var err error
	if v := c.QueryParam("property_type"); v != "" {
		if crit.PropertyTypeID, err = strconv.ParseUint(v, 10, 64); err != nil {
			return crit, errors.New("property_type must be a number")
		}
	}
	if v := c.QueryParam("capacity"); v != "" {
		if crit.Capacity, err = strconv.Atoi(v); err != nil || crit.Capacity < 0 {
			return crit, errors.New("capacity must be a positive number")
		}
	}
	if v := c.QueryParam("min_price"); v != "" {
		if crit.MinPriceCents, err = strconv.ParseInt(v, 10, 64); err != nil {
			return crit, errors.New("min_price must be a number of cents")
		}
	}
	if v := c.QueryParam("max_price"); v != "" {
		if crit.MaxPriceCents, err = strconv.ParseInt(v, 10, 64); err != nil {
			return crit, errors.New("max_price must be a number of cents")
		}
	}
	for _, raw := range c.QueryParams()["amenities"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return crit, errors.New("amenities must be numeric ids")
			}
			crit.AmenityIDs = append(crit.AmenityIDs, id)
		}
	}
	crit.Query = strings.TrimSpace(c.QueryParam("query"))
	crit.Location = strings.TrimSpace(c.QueryParam("location"))
	switch s := c.QueryParam("sort_by"); s {
	case "", "price_asc", "price_desc", "newest", "rating":
		crit.SortBy = s
	default:
		return crit, errors.New("sort_by must be one of price_asc, price_desc, newest, rating")
	}
	return crit, nil
}
