package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/atypikhouse/internal/repository"
)

// ReferenceHandler serves the public catalogue of property types and
// amenities.
type ReferenceHandler struct {
	Ref *repository.ReferenceRepo
	Log logrus.FieldLogger
}

func (h *ReferenceHandler) PropertyTypes(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Ref.ListPropertyTypes(ctx)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ReferenceHandler) Amenities(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	list, err := h.Ref.ListAmenities(ctx)
	if err != nil {
		return fail(c, h.Log, err, "query failed")
	}
	return c.JSON(http.StatusOK, list)
}
