package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/atypikhouse/internal/handler"
	"github.com/iliyamo/atypikhouse/internal/middleware"
	"github.com/iliyamo/atypikhouse/internal/model"
)

// RegisterBookings registers bookings, reviews and messages.  Every
// route requires a JWT; who may act on a given booking, review or
// message is decided in the handlers.
func RegisterBookings(api *echo.Group, b *handler.BookingHandler, r *handler.ReviewHandler, m *handler.MessageHandler, jwtSecret string) {
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleTenant, model.RoleOwner, model.RoleAdmin),
	}
	with := func(extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
		return append(append([]echo.MiddlewareFunc{}, mw...), extra...)
	}
	admin := middleware.RequireRole(model.RoleAdmin)
	owner := middleware.RequireRole(model.RoleOwner)

	api.POST("/bookings", b.Create, mw...)
	api.GET("/bookings/:id", b.Get, mw...)
	api.POST("/bookings/:id/confirm-payment", b.ConfirmPayment, mw...)
	api.PUT("/bookings/:id/cancel", b.Cancel, mw...)
	api.PUT("/bookings/:id/complete", b.Complete, mw...)
	api.GET("/user/bookings", b.UserBookings, mw...)
	api.GET("/owner/bookings", b.OwnerBookings, with(owner)...)

	api.POST("/bookings/:id/review", r.Create, mw...)
	api.GET("/reviews/user", r.UserReviews, mw...)
	api.GET("/reviews/for-moderation", r.ForModeration, with(admin)...)
	api.PUT("/reviews/:id", r.Update, mw...)
	api.PUT("/reviews/:id/moderate", r.Moderate, with(admin)...)

	api.GET("/messages", m.List, mw...)
	api.GET("/messages/unread", m.Unread, mw...)
	api.GET("/messages/conversations", m.Conversations, mw...)
	api.GET("/messages/conversation/:userId", m.Thread, mw...)
	api.GET("/messages/property/:propertyId", m.ByProperty, mw...)
	api.GET("/messages/booking/:bookingId", m.ByBooking, mw...)
	api.POST("/messages", m.Send, mw...)
	api.PUT("/messages/:id/read", m.MarkRead, mw...)
}
