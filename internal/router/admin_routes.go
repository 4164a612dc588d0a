package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/atypikhouse/internal/handler"
	"github.com/iliyamo/atypikhouse/internal/middleware"
	"github.com/iliyamo/atypikhouse/internal/model"
)

// RegisterAdmin registers the back office under /api/admin.  All
// routes require the ADMIN role.
func RegisterAdmin(api *echo.Group, a *handler.AdminHandler, r *handler.ReviewHandler, jwtSecret string) {
	g := api.Group("/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.GET("/users", a.ListUsers)
	g.PUT("/users/:id/verify", a.VerifyUser)
	g.PUT("/users/:id/role", a.SetRole)

	g.GET("/properties", a.ListProperties)
	g.GET("/properties/for-moderation", a.PropertiesForModeration)
	g.PUT("/properties/:id/approve", a.ApproveProperty)
	g.PUT("/properties/:id/reject", a.RejectProperty)

	g.GET("/reviews", r.All)
	g.PUT("/reviews/:id/moderate", r.Moderate)

	g.GET("/stats", a.OverallStats)
	g.GET("/stats/users", a.UserStats)
	g.GET("/stats/properties", a.PropertyStats)
	g.GET("/stats/bookings", a.BookingStats)

	g.POST("/notify-owners", a.NotifyOwners)
	g.POST("/property-types", a.CreatePropertyType)
	g.POST("/amenities", a.CreateAmenity)

	// older clients moderate properties outside /admin; same guards
	mw := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin)}
	api.GET("/properties/for-moderation", a.PropertiesForModeration, mw...)
	api.PUT("/properties/:id/approve", a.ApproveProperty, mw...)
	api.PUT("/properties/:id/reject", a.RejectProperty, mw...)
}
