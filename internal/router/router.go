// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/atypikhouse/internal/handler"
	"github.com/iliyamo/atypikhouse/internal/middleware"
	"github.com/iliyamo/atypikhouse/internal/model"
)

// RegisterRoutes registers the unauthenticated probes and the static
// media directory.
func RegisterRoutes(e *echo.Echo, db *sql.DB, uploadDir string) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.Static("/media", uploadDir)
}

// RegisterAuth registers /api/auth plus the caller's own account
// endpoints.  authLimit is the stricter bucket for credential routes.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, u *handler.UserHandler, jwtSecret string, authLimit echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register/tenant", a.RegisterTenant, authLimit)
	g.POST("/register/owner", a.RegisterOwner, authLimit)
	g.POST("/login", a.Login, authLimit)
	g.POST("/refresh", a.Refresh, authLimit)
	g.POST("/refresh-token", a.Refresh, authLimit) // legacy name
	// no JWT middleware: logout works with only a refresh token in the body
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))

	me := api.Group("/users/me", middleware.JWTAuth(jwtSecret))
	me.POST("/picture", u.UploadPicture)
	me.POST("/verification-document", u.UploadVerificationDocument, middleware.RequireRole(model.RoleOwner))
}

// RegisterCatalogue registers the public property catalogue.  cache
// wraps the read-mostly routes.
func RegisterCatalogue(api *echo.Group, p *handler.PropertyHandler, ref *handler.ReferenceHandler, cache echo.MiddlewareFunc) {
	api.GET("/properties/search", p.Search, cache)
	api.GET("/properties/featured", p.Featured, cache)
	api.GET("/properties/:id", p.Get, cache)
	api.GET("/properties/:id/availability", p.Availability, cache)
	api.GET("/properties/:id/check-availability", p.CheckAvailability)
	api.GET("/properties/:id/reviews", p.PropertyReviews, cache)
	api.GET("/properties/:id/reviews/stats", p.ReviewStats)

	api.GET("/property-types", ref.PropertyTypes, cache)
	api.GET("/amenities", ref.Amenities, cache)
}

// RegisterOwner registers property management.  Ownership of a given
// property is checked in the handlers; admins pass every check.
func RegisterOwner(api *echo.Group, p *handler.PropertyHandler, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)
	// attached per route: /properties is shared with the public catalogue
	mw := []echo.MiddlewareFunc{auth, middleware.RequireRole(model.RoleOwner, model.RoleAdmin)}

	api.POST("/properties", p.Create, mw...)
	api.PUT("/properties/:id", p.Update, mw...)
	api.DELETE("/properties/:id", p.Delete, mw...)
	api.POST("/properties/:id/availability", p.AddAvailability, mw...)
	api.DELETE("/properties/:id/availability/:availabilityId", p.DeleteAvailability, mw...)
	api.POST("/properties/:id/images", p.UploadImage, mw...)
	api.PUT("/properties/:id/amenities", p.ReplaceAmenities, mw...)
	// legacy verb-style paths
	api.POST("/properties/:id/add-availability", p.AddAvailability, mw...)
	api.POST("/properties/:id/upload-image", p.UploadImage, mw...)

	api.GET("/owner/properties", p.OwnerProperties, auth, middleware.RequireRole(model.RoleOwner))
}
