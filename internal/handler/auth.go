package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/atypikhouse/internal/config"
	"github.com/iliyamo/atypikhouse/internal/model"
	"github.com/iliyamo/atypikhouse/internal/queue"
	"github.com/iliyamo/atypikhouse/internal/repository"
	"github.com/iliyamo/atypikhouse/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Events EventPublisher
	Log    logrus.FieldLogger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, ev EventPublisher, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Events: ev, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email                string  `json:"email" validate:"required,email"`
	Password             string  `json:"password" validate:"required,min=8"`
	FirstName            string  `json:"first_name" validate:"required,min=2,max=50"`
	LastName             string  `json:"last_name" validate:"required,min=2,max=50"`
	Phone                *string `json:"phone" validate:"omitempty,phone"`
	VerificationDocument *string `json:"verification_document" validate:"omitempty,max=255"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// RegisterTenant: tenants are verified on creation.
func (h *AuthHandler) RegisterTenant(c echo.Context) error {
	return h.register(c, model.RoleTenant)
}

// RegisterOwner: owners wait for an admin to verify them before they
// can list properties.
func (h *AuthHandler) RegisterOwner(c echo.Context) error {
	return h.register(c, model.RoleOwner)
}

func (h *AuthHandler) register(c echo.Context, role string) error {
	var req registerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	u := model.User{
		Email:      req.Email,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Phone:      req.Phone,
		Role:       role,
		IsVerified: role != model.RoleOwner,
	}
	if role == model.RoleOwner {
		u.VerificationDocument = req.VerificationDocument
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	if _, err := h.Users.Create(ctx, &u, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return fail(c, h.Log, err, "create user failed")
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt

	resp, err := h.issue(c, u)
	if err != nil {
		return fail(c, h.Log, err, "issue tokens failed")
	}
	publish(h.Events, queue.UserRegistered, queue.UserRegisteredEvent{
		UserID: u.ID, Email: u.Email, FirstName: u.FirstName, Role: u.Role,
	})
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return fail(c, h.Log, err, "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	resp, err := h.issue(c, u)
	if err != nil {
		return fail(c, h.Log, err, "issue tokens failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: rotate the refresh token and issue a new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	newRef, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, h.Log, err, "issue refresh failed")
	}
	oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	userID, err := h.Tokens.Rotate(ctx, oldHash, utils.HashRefreshRaw(newRef.Raw), newRef.Exp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return fail(c, h.Log, err, "rotate refresh failed")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return fail(c, h.Log, err, "load user failed")
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, h.Log, err, "issue access failed")
	}
	return c.JSON(http.StatusOK, authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: newRef.Raw, Expires: newRef.Exp},
	})
}

// Logout revokes the refresh token in the body, or every refresh
// token of the bearer when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := requestCtx(c)
	defer cancel()

	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return fail(c, h.Log, err, "revoke failed")
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token or bearer token required"})
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	uid, _ := claims.UserID()
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return fail(c, h.Log, err, "revoke failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile from the database.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err, "load user failed")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) issue(c echo.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}
