package identity

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/config"
	"github.com/petlens/core/internal/middleware"
	"github.com/petlens/core/internal/models"
	"github.com/petlens/core/internal/pkg/response"
	"github.com/petlens/core/internal/pkg/token"
	"go.uber.org/zap"
)

// refreshCookiePath restricts the refresh cookie to the one endpoint that
// consumes it.
const refreshCookiePath = "/api/v1/auth/refresh"

type Handler struct {
	svc *Service
	cfg *config.Config
	log *zap.Logger
}

func NewHandler(svc *Service, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{svc: svc, cfg: cfg, log: log}
}

// RegisterRoutes mounts the auth endpoints. The gateway forwards cookies for
// this prefix, so protected routes verify the access cookie locally.
func (h *Handler) RegisterRoutes(r *gin.Engine, verifier *token.Verifier) {
	auth := r.Group("/api/v1/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)

	protected := auth.Group("")
	protected.Use(middleware.Auth(verifier))
	protected.GET("/verify", h.Verify)
	protected.PUT("/change-password", h.ChangePassword)
	protected.DELETE("/delete", h.DeleteAccount)
}

func (h *Handler) Register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, "email and password are required")
		return
	}
	if !ValidateEmail(dto.Email) {
		response.ValidationError(c, "invalid email address")
		return
	}
	if !ValidatePassword(dto.Password) {
		response.ValidationError(c, "password must be at least 8 characters with a letter and a digit")
		return
	}

	user, pair, err := h.svc.Register(c.Request.Context(), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.setAuthCookies(c, pair)
	response.Created(c, gin.H{"user": toView(user)})
}

func (h *Handler) Login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, "email and password are required")
		return
	}

	user, pair, err := h.svc.Login(c.Request.Context(), dto.Email, dto.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.setAuthCookies(c, pair)
	response.OK(c, gin.H{"user": toView(user)})
}

func (h *Handler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(middleware.CookieRefreshToken)
	if err != nil || raw == "" {
		response.Unauthorized(c, response.CodeMissingToken, "refresh token required")
		return
	}

	user, pair, err := h.svc.Refresh(c.Request.Context(), raw)
	if err != nil {
		h.clearAuthCookies(c)
		h.fail(c, err)
		return
	}
	h.setAuthCookies(c, pair)
	response.OK(c, gin.H{"user": toView(user)})
}

// Logout always succeeds: the refresh record is revoked when the cookie is
// present, and both cookies are cleared either way.
func (h *Handler) Logout(c *gin.Context) {
	if raw, err := c.Cookie(middleware.CookieRefreshToken); err == nil {
		h.svc.Logout(c.Request.Context(), raw)
	}
	h.clearAuthCookies(c)
	response.OK(c, gin.H{"message": "logged out"})
}

func (h *Handler) Verify(c *gin.Context) {
	user, err := h.svc.Verify(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"user": toView(user), "valid": true})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.ValidationError(c, "current_password and new_password are required")
		return
	}
	if !ValidatePassword(dto.NewPassword) {
		response.ValidationError(c, "password must be at least 8 characters with a letter and a digit")
		return
	}

	user, pair, err := h.svc.ChangePassword(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.setAuthCookies(c, pair)
	response.OK(c, gin.H{"user": toView(user)})
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	summary, err := h.svc.DeleteSelf(c.Request.Context(),
		middleware.CurrentUserID(c), middleware.CurrentUserRole(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.clearAuthCookies(c)
	response.OK(c, gin.H{"deleted": summary})
}

func (h *Handler) setAuthCookies(c *gin.Context, pair TokenPair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.CookieAccessToken, pair.Access,
		int(h.cfg.Auth.AccessTTL.Duration().Seconds()), "/",
		h.cfg.Identity.CookieDomain, h.cfg.Identity.CookieSecure, true)
	c.SetCookie(middleware.CookieRefreshToken, pair.Refresh,
		int(h.cfg.Auth.RefreshTTL.Duration().Seconds()), refreshCookiePath,
		h.cfg.Identity.CookieDomain, h.cfg.Identity.CookieSecure, true)
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.CookieAccessToken, "", -1, "/",
		h.cfg.Identity.CookieDomain, h.cfg.Identity.CookieSecure, true)
	c.SetCookie(middleware.CookieRefreshToken, "", -1, refreshCookiePath,
		h.cfg.Identity.CookieDomain, h.cfg.Identity.CookieSecure, true)
}

// fail maps service errors onto the closed error code set.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmailExists):
		response.Fail(c, http.StatusConflict, response.CodeEmailExists, "email already registered")
	case errors.Is(err, ErrInvalidCredentials):
		response.Unauthorized(c, response.CodeInvalidCredentials, "invalid email or password")
	case errors.Is(err, ErrAccountDisabled):
		response.Fail(c, http.StatusForbidden, response.CodeAccountDisabled, "account is disabled")
	case errors.Is(err, ErrTokenRevoked):
		response.Unauthorized(c, response.CodeTokenRevoked, "refresh token revoked")
	case errors.Is(err, ErrTokenUnknown):
		response.Unauthorized(c, response.CodeInvalidToken, "refresh token not recognized")
	case errors.Is(err, token.ErrExpired):
		response.Unauthorized(c, response.CodeTokenExpired, "refresh token expired")
	case errors.Is(err, token.ErrInvalid), errors.Is(err, token.ErrWrongType):
		response.Unauthorized(c, response.CodeInvalidToken, "invalid refresh token")
	case errors.Is(err, ErrUserNotFound):
		response.Unauthorized(c, response.CodeUnauthorized, "account no longer exists")
	case errors.Is(err, ErrDeletionFailed):
		response.Fail(c, http.StatusInternalServerError, response.CodeDeletionFailed,
			"account deletion failed, no changes were made")
	default:
		h.log.Error("identity handler failure", zap.Error(err))
		response.InternalError(c)
	}
}

func toView(u *models.IdentityModel) UserView {
	return UserView{
		ID:         u.ID,
		Email:      u.Email,
		Role:       u.Role,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}
