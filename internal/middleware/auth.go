package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/petlens/core/internal/pkg/response"
	"github.com/petlens/core/internal/pkg/token"
)

// Cookie and header names shared across services.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"

	HeaderUserID        = "X-User-ID"
	HeaderUserRole      = "X-User-Role"
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"

	ContextKeyUserID        = "user_id"
	ContextKeyUserRole      = "user_role"
	ContextKeyUserEmail     = "user_email"
	ContextKeyRequestID     = "request_id"
	ContextKeyCorrelationID = "correlation_id"
)

// RequestID assigns a fresh correlation identifier to every request and
// echoes an inbound X-Correlation-ID when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		correlation := c.GetHeader(HeaderCorrelationID)
		if correlation == "" {
			correlation = id
		}
		c.Set(ContextKeyRequestID, id)
		c.Set(ContextKeyCorrelationID, correlation)
		c.Header(HeaderRequestID, id)
		c.Header(HeaderCorrelationID, correlation)
		c.Next()
	}
}

// Auth enforces cookie authentication against the signing authority's public
// key. It never invents auth state: any failure stops the request here.
func Auth(verifier *token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(CookieAccessToken)
		if err != nil || raw == "" {
			response.Unauthorized(c, response.CodeUnauthorized, "authentication required")
			return
		}
		claims, err := verifier.VerifyAccess(raw)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				response.Unauthorized(c, response.CodeTokenExpired, "access token expired")
				return
			}
			response.Unauthorized(c, response.CodeUnauthorized, "invalid access token")
			return
		}
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUserRole, claims.Role)
		c.Set(ContextKeyUserEmail, claims.Email)
		c.Next()
	}
}

// ForwardedIdentity reads the identity headers the gateway injects. Backend
// services trust these headers; only the gateway is reachable from outside.
func ForwardedIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(HeaderUserID); id != "" {
			c.Set(ContextKeyUserID, id)
		}
		if role := c.GetHeader(HeaderUserRole); role != "" {
			c.Set(ContextKeyUserRole, role)
		}
		if rid := c.GetHeader(HeaderRequestID); rid != "" {
			c.Set(ContextKeyRequestID, rid)
		}
		c.Next()
	}
}

// RequireIdentity rejects requests that arrived without a forwarded user id.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserID(c) == "" {
			response.Unauthorized(c, response.CodeUnauthorized, "authentication required")
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects requests whose forwarded role is not admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserRole(c) != "admin" {
			response.Forbidden(c, "admin access required")
			return
		}
		c.Next()
	}
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// CurrentUserRole extracts the authenticated role from context.
func CurrentUserRole(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserRole)
	role, _ := v.(string)
	return role
}

// CurrentUserEmail extracts the authenticated email from context.
func CurrentUserEmail(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserEmail)
	email, _ := v.(string)
	return email
}

// CurrentRequestID extracts the request id from context.
func CurrentRequestID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyRequestID)
	id, _ := v.(string)
	return id
}

// CurrentCorrelationID extracts the correlation id from context.
func CurrentCorrelationID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyCorrelationID)
	id, _ := v.(string)
	return id
}
