// Package gateway implements the single ingress: CORS, request logging,
// distributed rate limiting, cookie authentication, prefix routing and
// response normalization, in that order.
package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/config"
	"github.com/petlens/core/internal/middleware"
	"github.com/petlens/core/internal/pkg/response"
	"github.com/petlens/core/internal/pkg/token"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// publicPaths bypass authentication at the gateway.
var publicPaths = map[string]bool{
	"/health":               true,
	"/api/v1/auth/login":    true,
	"/api/v1/auth/register": true,
	"/api/v1/auth/refresh":  true,
	"/docs":                 true,
	"/openapi.json":         true,
}

// New assembles the gateway engine.
func New(cfg *config.Config, verifier *token.Verifier, rdb *goredis.Client, log *zap.Logger) (*gin.Engine, error) {
	routes, err := buildRoutes(&cfg.Gateway)
	if err != nil {
		return nil, err
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	corsMW, err := corsMiddleware(cfg)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMW)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.RateLimit(rdb, log, cfg.RateLimit.RequestsPerMinute, verifier))

	proxy := NewProxy(routes, &http.Client{
		Timeout: cfg.Gateway.ForwardTimeout.Duration(),
	}, log)

	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "healthy", "service": "gateway"})
	})

	authMW := middleware.Auth(verifier)
	r.NoRoute(func(c *gin.Context) {
		if !publicPaths[c.Request.URL.Path] {
			authMW(c)
			if c.IsAborted() {
				return
			}
		}
		proxy.Forward(c)
	})

	return r, nil
}

func buildRoutes(cfg *config.GatewayConfig) ([]Route, error) {
	identity, err := url.Parse(cfg.IdentityURL)
	if err != nil {
		return nil, fmt.Errorf("identity url: %w", err)
	}
	userData, err := url.Parse(cfg.UserDataURL)
	if err != nil {
		return nil, fmt.Errorf("user data url: %w", err)
	}
	vision, err := url.Parse(cfg.VisionURL)
	if err != nil {
		return nil, fmt.Errorf("vision url: %w", err)
	}
	recommend, err := url.Parse(cfg.RecommendURL)
	if err != nil {
		return nil, fmt.Errorf("recommend url: %w", err)
	}
	if identity.Host == "" || userData.Host == "" || vision.Host == "" || recommend.Host == "" {
		return nil, errors.New("gateway backend urls must be absolute")
	}

	return []Route{
		{Prefix: "/api/v1/auth", Target: identity, KeepCookies: true},
		{Prefix: "/api/v1/users", Target: userData},
		{Prefix: "/api/v1/pets", Target: userData},
		{Prefix: "/api/v1/analyses", Target: userData},
		{Prefix: "/api/v1/vision", Target: vision},
		{Prefix: "/api/v1/rag", Target: vision},
		{Prefix: "/api/v1/admin/rag", Target: vision},
		{Prefix: "/api/v1/recommendations", Target: recommend},
		{Prefix: "/api/v1/admin/products", Target: recommend},
	}, nil
}

// corsMiddleware builds the credentialed CORS policy. Responses carry
// cookies, so arbitrary origins must never be reflected: outside development
// an explicit origin list is mandatory.
func corsMiddleware(cfg *config.Config) (gin.HandlerFunc, error) {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Correlation-ID"},
		ExposeHeaders:    []string{middleware.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	switch {
	case len(cfg.AllowedOrigins) > 0:
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	case cfg.IsDev():
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	default:
		return nil, errors.New("allowed_origins is required outside development")
	}
	return cors.New(corsConfig), nil
}
