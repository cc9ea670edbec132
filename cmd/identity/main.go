package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/app"
	"github.com/petlens/core/internal/config"
	"github.com/petlens/core/internal/database"
	"github.com/petlens/core/internal/middleware"
	"github.com/petlens/core/internal/models"
	"github.com/petlens/core/internal/modules/identity"
	"github.com/petlens/core/internal/pkg/response"
	"github.com/petlens/core/internal/pkg/token"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	log, err := app.NewLogger(cfg.IsDev())
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.Connect(cfg, &models.IdentityModel{}, &models.RefreshTokenModel{})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	signer, err := token.NewSigner(cfg.Auth.PrivateKeyPath)
	if err != nil {
		log.Fatal("failed to load private key", zap.Error(err))
	}
	verifier, err := token.NewVerifier(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatal("failed to load public key", zap.Error(err))
	}

	userData := identity.NewUserDataClient(cfg.Identity.UserDataURL,
		&http.Client{Timeout: 30 * time.Second})
	svc := identity.NewService(
		identity.NewUserStore(db), identity.NewRefreshStore(db),
		signer, verifier, userData,
		cfg.Auth.AccessTTL.Duration(), cfg.Auth.RefreshTTL.Duration(), log)

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))
	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "healthy", "service": "identity"})
	})
	identity.NewHandler(svc, cfg, log).RegisterRoutes(r, verifier)

	app.Serve(log, "identity", cfg.Identity.Port, r)
}
