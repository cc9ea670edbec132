package main

import (
	"flag"

	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/app"
	"github.com/petlens/core/internal/config"
	"github.com/petlens/core/internal/database"
	"github.com/petlens/core/internal/middleware"
	"github.com/petlens/core/internal/models"
	"github.com/petlens/core/internal/modules/userdata"
	"github.com/petlens/core/internal/pkg/response"
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

	db, err := database.Connect(cfg,
		&models.ProfileModel{}, &models.PetModel{}, &models.PetAnalysisModel{})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	svc := userdata.NewService(
		userdata.NewProfileStore(db), userdata.NewPetStore(db),
		userdata.NewAnalysisStore(db), log)

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))
	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "healthy", "service": "userdata"})
	})
	userdata.NewHandler(svc, log).RegisterRoutes(r)

	app.Serve(log, "userdata", cfg.UserData.Port, r)
}
