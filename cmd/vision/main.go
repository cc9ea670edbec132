package main

import (
	"flag"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/app"
	"github.com/petlens/core/internal/config"
	"github.com/petlens/core/internal/database"
	"github.com/petlens/core/internal/middleware"
	"github.com/petlens/core/internal/models"
	"github.com/petlens/core/internal/modules/vision"
	"github.com/petlens/core/internal/modules/vision/rag"
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

	db, err := database.Connect(cfg, &models.ChunkModel{})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	ragSvc := rag.NewService(rag.NewIndex(db), rag.NewEmbedder(&cfg.Vision.Embedding),
		&cfg.Vision.RAG, log)

	vlm, err := vision.NewGenerator(&cfg.Vision.VLM)
	if err != nil {
		log.Fatal("failed to build vlm client", zap.Error(err))
	}

	classifier := vision.NewClassifierClient(cfg.Vision.ClassifierURL,
		cfg.Vision.ClassifierTimeout.Duration())
	orch := vision.NewOrchestrator(classifier, classifier, classifier,
		ragSvc, vlm, &cfg.Vision, log)
	recorder := vision.NewAnalysisRecorder(cfg.Vision.UserDataURL,
		&http.Client{Timeout: cfg.Vision.ClassifierTimeout.Duration()})

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))
	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "healthy", "service": "vision"})
	})
	vision.NewHandler(orch, recorder, log).RegisterRoutes(r)
	rag.NewHandler(ragSvc, log).RegisterRoutes(r)

	app.Serve(log, "vision", cfg.Vision.Port, r)
}
