package main

import (
	"flag"

	"github.com/petlens/core/internal/app"
	"github.com/petlens/core/internal/config"
	"github.com/petlens/core/internal/gateway"
	"github.com/petlens/core/internal/pkg/redis"
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

	verifier, err := token.NewVerifier(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatal("failed to load public key", zap.Error(err))
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	engine, err := gateway.New(cfg, verifier, rdb.Raw(), log)
	if err != nil {
		log.Fatal("failed to build gateway", zap.Error(err))
	}

	app.Serve(log, "gateway", cfg.Gateway.Port, engine)
}
