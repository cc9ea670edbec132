package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultEnv              = "development"
	defaultRedisURL         = "redis://localhost:6379/0"
	defaultGatewayPort      = 8000
	defaultIdentityPort     = 8001
	defaultUserDataPort     = 8002
	defaultVisionPort       = 8003
	defaultRecommendPort    = 8004
	defaultRateLimit        = 60
	defaultForwardTimeout   = 30 * time.Second
	defaultClassifierWait   = 20 * time.Second
	defaultVLMWait          = 60 * time.Second
	defaultAccessTokenTTL   = 15 * time.Minute
	defaultRefreshTokenTTL  = 7 * 24 * time.Hour
	defaultSafetyThreshold  = 0.70
	defaultSpeciesMin       = 0.50
	defaultBreedMin         = 0.30
	defaultCrossSecond      = 0.35
	defaultPurebredFloor    = 0.75
	defaultPurebredGap      = 0.30
	defaultSecondFloor      = 0.15
	defaultSimilarityFloor  = 0.30
	defaultRecommendLimit   = 10
	defaultChunkSize        = 512
	defaultChunkOverlap     = 50
	defaultRetrievalTopK    = 3
	defaultEmbeddingModel   = "text-embedding-3-small"
	defaultEnrichmentMaxLen = 600
	defaultDocsDir          = "data/breed_docs"
)

// Load reads the YAML config file, applies PETLENS_* environment overrides
// and fills in defaults. The returned Config is immutable after startup.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	normalize(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PETLENS_ENV")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("PETLENS_DSN")); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("PETLENS_REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PETLENS_PRIVATE_KEY")); v != "" {
		cfg.Auth.PrivateKeyPath = v
	}
	if v := strings.TrimSpace(os.Getenv("PETLENS_PUBLIC_KEY")); v != "" {
		cfg.Auth.PublicKeyPath = v
	}
	if v := strings.TrimSpace(os.Getenv("PETLENS_VLM_API_KEY")); v != "" {
		cfg.Vision.VLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PETLENS_EMBEDDING_API_KEY")); v != "" {
		cfg.Vision.Embedding.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PETLENS_RATE_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit.RequestsPerMinute = n
		}
	}
}

func normalize(cfg *Config) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = defaultEnv
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		cfg.RedisURL = defaultRedisURL
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit.RequestsPerMinute = defaultRateLimit
	}

	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = defaultGatewayPort
	}
	if cfg.Gateway.ForwardTimeout.Duration() <= 0 {
		cfg.Gateway.ForwardTimeout = Duration(defaultForwardTimeout)
	}
	defaultURL(&cfg.Gateway.IdentityURL, defaultIdentityPort)
	defaultURL(&cfg.Gateway.UserDataURL, defaultUserDataPort)
	defaultURL(&cfg.Gateway.VisionURL, defaultVisionPort)
	defaultURL(&cfg.Gateway.RecommendURL, defaultRecommendPort)

	if cfg.Identity.Port == 0 {
		cfg.Identity.Port = defaultIdentityPort
	}
	if cfg.Auth.AccessTTL.Duration() <= 0 {
		cfg.Auth.AccessTTL = Duration(defaultAccessTokenTTL)
	}
	if cfg.Auth.RefreshTTL.Duration() <= 0 {
		cfg.Auth.RefreshTTL = Duration(defaultRefreshTokenTTL)
	}

	if cfg.UserData.Port == 0 {
		cfg.UserData.Port = defaultUserDataPort
	}

	if cfg.Vision.Port == 0 {
		cfg.Vision.Port = defaultVisionPort
	}
	if cfg.Vision.ClassifierTimeout.Duration() <= 0 {
		cfg.Vision.ClassifierTimeout = Duration(defaultClassifierWait)
	}
	if cfg.Vision.VLM.Timeout.Duration() <= 0 {
		cfg.Vision.VLM.Timeout = Duration(defaultVLMWait)
	}
	if cfg.Vision.SafetyThreshold <= 0 {
		cfg.Vision.SafetyThreshold = defaultSafetyThreshold
	}
	if cfg.Vision.SpeciesMinConfidence <= 0 {
		cfg.Vision.SpeciesMinConfidence = defaultSpeciesMin
	}
	if cfg.Vision.BreedMinConfidence <= 0 {
		cfg.Vision.BreedMinConfidence = defaultBreedMin
	}
	if cfg.Vision.CrossbreedSecond <= 0 {
		cfg.Vision.CrossbreedSecond = defaultCrossSecond
	}
	if cfg.Vision.PurebredFloor <= 0 {
		cfg.Vision.PurebredFloor = defaultPurebredFloor
	}
	if cfg.Vision.PurebredGap <= 0 {
		cfg.Vision.PurebredGap = defaultPurebredGap
	}
	if cfg.Vision.SecondFloor <= 0 {
		cfg.Vision.SecondFloor = defaultSecondFloor
	}
	if cfg.Vision.RAG.ChunkSize <= 0 {
		cfg.Vision.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.Vision.RAG.ChunkOverlap < 0 {
		cfg.Vision.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.Vision.RAG.TopK <= 0 {
		cfg.Vision.RAG.TopK = defaultRetrievalTopK
	}
	if cfg.Vision.RAG.MaxFieldLength <= 0 {
		cfg.Vision.RAG.MaxFieldLength = defaultEnrichmentMaxLen
	}
	if strings.TrimSpace(cfg.Vision.Embedding.Model) == "" {
		cfg.Vision.Embedding.Model = defaultEmbeddingModel
	}
	if strings.TrimSpace(cfg.Vision.RAG.DocsDir) == "" {
		cfg.Vision.RAG.DocsDir = defaultDocsDir
	}
	defaultURL(&cfg.Vision.UserDataURL, defaultUserDataPort)
	defaultURL(&cfg.Identity.UserDataURL, defaultUserDataPort)

	if cfg.Recommend.Port == 0 {
		cfg.Recommend.Port = defaultRecommendPort
	}
	if cfg.Recommend.SimilarityThreshold <= 0 {
		cfg.Recommend.SimilarityThreshold = defaultSimilarityFloor
	}
	if cfg.Recommend.DefaultLimit <= 0 {
		cfg.Recommend.DefaultLimit = defaultRecommendLimit
	}
	defaultURL(&cfg.Recommend.UserDataURL, defaultUserDataPort)

	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
}

func defaultURL(target *string, port int) {
	if strings.TrimSpace(*target) == "" {
		*target = fmt.Sprintf("http://localhost:%d", port)
	}
	*target = strings.TrimSuffix(strings.TrimSpace(*target), "/")
}

// IsDev reports whether the app runs in development mode.
func (c *Config) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}
