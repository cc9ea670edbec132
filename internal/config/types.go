package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds startup configuration shared by all service binaries.
// Each binary reads the same file and picks its own section.
type Config struct {
	Env            string   `yaml:"env"` // "development" | "production"
	DSN            string   `yaml:"dsn"` // MySQL DSN
	RedisURL       string   `yaml:"redis_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Identity  IdentityConfig  `yaml:"identity"`
	UserData  UserDataConfig  `yaml:"user_data"`
	Vision    VisionConfig    `yaml:"vision"`
	Recommend RecommendConfig `yaml:"recommend"`
}

// AuthConfig carries the asymmetric key material and token lifetimes.
// Only the identity service reads the private half.
type AuthConfig struct {
	PrivateKeyPath string   `yaml:"private_key_path"`
	PublicKeyPath  string   `yaml:"public_key_path"`
	AccessTTL      Duration `yaml:"access_ttl"`
	RefreshTTL     Duration `yaml:"refresh_ttl"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type GatewayConfig struct {
	Port           int      `yaml:"port"`
	IdentityURL    string   `yaml:"identity_url"`
	UserDataURL    string   `yaml:"user_data_url"`
	VisionURL      string   `yaml:"vision_url"`
	RecommendURL   string   `yaml:"recommend_url"`
	ForwardTimeout Duration `yaml:"forward_timeout"`
}

type IdentityConfig struct {
	Port         int    `yaml:"port"`
	CookieSecure bool   `yaml:"cookie_secure"`
	CookieDomain string `yaml:"cookie_domain"` // empty = host-only cookies
	UserDataURL  string `yaml:"user_data_url"`
}

type UserDataConfig struct {
	Port int `yaml:"port"`
}

type VisionConfig struct {
	Port                 int             `yaml:"port"`
	ClassifierURL        string          `yaml:"classifier_url"`
	ClassifierTimeout    Duration        `yaml:"classifier_timeout"`
	SafetyThreshold      float64         `yaml:"safety_threshold"`
	SpeciesMinConfidence float64         `yaml:"species_min_confidence"`
	BreedMinConfidence   float64         `yaml:"breed_min_confidence"`
	CrossbreedSecond     float64         `yaml:"crossbreed_second"`
	PurebredFloor        float64         `yaml:"purebred_floor"`
	PurebredGap          float64         `yaml:"purebred_gap"`
	SecondFloor          float64         `yaml:"second_floor"`
	UserDataURL          string          `yaml:"user_data_url"`
	VLM                  VLMConfig       `yaml:"vlm"`
	Embedding            EmbeddingConfig `yaml:"embedding"`
	RAG                  RAGConfig       `yaml:"rag"`
}

// VLMConfig selects the vision-language model provider.
// Type is "openai", "openai-compatible" or "anthropic".
type VLMConfig struct {
	Type     string   `yaml:"type"`
	Endpoint string   `yaml:"endpoint"`
	APIKey   string   `yaml:"api_key"`
	Model    string   `yaml:"model"`
	Timeout  Duration `yaml:"timeout"`
}

type EmbeddingConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

type RAGConfig struct {
	ChunkSize      int    `yaml:"chunk_size"`
	ChunkOverlap   int    `yaml:"chunk_overlap"`
	TopK           int    `yaml:"top_k"`
	MaxFieldLength int    `yaml:"max_field_length"`
	DocsDir        string `yaml:"docs_dir"` // seed corpus for /admin/rag/initialize
}

type RecommendConfig struct {
	Port                int     `yaml:"port"`
	UserDataURL         string  `yaml:"user_data_url"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	DefaultLimit        int     `yaml:"default_limit"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "15m".
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		// Allow plain integers (seconds) too.
		var secs int64
		if err2 := node.Decode(&secs); err2 != nil {
			return err
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
