package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// devJWTSecret signs tokens when JWT_SECRET is unset in development.
const devJWTSecret = "medirespond-development-secret-do-not-use"

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	EventsChannel  string        `mapstructure:"EVENTS_CHANNEL"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTIssuer string        `mapstructure:"JWT_ISSUER"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	GeminiAPIKey      string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel       string        `mapstructure:"GEMINI_MODEL"`
	GeminiBaseURL     string        `mapstructure:"GEMINI_BASE_URL"`
	AssessmentTimeout time.Duration `mapstructure:"ASSESSMENT_TIMEOUT"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	PineconeAPIKey    string `mapstructure:"PINECONE_API_KEY"`
	PineconeIndexHost string `mapstructure:"PINECONE_INDEX_HOST"`
	PineconeNamespace string `mapstructure:"PINECONE_NAMESPACE"`
	HFAPIKey          string `mapstructure:"HF_API_KEY"`
	EmbeddingModel    string `mapstructure:"EMBEDDING_MODEL"`

	// Image classifiers run as separate inference services, one per modality.
	XRayInferenceURL string        `mapstructure:"XRAY_INFERENCE_URL"`
	CTInferenceURL   string        `mapstructure:"CT_INFERENCE_URL"`
	InferenceTimeout time.Duration `mapstructure:"INFERENCE_TIMEOUT"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "EVENTS_CHANNEL", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"JWT_SECRET", "JWT_ISSUER", "JWT_TTL",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "ASSESSMENT_TIMEOUT",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
	"PINECONE_API_KEY", "PINECONE_INDEX_HOST", "PINECONE_NAMESPACE", "HF_API_KEY", "EMBEDDING_MODEL",
	"XRAY_INFERENCE_URL", "CT_INFERENCE_URL", "INFERENCE_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("EVENTS_CHANNEL", "medirespond:events")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("JWT_ISSUER", "medirespond")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-pro")
	v.SetDefault("ASSESSMENT_TIMEOUT", "30s")
	v.SetDefault("MINIO_BUCKET", "medical-reports")
	v.SetDefault("PINECONE_NAMESPACE", "testspace")
	v.SetDefault("EMBEDDING_MODEL", "mixedbread-ai/mxbai-embed-large-v1")
	v.SetDefault("INFERENCE_TIMEOUT", "60s")

	for _, key := range envKeys {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// The decoder splits on commas but keeps surrounding whitespace.
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.IsDev() {
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AssessmentEnabled reports whether the AI assessment collaborator is configured.
func (c *Config) AssessmentEnabled() bool {
	return c.GeminiAPIKey != ""
}

// RetrievalEnabled reports whether both the embedding and vector index
// services are configured.
func (c *Config) RetrievalEnabled() bool {
	return c.PineconeAPIKey != "" && c.PineconeIndexHost != ""
}

// ImagingEnabled reports whether at least one image classifier is configured.
func (c *Config) ImagingEnabled() bool {
	return c.XRayInferenceURL != "" || c.CTInferenceURL != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	if c.IsProduction() {
		if c.JWTSecret == devJWTSecret {
			return fmt.Errorf("JWT_SECRET must not use the development default in production")
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production, got %d", len(c.JWTSecret))
		}
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.AssessmentTimeout <= 0 {
		return fmt.Errorf("ASSESSMENT_TIMEOUT must be positive")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.MinioEndpoint != "" && (c.MinioAccessKey == "" || c.MinioSecretKey == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}
	if (c.PineconeAPIKey == "") != (c.PineconeIndexHost == "") {
		return fmt.Errorf("PINECONE_API_KEY and PINECONE_INDEX_HOST must be set together")
	}
	if c.ImagingEnabled() && c.InferenceTimeout <= 0 {
		return fmt.Errorf("INFERENCE_TIMEOUT must be positive")
	}
	return nil
}

// Warnings lists settings that are allowed but degrade the service.
func (c *Config) Warnings() []string {
	var w []string
	if c.JWTSecret == devJWTSecret {
		w = append(w, "JWT_SECRET unset; using the development signing key")
	}
	if !c.AssessmentEnabled() {
		w = append(w, "GEMINI_API_KEY unset; AI assessment, report summaries and chat are disabled")
	}
	if c.MinioEndpoint == "" {
		w = append(w, "MINIO_ENDPOINT unset; report files are kept in memory")
	}
	if c.RedisURL == "" {
		w = append(w, "REDIS_URL unset; events reach only this instance's websocket clients")
	}
	if !c.RetrievalEnabled() {
		w = append(w, "PINECONE_* unset; chat answers without reference passages")
	}
	if !c.ImagingEnabled() {
		w = append(w, "XRAY_INFERENCE_URL and CT_INFERENCE_URL unset; imaging analysis is disabled")
	}
	return w
}
