// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, the LLM and knowledge-base upstreams, material search,
// rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "livescript")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LLMConfig configures the OpenAI-compatible generative text upstream.
type LLMConfig struct {
	APIKey                string        // LLM_API_KEY
	BaseURL               string        // LLM_BASE_URL (empty = api.openai.com)
	Model                 string        // LLM_MODEL
	Temperature           float64       // LLM_TEMPERATURE, script generation
	ComplianceTemperature float64       // LLM_COMPLIANCE_TEMPERATURE, kept low for stable audits
	Timeout               time.Duration // LLM_TIMEOUT, per upstream call
}

// KnowledgeConfig configures reference retrieval for generation.
type KnowledgeConfig struct {
	SearchURL     string        // KB_SEARCH_URL; empty selects the local index
	APIKey        string        // KB_API_KEY
	TopK          int           // KB_TOP_K
	MinScore      float64       // KB_MIN_SCORE, remote similarity floor
	LocalMinScore float64       // KB_LOCAL_MIN_SCORE, Jaccard floor for the local index
	Timeout       time.Duration // KB_TIMEOUT
	CacheTTL      time.Duration // KB_CACHE_TTL (needs REDIS_URL)
}

// MaterialsConfig selects the video search backend and the ASR upstream.
type MaterialsConfig struct {
	Provider   string        // MATERIAL_SEARCH_PROVIDER: mock|feed
	Feeds      []string      // MATERIAL_FEEDS (CSV of RSS/Atom URLs)
	ASRURL     string        // ASR_URL; empty disables transcription
	ASRTimeout time.Duration // ASR_TIMEOUT
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must outlive LLM.Timeout for SSE
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath   string // SQLite path
	SeedFile string // optional YAML seed; empty uses the embedded default
	RedisURL string // REDIS_URL; empty disables cache and events

	// Upstreams
	LLM       LLMConfig
	Knowledge KnowledgeConfig
	Materials MaterialsConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 6*time.Minute),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath:   getenv("DB_PATH", "livescript.db"),
		SeedFile: getenv("SEED_FILE", ""),
		RedisURL: getenv("REDIS_URL", ""),

		LLM: LLMConfig{
			APIKey:                getenv("LLM_API_KEY", ""),
			BaseURL:               getenv("LLM_BASE_URL", ""),
			Model:                 getenv("LLM_MODEL", "gpt-4o-mini"),
			Temperature:           getfloat("LLM_TEMPERATURE", 0.7),
			ComplianceTemperature: getfloat("LLM_COMPLIANCE_TEMPERATURE", 0.1),
			Timeout:               getdur("LLM_TIMEOUT", 5*time.Minute),
		},
		Knowledge: KnowledgeConfig{
			SearchURL:     strings.TrimRight(getenv("KB_SEARCH_URL", ""), "/"),
			APIKey:        getenv("KB_API_KEY", ""),
			TopK:          getint("KB_TOP_K", 5),
			MinScore:      getfloat("KB_MIN_SCORE", 0.5),
			LocalMinScore: getfloat("KB_LOCAL_MIN_SCORE", 0.05),
			Timeout:       getdur("KB_TIMEOUT", 10*time.Second),
			CacheTTL:      getdur("KB_CACHE_TTL", 10*time.Minute),
		},
		Materials: MaterialsConfig{
			Provider:   strings.ToLower(getenv("MATERIAL_SEARCH_PROVIDER", "mock")),
			Feeds:      splitCSV(getenv("MATERIAL_FEEDS", "")),
			ASRURL:     getenv("ASR_URL", ""),
			ASRTimeout: getdur("ASR_TIMEOUT", 2*time.Minute),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "livescript"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Materials.Provider == "" {
		cfg.Materials.Provider = "mock"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.LLM.Model) == "" {
		return cfg, errors.New("LLM_MODEL must not be empty")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 ||
		cfg.LLM.ComplianceTemperature < 0 || cfg.LLM.ComplianceTemperature > 2 {
		return cfg, errors.New("LLM temperatures must be in [0,2]")
	}
	if cfg.LLM.Timeout <= 0 {
		return cfg, errors.New("LLM_TIMEOUT must be > 0")
	}
	if cfg.WriteTimeout <= cfg.LLM.Timeout {
		return cfg, errors.New("WRITE_TIMEOUT must exceed LLM_TIMEOUT")
	}
	if cfg.Knowledge.TopK < 1 {
		return cfg, errors.New("KB_TOP_K must be >= 1")
	}
	if cfg.Knowledge.MinScore < 0 || cfg.Knowledge.MinScore > 1 ||
		cfg.Knowledge.LocalMinScore < 0 || cfg.Knowledge.LocalMinScore > 1 {
		return cfg, errors.New("KB_MIN_SCORE and KB_LOCAL_MIN_SCORE must be in [0,1]")
	}
	if cfg.Knowledge.Timeout <= 0 || cfg.Knowledge.CacheTTL <= 0 {
		return cfg, errors.New("KB_TIMEOUT and KB_CACHE_TTL must be > 0")
	}
	switch cfg.Materials.Provider {
	case "mock":
	case "feed":
		if len(cfg.Materials.Feeds) == 0 {
			return cfg, errors.New("MATERIAL_FEEDS must list at least one feed when MATERIAL_SEARCH_PROVIDER=feed")
		}
	default:
		return cfg, errors.New("MATERIAL_SEARCH_PROVIDER must be one of: mock, feed")
	}
	if cfg.Materials.ASRTimeout <= 0 {
		return cfg, errors.New("ASR_TIMEOUT must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
