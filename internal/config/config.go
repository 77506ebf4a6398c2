package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Extraction backends for the PDF text extractor
const (
	PDFMethodGoPDF   = "go-pdf"
	PDFMethodPoppler = "poppler"
)

// AI providers
const (
	ProviderGemini     = "gemini"
	ProviderGeminiREST = "gemini-rest"
	ProviderOpenAI     = "openai"
)

// Remote database backends
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	CORSOrigins    []string
	MaxFileSize    int64
	FileStorageDir string

	// AI provider
	AIProvider          string
	GeminiAPIKey        string
	GeminiModel         string
	GeminiAPIURL        string
	OpenAIAPIKey        string
	OpenAIModel         string
	AIMaxAttempts       int
	AIRetryBase         time.Duration
	AIRequestsPerMinute int
	AIStrictSchema      bool

	// Pipeline tuning
	ChunkPages          int
	BatchSize           int
	BatchPause          time.Duration
	MinTextLength       int
	DedupeByTitle       bool
	PDFExtractionMethod string
	PDFLoadTimeout      time.Duration
	PDFPageTimeout      time.Duration
	PDFPageWorkers      int

	// Storage
	RemoteBackend  string
	MongoURI       string
	DBName         string
	PostgresDSN    string
	LocalStorePath string
	LocalStoreKey  string
	SyncInterval   time.Duration

	// Redis Configuration
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	ChunkCacheTTL   time.Duration
	RateLimitReqs   int
	RateLimitWindow int

	// Telemetry
	OTLPEndpoint string
	ServiceName  string
}

// LoadConfig reads the environment once. A missing AI credential is not an
// error here; it surfaces when an extraction is attempted.
func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", ""),
		CORSOrigins:    strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),

		AIProvider:          strings.ToLower(getEnv("AI_PROVIDER", ProviderGemini)),
		GeminiAPIKey:        firstEnv("GEMINI_API_KEY", "VITE_GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiAPIURL:        getEnv("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AIMaxAttempts:       getEnvInt("AI_MAX_ATTEMPTS", 3),
		AIRetryBase:         getEnvDuration("AI_RETRY_BASE", 1500*time.Millisecond),
		AIRequestsPerMinute: getEnvInt("AI_REQUESTS_PER_MINUTE", 0),
		AIStrictSchema:      getEnvBool("AI_STRICT_SCHEMA", false),

		ChunkPages:          getEnvInt("CHUNK_PAGES", 2),
		BatchSize:           getEnvInt("BATCH_SIZE", 5),
		BatchPause:          getEnvDuration("BATCH_PAUSE", 100*time.Millisecond),
		MinTextLength:       getEnvInt("MIN_TEXT_LENGTH", 50),
		DedupeByTitle:       getEnvBool("DEDUPE_BY_TITLE", false),
		PDFExtractionMethod: strings.ToLower(getEnv("PDF_EXTRACTION_METHOD", PDFMethodGoPDF)),
		PDFLoadTimeout:      getEnvDuration("PDF_LOAD_TIMEOUT", 15*time.Second),
		PDFPageTimeout:      getEnvDuration("PDF_PAGE_TIMEOUT", 5*time.Second),
		PDFPageWorkers:      getEnvInt("PDF_PAGE_WORKERS", 4),

		RemoteBackend:  strings.ToLower(getEnv("REMOTE_BACKEND", "")),
		MongoURI:       getEnv("MONGO_URI", ""),
		DBName:         getEnv("DB_NAME", "chefshelf"),
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		LocalStorePath: getEnv("LOCAL_STORE_PATH", "./storage/chefshelf.db"),
		LocalStoreKey:  getEnv("LOCAL_STORE_KEY", "chefshelf_recipes"),
		SyncInterval:   getEnvDuration("SYNC_INTERVAL", 0),

		RedisURL:        getEnv("REDIS_URL", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		ChunkCacheTTL:   getEnvDuration("CHUNK_CACHE_TTL", 24*time.Hour),
		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "chefshelf"),
	}

	if cfg.RemoteBackend == "" {
		cfg.RemoteBackend = detectRemoteBackend(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AIConfigured reports whether the selected provider has a credential.
func (c *Config) AIConfigured() bool {
	return c.AIAPIKey() != ""
}

// AIAPIKey returns the credential for the selected provider.
func (c *Config) AIAPIKey() string {
	if c.AIProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// AIModel returns the model name for the selected provider.
func (c *Config) AIModel() string {
	if c.AIProvider == ProviderOpenAI {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

func (c *Config) validate() error {
	switch c.AIProvider {
	case ProviderGemini, ProviderGeminiREST, ProviderOpenAI:
	default:
		return fmt.Errorf("AI_PROVIDER must be one of gemini, gemini-rest, openai (got %q)", c.AIProvider)
	}

	switch c.PDFExtractionMethod {
	case PDFMethodGoPDF, PDFMethodPoppler:
	default:
		return fmt.Errorf("PDF_EXTRACTION_METHOD must be go-pdf or poppler (got %q)", c.PDFExtractionMethod)
	}

	if c.ChunkPages < 1 || c.ChunkPages > 80 {
		return fmt.Errorf("CHUNK_PAGES must be between 1 and 80 (got %d)", c.ChunkPages)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be positive (got %d)", c.BatchSize)
	}
	if c.AIMaxAttempts < 1 {
		c.AIMaxAttempts = 1
	}
	if c.PDFPageWorkers < 1 {
		c.PDFPageWorkers = 1
	}
	return nil
}

// detectRemoteBackend picks a backend from whichever connection string is set.
// An empty result means local-only mode.
func detectRemoteBackend(cfg *Config) string {
	switch {
	case cfg.MongoURI != "":
		return BackendMongo
	case cfg.PostgresDSN != "":
		return BackendPostgres
	default:
		return ""
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("1.5s") or bare milliseconds ("1500").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
