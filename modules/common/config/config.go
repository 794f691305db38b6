package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CatalogSourceProvider = "provider"
	CatalogSourceGemini   = "gemini"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Server
	Port        string
	ServiceName string

	// Provider (외부 미디어 생성 API)
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	// Model Catalog
	CatalogSource string
	GeminiAPIKey  string
	DefaultModel  string

	// Generation
	MaxConcurrentGenerations int

	// Redis (비동기 작업 큐)
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Async Jobs
	AsyncJobsEnabled  bool
	WorkerConcurrency int
	JobTTL            time.Duration

	// Supabase (생성 히스토리)
	SupabaseURL          string
	SupabaseServiceKey   string
	SupabaseHistoryTable string
}

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg := &Config{
		// Server
		Port:        getEnv("PORT", "5000"),
		ServiceName: getEnv("SERVICE_NAME", "video-generation-api"),

		// Provider
		ProviderBaseURL: strings.TrimRight(getEnv("PROVIDER_BASE_URL", ""), "/"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", ""),
		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 300*time.Second),

		// Model Catalog
		CatalogSource: strings.ToLower(getEnv("CATALOG_SOURCE", CatalogSourceProvider)),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		DefaultModel:  getEnv("DEFAULT_MODEL", ""),

		// Generation
		MaxConcurrentGenerations: getInt("MAX_CONCURRENT_GENERATIONS", 4),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getBool("REDIS_USE_TLS", false),

		// Async Jobs
		AsyncJobsEnabled:  getBool("ASYNC_JOBS_ENABLED", false),
		WorkerConcurrency: getInt("WORKER_CONCURRENCY", 2),
		JobTTL:            getDuration("JOB_TTL", 24*time.Hour),

		// Supabase
		SupabaseURL:          getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:   getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseHistoryTable: getEnv("SUPABASE_HISTORY_TABLE", "video_generations"),
	}

	// 필수 환경변수 검증
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Provider: %s (timeout: %s)", cfg.ProviderBaseURL, cfg.ProviderTimeout)
	log.Printf("   Catalog: %s (default model: %q)", cfg.CatalogSource, cfg.DefaultModel)
	log.Printf("   Async jobs: %v (workers: %d)", cfg.AsyncJobsEnabled, cfg.WorkerConcurrency)
	if cfg.AsyncJobsEnabled {
		log.Printf("   Redis: %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)
	}
	log.Printf("   History: %v", cfg.HistoryEnabled())

	return cfg, nil
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	switch c.CatalogSource {
	case CatalogSourceProvider:
		if c.ProviderBaseURL == "" {
			return fmt.Errorf("PROVIDER_BASE_URL is required")
		}
	case CatalogSourceGemini:
		if c.ProviderBaseURL == "" {
			return fmt.Errorf("PROVIDER_BASE_URL is required")
		}
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when CATALOG_SOURCE=gemini")
		}
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE: %s", c.CatalogSource)
	}
	if c.MaxConcurrentGenerations <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_GENERATIONS must be positive")
	}
	if c.AsyncJobsEnabled {
		if c.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is required when ASYNC_JOBS_ENABLED=true")
		}
		if c.WorkerConcurrency <= 0 {
			return fmt.Errorf("WORKER_CONCURRENCY must be positive")
		}
	}
	if c.SupabaseURL != "" && c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required when SUPABASE_URL is set")
	}
	return nil
}

// HistoryEnabled - Supabase 설정이 있으면 히스토리 기록
func (c *Config) HistoryEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if str := os.Getenv(key); str != "" {
		if parsed, err := strconv.Atoi(str); err == nil {
			return parsed
		}
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, str, defaultValue)
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if str := os.Getenv(key); str != "" {
		if parsed, err := strconv.ParseBool(str); err == nil {
			return parsed
		}
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, str, defaultValue)
	}
	return defaultValue
}

// getDuration - "90s", "5m" 형식 또는 초 단위 정수 허용
func getDuration(key string, defaultValue time.Duration) time.Duration {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(str); err == nil {
		return parsed
	}
	if secs, err := strconv.Atoi(str); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("⚠️  Invalid %s=%q, using default %s", key, str, defaultValue)
	return defaultValue
}
