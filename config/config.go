package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingCredential marks a fatal configuration problem. A run cannot
// start without its credentials.
var ErrMissingCredential = errors.New("missing credential")

// Config holds everything the pipeline reads from the environment.
type Config struct {
	OpenRouterKey string
	ApifyToken    string
	GeminiKey     string
	CohereKey     string

	ServiceAccountFile string
	UserEmail          string

	PrimaryModel        string
	SecondaryVideoModel string
	TextModel           string
	CohereModel         string
	OpenRouterBaseURL   string
	InferenceTimeout    time.Duration
	DownloadTimeout     time.Duration
	TranscodeTimeout    time.Duration
	MaxRetries          int
	ImageRewrite        bool
	FFmpegPath          string

	RedisAddr string
	RedisPass string
	CacheTTL  time.Duration

	S3Bucket       string
	S3Region       string
	S3Profile      string
	S3Prefix       string
	S3UsePathStyle bool

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	Port     string
	LogLevel string
}

// Load reads .env if present and returns the populated Config.
func Load() *Config {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		OpenRouterKey: getEnv("OPENROUTER_API_KEY", ""),
		ApifyToken:    getEnv("APIFY_TOKEN", ""),
		GeminiKey:     getEnv("GEMINI_API_KEY", ""),
		CohereKey:     getEnv("COHERE_API_KEY", ""),

		ServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", "service-account.json"),
		UserEmail:          getEnv("USER_EMAIL", ""),

		PrimaryModel:        getEnv("PRIMARY_MODEL", DefaultPrimaryModel),
		SecondaryVideoModel: getEnv("SECONDARY_VIDEO_MODEL", DefaultGeminiModel),
		TextModel:           getEnv("TEXT_MODEL", DefaultTextModel),
		CohereModel:         getEnv("COHERE_MODEL", DefaultCohereModel),
		OpenRouterBaseURL:   getEnv("OPENROUTER_BASE_URL", OpenRouterBaseURL),
		InferenceTimeout:    getEnvSeconds("INFERENCE_TIMEOUT_SECONDS", DefaultInferenceWait),
		DownloadTimeout:     getEnvSeconds("DOWNLOAD_TIMEOUT_SECONDS", DefaultDownloadWait),
		TranscodeTimeout:    getEnvSeconds("TRANSCODE_TIMEOUT_SECONDS", DefaultTranscodeWait),
		MaxRetries:          getEnvInt("MAX_RETRIES", DefaultMaxRetries),
		ImageRewrite:        getEnvBool("IMAGE_REWRITE", true),
		FFmpegPath:          getEnv("FFMPEG_PATH", ""),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		RedisPass: getEnv("REDIS_PASS", ""),
		CacheTTL:  getEnvSeconds("CACHE_TTL_SECONDS", 7*24*time.Hour),

		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", ""),
		S3Profile:      getEnv("S3_PROFILE", ""),
		S3Prefix:       getEnv("S3_PREFIX", ""),
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9093"), ","),
		KafkaTopic:   getEnv("KAFKA_TOPIC_RUN_REQUESTS", "ad-enrichment-requests"),
		KafkaGroupID: getEnv("KAFKA_CONSUMER_GROUP_ID", "adspy-consumer-group"),

		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	if cfg.S3Prefix != "" {
		cfg.S3Prefix = strings.Trim(cfg.S3Prefix, "/") + "/"
	}
	return cfg
}

// Validate checks the credentials a run needs. Scraping credentials are
// only required when the run actually calls the ad library.
func (c *Config) Validate(needScraper, needSheets bool) error {
	var missing []string
	if c.OpenRouterKey == "" {
		missing = append(missing, "OPENROUTER_API_KEY")
	}
	if needScraper && c.ApifyToken == "" {
		missing = append(missing, "APIFY_TOKEN")
	}
	if needSheets {
		if _, err := os.Stat(c.ServiceAccountFile); err != nil {
			missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_FILE ("+c.ServiceAccountFile+")")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

// ClampWorkers bounds a requested worker count to [1, MaxWorkers].
// Zero or negative falls back to DefaultWorkers.
func ClampWorkers(n int) int {
	if n <= 0 {
		return DefaultWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
