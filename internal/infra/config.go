package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	LatestStoreFile     = "file"
	LatestStorePostgres = "postgres"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	Port                string
	DataDir             string
	UploadDir           string
	PublicDir           string
	DefaultOriginalPath string
	DefaultMaskPath     string
	AdminPassword       string
	LatestStore         string
	DatabaseURL         string
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	RateLimitPerMin     int
	MaxUploadBytes      int64
	CORSAllowedOrigins  []string

	// TrustProxyHeaders lets X-Forwarded-For and X-Real-IP set the client
	// address. Enable only behind a reverse proxy that overwrites them.
	TrustProxyHeaders bool
}

// LoadEnvFiles loads each existing file into the process environment.
// Variables already set, including those from earlier files, win.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "3001"),
		DataDir:             getEnv("DATA_DIR", "data"),
		UploadDir:           getEnv("UPLOAD_DIR", "uploads"),
		PublicDir:           getEnv("PUBLIC_DIR", "public"),
		DefaultOriginalPath: getEnv("DEFAULT_ORIGINAL_PATH", "nocut.jpg"),
		DefaultMaskPath:     getEnv("DEFAULT_MASK_PATH", "cut.png"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", "admin123"),
		LatestStore:         strings.ToLower(getEnv("LATEST_STORE", LatestStoreFile)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 330)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_BYTES", 25*1024*1024)),
		CORSAllowedOrigins:  splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		TrustProxyHeaders:   getEnvBool("TRUST_PROXY_HEADERS", false),
	}

	switch cfg.LatestStore {
	case LatestStoreFile:
	case LatestStorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when LATEST_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("LATEST_STORE must be %q or %q, got %q", LatestStoreFile, LatestStorePostgres, cfg.LatestStore)
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
