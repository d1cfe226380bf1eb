package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultBackendURL is the production API host used when BACKEND_BASE_URL is unset.
const DefaultBackendURL = "https://api.mockdesk.app"

type Config struct {
	Env      string
	HTTPAddr string
	GRPCAddr string

	BackendBaseURL   string
	BackendTimeout   time.Duration
	BackendPageLimit int
	BackendRPS       float64
	BackendBurst     int

	CacheTTL           time.Duration
	CacheSweepInterval time.Duration
	HydrateConcurrency int
	HydrateDebounce    time.Duration
	DisplayTimezone    string

	JWTSecret    string
	JWTPublicKey string
	JWTIssuer    string

	RedisAddr     string
	RedisPassword string
	DatabaseURL   string

	TRFDelivery    string
	SendgridAPIKey string
	MailFrom       string
	MailFromName   string
	TRFLogoURL     string
	TRFCentreName  string
}

func Load() Config {
	return Config{
		Env:                getenv("APP_ENV", "prod"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:           getenv("GRPC_ADDR", ":9090"),
		BackendBaseURL:     strings.TrimRight(getenv("BACKEND_BASE_URL", DefaultBackendURL), "/"),
		BackendTimeout:     getenvDuration("BACKEND_TIMEOUT", 20*time.Second),
		BackendPageLimit:   getenvInt("BACKEND_PAGE_LIMIT", 1000),
		BackendRPS:         getenvFloat("BACKEND_RPS", 20),
		BackendBurst:       getenvInt("BACKEND_BURST", 10),
		CacheTTL:           getenvDuration("CACHE_TTL", 2*time.Minute),
		CacheSweepInterval: getenvDuration("CACHE_SWEEP_INTERVAL", time.Minute),
		HydrateConcurrency: getenvInt("HYDRATE_CONCURRENCY", 4),
		HydrateDebounce:    getenvDuration("HYDRATE_DEBOUNCE", 250*time.Millisecond),
		DisplayTimezone:    getenv("DISPLAY_TIMEZONE", "Asia/Dhaka"),
		JWTSecret:          getenv("JWT_SECRET", ""),
		JWTPublicKey:       getenvKey("JWT_PUBLIC_KEY", ""),
		JWTIssuer:          getenv("JWT_ISSUER", ""),
		RedisAddr:          getenv("REDIS_ADDR", ""),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
		DatabaseURL:        getenv("DATABASE_URL", ""),
		TRFDelivery:        strings.ToLower(getenv("TRF_DELIVERY", "backend")),
		SendgridAPIKey:     getenv("SENDGRID_API_KEY", ""),
		MailFrom:           getenv("MAIL_FROM", "noreply@mockdesk.app"),
		MailFromName:       getenv("MAIL_FROM_NAME", "Mock Test Centre"),
		TRFLogoURL:         getenv("TRF_LOGO_URL", ""),
		TRFCentreName:      getenv("TRF_CENTRE_NAME", "Mock Test Centre, Dhaka"),
	}
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding values already present in the environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

func (c Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.DisplayTimezone); err == nil {
		return loc
	}
	return time.FixedZone("Asia/Dhaka", 6*60*60)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvKey(key, fallback string) string {
	if file := os.Getenv(key + "_FILE"); file != "" {
		if data, err := os.ReadFile(file); err == nil {
			return normalizePEM(string(data))
		}
	}
	if val := os.Getenv(key); val != "" {
		return normalizePEM(val)
	}
	return fallback
}

func normalizePEM(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "\\n") && !strings.Contains(value, "\n") {
		value = strings.ReplaceAll(value, "\\n", "\n")
	}
	return value
}
