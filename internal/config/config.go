package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token lifetime constants for the source-API session cache.
const (
	DefaultTokenTTL         = 2 * time.Hour
	DefaultTokenRefreshSkew = 5 * time.Minute
)

// DefaultLimit is the page size used when no limit is configured.
const DefaultLimit = 30

type Config struct {
	APIBaseURL     string
	StartDate      string
	APIToken       string
	TelegramToken  string
	DefaultChatID  string
	Limit          int
	UseCustomEmoji bool

	DataDir          string
	PollInterval     time.Duration
	TokenTTL         time.Duration
	TokenRefreshSkew time.Duration
	LoginTimeout     time.Duration
	FetchTimeout     time.Duration
	SendTimeout      time.Duration
	LogLevel         string
}

// Bootstrap loads .env from the working directory when present, then
// reads the environment. Every binary goes through it so they all
// resolve the same data directory and registries.
func Bootstrap() *Config {
	_ = godotenv.Load()
	return Load()
}

func Load() *Config {
	return &Config{
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "http://127.0.0.1:8000"), "/"),
		StartDate:      getEnv("API_START_DATE", ""),
		APIToken:       getEnv("API_SESSION_TOKEN", ""),
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		DefaultChatID:  getEnv("TELEGRAM_CHAT_ID", ""),
		Limit:          getEnvAsInt("BOT_LIMIT", DefaultLimit),
		UseCustomEmoji: getEnv("USE_CUSTOM_EMOJI", "0") == "1",

		DataDir:          getEnv("DATA_DIR", "."),
		PollInterval:     getEnvAsDuration("POLL_INTERVAL", 30*time.Second),
		TokenTTL:         getEnvAsDuration("TOKEN_TTL", DefaultTokenTTL),
		TokenRefreshSkew: getEnvAsDuration("TOKEN_REFRESH_SKEW", DefaultTokenRefreshSkew),
		LoginTimeout:     getEnvAsDuration("LOGIN_TIMEOUT", 90*time.Second),
		FetchTimeout:     getEnvAsDuration("FETCH_TIMEOUT", 10*time.Minute),
		SendTimeout:      getEnvAsDuration("SEND_TIMEOUT", 30*time.Second),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
}

// ParseLimit interprets the operator's limit reply: a non-numeric reply
// falls back to the default page size, and the result is clamped.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = DefaultLimit
	}
	return ClampLimit(n)
}

// ClampLimit bounds the page limit to the range the source API accepts.
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func (c *Config) AccountsFile() string   { return filepath.Join(c.DataDir, "accounts.json") }
func (c *Config) GroupsFile() string     { return filepath.Join(c.DataDir, "groups.json") }
func (c *Config) PlatformsFile() string  { return filepath.Join(c.DataDir, "platforms.json") }
func (c *Config) CountriesFile() string  { return filepath.Join(c.DataDir, "country_codes.json") }
func (c *Config) TokenCacheFile() string { return filepath.Join(c.DataDir, "token_cache.json") }
func (c *Config) SettingsFile() string   { return filepath.Join(c.DataDir, "runtime_config.json") }
func (c *Config) DailyStoreDir() string  { return filepath.Join(c.DataDir, "daily_messages") }

// NormalizeStartDate returns raw as YYYY-MM-DD with zero-padded month and
// day, or today's date when the input does not look like a date at all.
func NormalizeStartDate(raw string) string {
	v := strings.TrimSpace(raw)
	parts := strings.Split(v, "-")
	if len(parts) == 3 && allDigits(parts) && len(parts[0]) == 4 {
		return parts[0] + "-" + pad2(parts[1]) + "-" + pad2(parts[2])
	}
	return time.Now().Format("2006-01-02")
}

func allDigits(parts []string) bool {
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func pad2(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
