package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"gamebook/app/internal/db"
)

// Config holds runtime configuration values shared by the editor and player.
type Config struct {
	Database      DatabaseConfig
	ServerPort    int
	LogLevel      string
	LogFile       string
	LLMEndpoint   string
	LLMAPIKey     string
	LLMModels     []string
	SentryDSN     string
	Environment   string
	ShutdownGrace time.Duration
	StartPageID   int64
	PlayerTheme   string
	RateLimit     RateLimitConfig
}

// DatabaseConfig describes how to reach the gamebook database.
type DatabaseConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// RateLimitConfig configures the per-client HTTP token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

const (
	defaultDriver         = db.DriverSQLite
	defaultDBPath         = "./data/gamebook.db"
	defaultDBPort         = 5432
	defaultSSLMode        = "disable"
	defaultServerPort     = 8080
	defaultLogLevel       = "info"
	defaultEnvironment    = "development"
	defaultShutdownGrace  = 10 * time.Second
	defaultPlayerTheme    = "catppuccin"
	defaultRateLimitRPS   = 10.0
	defaultRateLimitBurst = 20
	defaultRateLimitTTL   = 10 * time.Minute
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", defaultDriver)),
			Path:     getEnv("DB_PATH", defaultDBPath),
			Host:     os.Getenv("DB_HOST"),
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			SSLMode:  getEnv("DB_SSLMODE", defaultSSLMode),
		},
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		LogFile:       os.Getenv("LOG_FILE"),
		LLMEndpoint:   os.Getenv("LLM_ENDPOINT"),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		ShutdownGrace: defaultShutdownGrace,
		PlayerTheme:   getEnv("PLAYER_THEME", defaultPlayerTheme),
	}

	switch cfg.Database.Driver {
	case db.DriverSQLite:
	case db.DriverPostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" {
			return nil, eris.New("DB_HOST is required when DB_DRIVER is postgres")
		}
		if strings.TrimSpace(cfg.Database.Name) == "" {
			return nil, eris.New("DB_NAME is required when DB_DRIVER is postgres")
		}
	default:
		return nil, eris.Errorf("invalid DB_DRIVER value: %s", cfg.Database.Driver)
	}

	if modelsJSON := os.Getenv("LLM_MODELS"); modelsJSON != "" {
		models, err := parseModels(modelsJSON)
		if err != nil {
			return nil, eris.Wrap(err, "parsing LLM_MODELS")
		}
		cfg.LLMModels = models
	}

	var err error
	if cfg.ServerPort, err = intEnv("SERVER_PORT", defaultServerPort); err != nil {
		return nil, err
	}
	if cfg.Database.Port, err = intEnv("DB_PORT", defaultDBPort); err != nil {
		return nil, err
	}

	if raw := strings.TrimSpace(os.Getenv("START_PAGE_ID")); raw != "" {
		id, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil || id <= 0 {
			return nil, eris.Errorf("invalid START_PAGE_ID value: %s", raw)
		}
		cfg.StartPageID = id
	}

	rateLimit, err := loadRateLimit()
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = rateLimit

	return cfg, nil
}

// PostgresDSN assembles a postgres connection string from the discrete settings.
func (c DatabaseConfig) PostgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	u.RawQuery = query.Encode()

	return u.String()
}

func loadRateLimit() (RateLimitConfig, error) {
	settings := RateLimitConfig{
		RequestsPerSecond: defaultRateLimitRPS,
		Burst:             defaultRateLimitBurst,
		ClientTTL:         defaultRateLimitTTL,
	}

	if raw := os.Getenv("RATE_LIMIT_RPS"); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps <= 0 {
			return settings, eris.Errorf("invalid RATE_LIMIT_RPS value: %s", raw)
		}
		settings.RequestsPerSecond = rps
	}

	burst, err := intEnv("RATE_LIMIT_BURST", defaultRateLimitBurst)
	if err != nil {
		return settings, err
	}
	if burst <= 0 {
		return settings, eris.Errorf("invalid RATE_LIMIT_BURST value: %d", burst)
	}
	settings.Burst = burst

	if raw := os.Getenv("RATE_LIMIT_CLIENT_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return settings, eris.Errorf("invalid RATE_LIMIT_CLIENT_TTL value: %s", raw)
		}
		settings.ClientTTL = ttl
	}

	return settings, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := getEnv(key, strconv.Itoa(fallback))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func parseModels(raw string) ([]string, error) {
	// Accept either a JSON array of strings or an object with a `models` field.
	var arrayInput []string
	if err := json.Unmarshal([]byte(raw), &arrayInput); err == nil {
		return arrayInput, nil
	}

	var objectInput struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal([]byte(raw), &objectInput); err != nil {
		return nil, eris.Wrap(err, "decoding JSON")
	}

	if len(objectInput.Models) == 0 {
		return nil, eris.New("models list is empty")
	}

	return objectInput.Models, nil
}
