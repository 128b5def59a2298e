package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"

	"parkgo/driver"
	"parkgo/runner"
	"parkgo/runner/storage"
	"parkgo/status"
)

// dbDisabled turns run persistence off when used as PARKGO_DB.
const dbDisabled = "off"

// settings is the process configuration read from the environment.
type settings struct {
	Port       string
	ConfigPath string
	DBPath     string
	LookupKey  string
	BaseURL    string
	Username   string
	Password   string
	Headless   bool
	ChromePath string
	Interval   time.Duration
	Fallback   time.Duration
	LogLevel   string

	// OTLPEndpoint enables span export when set.
	OTLPEndpoint string
}

// loadSettings reads .env (if present) and then the environment.
func loadSettings() (settings, error) {
	_ = godotenv.Load()

	s := settings{
		Port:       getEnv("PORT", "8080"),
		ConfigPath: getEnv("PARKGO_CONFIG", "parkgo.yml"),
		DBPath:     getEnv("PARKGO_DB", filepath.Join("data", "parkgo.db")),
		LookupKey:  os.Getenv("PARKGO_LOOKUP_KEY"),
		BaseURL:    os.Getenv("PARKGO_BASE_URL"),
		Username:   os.Getenv("PARKGO_USERNAME"),
		Password:   os.Getenv("PARKGO_PASSWORD"),
		ChromePath: os.Getenv("PARKGO_CHROME_PATH"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		OTLPEndpoint: otlpEndpoint(),
	}

	var err error
	if s.Headless, err = getBool("PARKGO_HEADLESS", true); err != nil {
		return s, err
	}
	if s.Interval, err = getDuration("PARKGO_REFRESH_INTERVAL", status.DefaultInterval); err != nil {
		return s, err
	}
	if s.Fallback, err = getDuration("PARKGO_RETRY_INTERVAL", status.DefaultFallback); err != nil {
		return s, err
	}
	return s, nil
}

// siteConfig loads the yaml file and applies environment overrides on top.
func (s settings) siteConfig() (runner.SiteConfig, error) {
	cfg, err := runner.LoadSiteConfig(s.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if s.BaseURL != "" {
		cfg.EntryURL = s.BaseURL
	}
	if s.Username != "" {
		cfg.Credentials.Username = s.Username
	}
	if s.Password != "" {
		cfg.Credentials.Password = s.Password
	}
	if s.LookupKey != "" {
		cfg.LookupKey = s.LookupKey
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openStore opens the run database, or returns nil when persistence is off.
func (s settings) openStore() (*storage.Storage, error) {
	if strings.EqualFold(s.DBPath, dbDisabled) {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return storage.NewStorage(s.DBPath)
}

func (s settings) launcher(logger *slog.Logger) *driver.ChromeLauncher {
	return driver.NewChromeLauncher(driver.ChromeOptions{
		Headless: s.Headless,
		ExecPath: s.ChromePath,
	}, logger)
}

// newController builds the workflow controller against a real browser. A nil
// store disables persistence.
func newController(cfg runner.SiteConfig, s settings, store *storage.Storage, tracer trace.Tracer, logger *slog.Logger) *runner.Controller {
	opts := []runner.Option{runner.WithTracer(tracer)}
	if store != nil {
		opts = append(opts, runner.WithStore(store))
	}
	return runner.NewController(s.launcher(logger), runner.NewSiteExecutor(cfg, logger), logger, opts...)
}

func otlpEndpoint() string {
	if v := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); v != "" {
		return v
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
}

// getEnv gets environment variable or returns default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return defaultValue, fmt.Errorf("invalid %s %q: must be positive", key, value)
	}
	return d, nil
}
