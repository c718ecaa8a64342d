// Package config holds server configuration assembled from flags,
// environment variables (optionally a .env file), and an optional YAML
// config file. Precedence: flags > environment > config file > defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverJSONFile = "jsonfile"
	DriverSQLite   = "sqlite"
)

// ServerConfig holds configuration for the course platform server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`       // Listen address (default ":8080")
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json

	StoreDriver string `yaml:"store_driver"` // "jsonfile" or "sqlite"
	DataDir     string `yaml:"data_dir"`     // JSON-file store directory (default "data")
	DBPath      string `yaml:"db_path"`      // SQLite path, ":memory:" for tests

	UploadDir string `yaml:"upload_dir"` // Local homework upload directory

	// Backblaze B2 upload backend; used instead of UploadDir when all three
	// are set.
	B2AccountID string `yaml:"b2_account_id"`
	B2AppKey    string `yaml:"b2_app_key"`
	B2Bucket    string `yaml:"b2_bucket"`

	// Telegram notifications; disabled when the token is empty.
	TelegramBotToken    string `yaml:"telegram_bot_token"`
	TelegramAdminChatID string `yaml:"telegram_admin_chat_id"`

	SecureCookies bool   `yaml:"secure_cookies"` // Set Secure on cookies (HTTPS deployments)
	Environment   string `yaml:"environment"`    // Reported by /api/health

	// LoginRateLimit is the per-IP request budget per minute on the auth
	// endpoints. 0 disables the limiter.
	LoginRateLimit int `yaml:"login_rate_limit"`
}

// Default returns sensible defaults.
func Default() ServerConfig {
	return ServerConfig{
		Addr:           ":8080",
		LogLevel:       "info",
		LogFormat:      "text",
		StoreDriver:    DriverJSONFile,
		DataDir:        "data",
		UploadDir:      "uploads",
		Environment:    "development",
		LoginRateLimit: 10,
	}
}

// FromEnv overlays environment variables onto cfg. A .env file in the
// working directory is loaded first if present; real environment variables
// win over .env entries (godotenv.Load never overwrites).
func FromEnv(cfg ServerConfig) ServerConfig {
	_ = godotenv.Load()

	setString(&cfg.Addr, "MADRASA_ADDR")
	setString(&cfg.LogLevel, "MADRASA_LOG_LEVEL")
	setString(&cfg.LogFormat, "MADRASA_LOG_FORMAT")
	setString(&cfg.StoreDriver, "MADRASA_STORE_DRIVER")
	setString(&cfg.DataDir, "MADRASA_DATA_DIR")
	setString(&cfg.DBPath, "MADRASA_DB_PATH")
	setString(&cfg.UploadDir, "MADRASA_UPLOAD_DIR")
	setString(&cfg.B2AccountID, "B2_ACCOUNT_ID")
	setString(&cfg.B2AppKey, "B2_APP_KEY")
	setString(&cfg.B2Bucket, "B2_BUCKET")
	setString(&cfg.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.TelegramAdminChatID, "TELEGRAM_ADMIN_CHAT_ID")
	setString(&cfg.Environment, "MADRASA_ENV")

	if v := os.Getenv("MADRASA_SECURE_COOKIES"); v != "" {
		cfg.SecureCookies = v == "true" || v == "1"
	}
	if v := os.Getenv("MADRASA_LOGIN_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimit = n
		}
	}

	return cfg
}

// LoadFile overlays a YAML config file onto cfg.
func LoadFile(cfg ServerConfig, path string) (ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c ServerConfig) Validate() error {
	switch c.StoreDriver {
	case DriverJSONFile, DriverSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.StoreDriver == DriverJSONFile && c.DataDir == "" {
		return fmt.Errorf("data dir required for the jsonfile store")
	}
	return nil
}

// B2Enabled reports whether homework uploads go to Backblaze B2.
func (c ServerConfig) B2Enabled() bool {
	return c.B2AccountID != "" && c.B2AppKey != "" && c.B2Bucket != ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
