package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Zabbix struct {
		URL            string
		Username       string
		Password       string
		TimeoutSeconds int
		ScriptNames    []string
	}
	API struct {
		Port     string
		BasePath string
	}
	DB struct {
		DSN string
	}
	Kafka struct {
		Broker string
		Topic  string
	}
	Telegram struct {
		BotToken      string
		ChatID        int64
		RatePerSecond int
	}
	Export struct {
		Timezone string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Zabbix backend settings
	cfg.Zabbix.URL = os.Getenv("ZABBIX_URL")
	cfg.Zabbix.Username = os.Getenv("ZABBIX_USER")
	cfg.Zabbix.Password = os.Getenv("ZABBIX_PASSWORD")
	if t, err := strconv.Atoi(os.Getenv("ZABBIX_TIMEOUT_SECONDS")); err == nil {
		cfg.Zabbix.TimeoutSeconds = t
	}
	if names := os.Getenv("ZABBIX_SCRIPT_NAMES"); names != "" {
		for _, name := range strings.Split(names, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				cfg.Zabbix.ScriptNames = append(cfg.Zabbix.ScriptNames, trimmed)
			}
		}
	}

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Kafka audit stream (optional)
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")

	// Telegram notification forwarding (optional)
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}
	if r, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_PER_SECOND")); err == nil {
		cfg.Telegram.RatePerSecond = r
	}

	// Export settings
	cfg.Export.Timezone = os.Getenv("EXPORT_TIMEZONE")

	// Logging settings
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.Zabbix.URL == "" {
		missing = append(missing, "ZABBIX_URL")
	}
	if cfg.Zabbix.Username == "" {
		missing = append(missing, "ZABBIX_USER")
	}
	if cfg.Zabbix.Password == "" {
		missing = append(missing, "ZABBIX_PASSWORD")
	}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Zabbix.TimeoutSeconds == 0 {
		cfg.Zabbix.TimeoutSeconds = 30
	}
	if len(cfg.Zabbix.ScriptNames) == 0 {
		cfg.Zabbix.ScriptNames = []string{"Create Ticket", "Close Ticket", "Send Email", "Update Ticket ID"}
	}
	if cfg.API.Port == "" {
		cfg.API.Port = "8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "problem_updates"
	}
	if cfg.Telegram.RatePerSecond == 0 {
		cfg.Telegram.RatePerSecond = 1
	}
	if cfg.Export.Timezone == "" {
		cfg.Export.Timezone = "UTC"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}
