package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Storage  StorageConfig   `yaml:"storage"`
	Queue    QueueConfig     `yaml:"queue"`
	Printer  PrinterConfig   `yaml:"printer"`
	Delivery DeliveryConfig  `yaml:"delivery"`
	Fetch    FetchConfig     `yaml:"fetch"`
	Auth     AuthConfig      `yaml:"auth"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
	Logging  LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type StorageConfig struct {
	QueuePath   string `yaml:"queue_path"`
	SpoolDir    string `yaml:"spool_dir"`
	HistoryPath string `yaml:"history_path"`
}

type QueueConfig struct {
	// RetryDelay is the backoff base for generic failures,
	// PrinterRetryDelay the base when the printer is classified as
	// unavailable. MaxRetryDelay caps the wait regardless of attempts.
	RetryDelay        time.Duration `yaml:"retry_delay"`
	PrinterRetryDelay time.Duration `yaml:"printer_retry_delay"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay"`
}

type PrinterConfig struct {
	// Name is the lp destination. Empty means the system default printer.
	Name string `yaml:"name"`
	// SettleDelay is the pause between mixed-color groups so the driver's
	// color-mode switch lands before the next spooled job.
	SettleDelay     time.Duration `yaml:"settle_delay"`
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`
}

type DeliveryConfig struct {
	StartLetter string `yaml:"start_letter"`
}

type FetchConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type AuthConfig struct {
	// APIKey guards job submission; empty disables the check.
	APIKey string `yaml:"api_key"`
	// AdminPassword is a bcrypt hash guarding administrative endpoints.
	AdminPassword string `yaml:"admin_password"`
	JWTSecret     string `yaml:"jwt_secret"`
}

type WebhookConfig struct {
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			QueuePath:   "./data/queue.json",
			SpoolDir:    "./data/spool",
			HistoryPath: "./data/history.db",
		},
		Queue: QueueConfig{
			RetryDelay:        10 * time.Second,
			PrinterRetryDelay: 30 * time.Second,
			MaxRetryDelay:     5 * time.Minute,
		},
		Printer: PrinterConfig{
			SettleDelay: 2 * time.Second,
		},
		Delivery: DeliveryConfig{
			StartLetter: "A",
		},
		Fetch: FetchConfig{
			Timeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PRINTFLOW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PRINTFLOW_QUEUE_PATH"); v != "" {
		cfg.Storage.QueuePath = v
	}
	if v := os.Getenv("PRINTFLOW_SPOOL_DIR"); v != "" {
		cfg.Storage.SpoolDir = v
	}
	if v := os.Getenv("PRINTFLOW_HISTORY_PATH"); v != "" {
		cfg.Storage.HistoryPath = v
	}
	if v := os.Getenv("PRINTFLOW_PRINTER"); v != "" {
		cfg.Printer.Name = v
	}
	if v := os.Getenv("PRINTFLOW_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("PRINTFLOW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Storage.QueuePath == "" {
		return fmt.Errorf("queue path is required")
	}
	if c.Storage.SpoolDir == "" {
		return fmt.Errorf("spool dir is required")
	}
	if c.Storage.HistoryPath == "" {
		return fmt.Errorf("history path is required")
	}

	if c.Queue.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}
	if c.Queue.PrinterRetryDelay <= 0 {
		return fmt.Errorf("printer retry delay must be positive")
	}
	if c.Queue.MaxRetryDelay < c.Queue.RetryDelay {
		return fmt.Errorf("max retry delay must be at least the retry delay")
	}

	if c.Printer.SettleDelay < 0 {
		return fmt.Errorf("settle delay must be non-negative")
	}
	if c.Printer.DispatchTimeout < 0 {
		return fmt.Errorf("dispatch timeout must be non-negative")
	}

	if len(c.Delivery.StartLetter) != 1 || c.Delivery.StartLetter[0] < 'A' || c.Delivery.StartLetter[0] > 'Z' {
		return fmt.Errorf("delivery start letter must be a single letter A-Z, got %q", c.Delivery.StartLetter)
	}

	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch timeout must be non-negative")
	}

	for i, w := range c.Webhooks {
		if w.URL == "" {
			return fmt.Errorf("webhook %d: url is required", i)
		}
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}
