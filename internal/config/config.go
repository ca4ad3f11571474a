package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yukikurage/intake-workflow-api/internal/constants"
)

type Config struct {
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPath        string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	GinMode       string
	LogLevel      string
	HTTPAddr      string
	AppBaseURL    string
	PolicyFile    string

	WriteMaxAttempts int
	Dispatcher       DispatcherConfig

	OTelEnabled bool
	OTelStdout  bool
}

// DispatcherConfig tunes the notification fan-out.
type DispatcherConfig struct {
	Workers          int
	Concurrency      int
	RecipientTimeout time.Duration
	DedupWindow      int
	EmailSink        string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db_driver", "mysql")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "3306")
	v.SetDefault("db_user", "taskuser")
	v.SetDefault("db_password", "taskpassword")
	v.SetDefault("db_name", "intake_workflow")
	v.SetDefault("db_path", "intake.db")
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("session_secret", "default-secret-key-change-me")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("app_base_url", "http://localhost:8080")
	v.SetDefault("policy_file", "")
	v.SetDefault("write_max_attempts", constants.DefaultWriteMaxAttempts)
	v.SetDefault("dispatch_workers", constants.DefaultDispatchWorkers)
	v.SetDefault("dispatch_concurrency", constants.DefaultDispatchConcurrent)
	v.SetDefault("dispatch_recipient_timeout", constants.DefaultRecipientTimeout)
	v.SetDefault("dispatch_dedup_window", constants.DefaultDedupWindow)
	v.SetDefault("email_sink", "outbox")
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_stdout", false)
}

// Load reads configuration from the environment and, when set, the
// config file already registered on v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		DBDriver:         v.GetString("db_driver"),
		DBHost:           v.GetString("db_host"),
		DBPort:           v.GetString("db_port"),
		DBUser:           v.GetString("db_user"),
		DBPassword:       v.GetString("db_password"),
		DBName:           v.GetString("db_name"),
		DBPath:           v.GetString("db_path"),
		RedisHost:        v.GetString("redis_host"),
		RedisPort:        v.GetString("redis_port"),
		SessionSecret:    v.GetString("session_secret"),
		GinMode:          v.GetString("gin_mode"),
		LogLevel:         v.GetString("log_level"),
		HTTPAddr:         v.GetString("http_addr"),
		AppBaseURL:       strings.TrimRight(v.GetString("app_base_url"), "/"),
		PolicyFile:       v.GetString("policy_file"),
		WriteMaxAttempts: v.GetInt("write_max_attempts"),
		Dispatcher: DispatcherConfig{
			Workers:          v.GetInt("dispatch_workers"),
			Concurrency:      v.GetInt("dispatch_concurrency"),
			RecipientTimeout: v.GetDuration("dispatch_recipient_timeout"),
			DedupWindow:      v.GetInt("dispatch_dedup_window"),
			EmailSink:        v.GetString("email_sink"),
		},
		OTelEnabled: v.GetBool("otel_enabled"),
		OTelStdout:  v.GetBool("otel_stdout"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that would otherwise fail at runtime.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("db_driver must be mysql, postgres or sqlite, got %q", c.DBDriver)
	}
	if c.WriteMaxAttempts < 1 {
		return fmt.Errorf("write_max_attempts must be at least 1")
	}
	if c.Dispatcher.Workers < 1 {
		return fmt.Errorf("dispatch_workers must be at least 1")
	}
	if c.Dispatcher.Concurrency < 1 {
		return fmt.Errorf("dispatch_concurrency must be at least 1")
	}
	if c.Dispatcher.RecipientTimeout <= 0 {
		return fmt.Errorf("dispatch_recipient_timeout must be positive")
	}
	switch c.Dispatcher.EmailSink {
	case "outbox", "log":
	default:
		return fmt.Errorf("email_sink must be outbox or log, got %q", c.Dispatcher.EmailSink)
	}
	return nil
}
