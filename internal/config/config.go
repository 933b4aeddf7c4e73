package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the dispatcher.
// The mapstructure tags are used by Viper to unmarshal the data.
type Config struct {
	SimulatedNotification bool          `mapstructure:"simulated_notification"`
	WorkerCount           int           `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize             int           `mapstructure:"queue_size" validate:"gte=1"`
	HttpListenAddr        string        `mapstructure:"http_listen_addr" validate:"required"`
	GrpcListenAddr        string        `mapstructure:"grpc_listen_addr" validate:"required"`
	NotificationTimeout   time.Duration `mapstructure:"notification_timeout" validate:"gt=0"`
	MaxResponseSize       int64         `mapstructure:"max_response_size" validate:"gt=0"`
	AlarmLogAlways        bool          `mapstructure:"alarm_log_always"`
	DatabaseURL           string        `mapstructure:"database_url" validate:"omitempty,url"`
	MigrationsDir         string        `mapstructure:"migrations_dir"`
	StatusSyncSchedule    string        `mapstructure:"status_sync_schedule" validate:"required"`
	NatsURL               string        `mapstructure:"nats_url" validate:"omitempty,url"`
	NatsSubject           string        `mapstructure:"nats_subject" validate:"required"`
	LogLevel              string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	TracingEnabled        bool          `mapstructure:"tracing_enabled"`
}

var validate = validator.New()

// Load loads configuration from file and DISPATCHER_* environment variables.
// Extra search paths are tried before ./configs and the working directory.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvPrefix("dispatcher")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("simulated_notification", false)
	v.SetDefault("worker_count", 4)
	v.SetDefault("queue_size", 64)
	v.SetDefault("http_listen_addr", ":8080")
	v.SetDefault("grpc_listen_addr", ":50051")
	v.SetDefault("notification_timeout", "10s")
	v.SetDefault("max_response_size", 64*1024)
	v.SetDefault("alarm_log_always", false)
	v.SetDefault("database_url", "")
	v.SetDefault("migrations_dir", "migrations")
	v.SetDefault("status_sync_schedule", "@every 10s")
	v.SetDefault("nats_url", "")
	v.SetDefault("nats_subject", "notify.batches")
	v.SetDefault("log_level", "info")
	v.SetDefault("tracing_enabled", false)
}
