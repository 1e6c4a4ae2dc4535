package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

var (
	// ErrReadConfig возвращается, когда не удалось прочитать или разобрать файл конфигурации
	ErrReadConfig = errors.New("config: failed to read config file")

	// ErrInvalidConfig возвращается, когда конфигурация не прошла валидацию
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config конфигурация сервиса
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Logs      LogsConfig      `toml:"logs"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Payments  PaymentsConfig  `toml:"payments"`
	Redis     RedisConfig     `toml:"redis"`
	Broker    BrokerConfig    `toml:"broker"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig настройки HTTP сервера (таймауты в секундах)
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
	AutoMigrate     bool   `toml:"auto_migrate"`
}

// DSN строка подключения для lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// LogsConfig настройки логирования
type LogsConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// MetricsConfig настройки Prometheus метрик
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// PaymentsConfig настройки приема вебхуков платежного провайдера
type PaymentsConfig struct {
	WebhookSecret   string `toml:"webhook_secret"`
	SignatureHeader string `toml:"signature_header"`
	Tolerance       int    `toml:"tolerance"`       // секунды
	WebhookTimeout  int    `toml:"webhook_timeout"` // секунды
	MaxBodyBytes    int64  `toml:"max_body_bytes"`
}

// ToleranceDuration допустимое расхождение времени подписи
func (c PaymentsConfig) ToleranceDuration() time.Duration {
	return time.Duration(c.Tolerance) * time.Second
}

// WebhookTimeoutDuration ограничение времени обработки одного вебхука
func (c PaymentsConfig) WebhookTimeoutDuration() time.Duration {
	return time.Duration(c.WebhookTimeout) * time.Second
}

// RedisConfig настройки кэша обработанных событий
type RedisConfig struct {
	Enabled           bool   `toml:"enabled"`
	Address           string `toml:"address"`
	Password          string `toml:"password"`
	DB                int    `toml:"db"`
	PoolSize          int    `toml:"pool_size"`
	ProcessedEventTTL int    `toml:"processed_event_ttl"` // секунды
}

// ProcessedEventTTLDuration время хранения отметки об обработанном событии
func (c RedisConfig) ProcessedEventTTLDuration() time.Duration {
	return time.Duration(c.ProcessedEventTTL) * time.Second
}

// BrokerConfig настройки публикации доменных событий в RabbitMQ
type BrokerConfig struct {
	Enabled  bool   `toml:"enabled"`
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

// RateLimitConfig ограничение частоты запросов на клиента
type RateLimitConfig struct {
	Enabled bool    `toml:"enabled"`
	RPS     float64 `toml:"rps"`
	Burst   int     `toml:"burst"`
}

// Load загружает конфигурацию из TOML файла.
// Переменные окружения (в том числе из .env) перекрывают секреты из файла.
func Load(path string) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%w: Load - decode %s: %v", ErrReadConfig, path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		c.Payments.WebhookSecret = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("BROKER_URL"); v != "" {
		c.Broker.URL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15
	}

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 300
	}

	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = "edu-booking-service"
	}

	if c.Payments.SignatureHeader == "" {
		c.Payments.SignatureHeader = "Stripe-Signature"
	}
	if c.Payments.Tolerance == 0 {
		c.Payments.Tolerance = 300
	}
	if c.Payments.WebhookTimeout == 0 {
		c.Payments.WebhookTimeout = 10
	}
	if c.Payments.MaxBodyBytes == 0 {
		c.Payments.MaxBodyBytes = 65536
	}

	if c.Redis.ProcessedEventTTL == 0 {
		c.Redis.ProcessedEventTTL = 86400
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}

	if c.Broker.Exchange == "" {
		c.Broker.Exchange = "edu.events"
	}

	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("%w: server.http_port must be in 1..65535, got %d", ErrInvalidConfig, c.Server.HTTPPort)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("%w: database.host is required", ErrInvalidConfig)
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("%w: database.dbname is required", ErrInvalidConfig)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("%w: database.max_open_conns must be positive", ErrInvalidConfig)
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("%w: database.max_idle_conns (%d) exceeds max_open_conns (%d)",
			ErrInvalidConfig, c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Payments.WebhookSecret == "" {
		return fmt.Errorf("%w: payments.webhook_secret is required (or STRIPE_WEBHOOK_SECRET)", ErrInvalidConfig)
	}
	if c.Payments.Tolerance < 0 {
		return fmt.Errorf("%w: payments.tolerance must not be negative", ErrInvalidConfig)
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("%w: redis.address is required when redis is enabled", ErrInvalidConfig)
	}
	if c.Broker.Enabled && c.Broker.URL == "" {
		return fmt.Errorf("%w: broker.url is required when broker is enabled", ErrInvalidConfig)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("%w: rate_limit.rps must not be negative", ErrInvalidConfig)
	}
	return nil
}
