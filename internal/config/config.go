package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TELEHEALTH_JWT_SECRET.
const EnvPrefix = "TELEHEALTH"

type Config struct {
	Server    ServerConfig    `mapstructure:"server" envconfig:"server"`
	Database  DatabaseConfig  `mapstructure:"database" envconfig:"database"`
	JWT       JWTConfig       `mapstructure:"jwt" envconfig:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis" envconfig:"redis"`
	SMTP      SMTPConfig      `mapstructure:"smtp" envconfig:"smtp"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" envconfig:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors" envconfig:"cors"`
	Policy    PolicyConfig    `mapstructure:"policy" envconfig:"policy"`
	Metrics   MetricsConfig   `mapstructure:"metrics" envconfig:"metrics"`
	Log       LogConfig       `mapstructure:"log" envconfig:"log"`
	Worker    WorkerConfig    `mapstructure:"worker" envconfig:"worker"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" envconfig:"port"`
	Env          string        `mapstructure:"env" envconfig:"env"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" envconfig:"write_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host" envconfig:"host"`
	Port         int    `mapstructure:"port" envconfig:"port"`
	User         string `mapstructure:"user" envconfig:"user"`
	Password     string `mapstructure:"password" envconfig:"password"`
	Name         string `mapstructure:"name" envconfig:"name"`
	SSLMode      string `mapstructure:"sslmode" envconfig:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" envconfig:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" envconfig:"max_idle_conns"`
}

type JWTConfig struct {
	Secret       string `mapstructure:"secret" envconfig:"secret"`
	Issuer       string `mapstructure:"issuer" envconfig:"issuer"`
	ExpiryHours  int    `mapstructure:"expiry_hours" envconfig:"expiry_hours"`
	CookieName   string `mapstructure:"cookie_name" envconfig:"cookie_name"`
	CookieSecure bool   `mapstructure:"cookie_secure" envconfig:"cookie_secure"`
}

func (c JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryHours) * time.Hour
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"url"`
	Channel      string        `mapstructure:"channel" envconfig:"channel"`
	MaxRetries   int           `mapstructure:"max_retries" envconfig:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" envconfig:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size" envconfig:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" envconfig:"min_idle_conns"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" envconfig:"host"`
	Port     int    `mapstructure:"port" envconfig:"port"`
	Username string `mapstructure:"username" envconfig:"username"`
	Password string `mapstructure:"password" envconfig:"password"`
	From     string `mapstructure:"from" envconfig:"from"`
}

type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled" envconfig:"enabled"`
	RequestsPerSecond float64       `mapstructure:"rps" envconfig:"rps"`
	Burst             int           `mapstructure:"burst" envconfig:"burst"`
	ClientTTL         time.Duration `mapstructure:"client_ttl" envconfig:"client_ttl"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" envconfig:"allowed_origins"`
}

// PolicyConfig holds the lifecycle and validation switches.
type PolicyConfig struct {
	// StrictAvailability rejects incomplete availability blocks instead of skipping them.
	StrictAvailability bool `mapstructure:"strict_availability" envconfig:"strict_availability"`
	// AllowDeleteResolved lets a doctor delete accepted or rejected appointments.
	AllowDeleteResolved bool `mapstructure:"allow_delete_resolved" envconfig:"allow_delete_resolved"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" envconfig:"enabled"`
	Path    string `mapstructure:"path" envconfig:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" envconfig:"level"`
	Pretty bool   `mapstructure:"pretty" envconfig:"pretty"`
}

// WorkerConfig tunes the notification worker.
type WorkerConfig struct {
	HealthPort    int           `mapstructure:"health_port" envconfig:"health_port"`
	RetryAttempts int           `mapstructure:"retry_attempts" envconfig:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" envconfig:"retry_delay"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "telehealth")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.issuer", "telehealth-api")
	v.SetDefault("jwt.expiry_hours", 30*24)
	v.SetDefault("jwt.cookie_name", "token")
	v.SetDefault("jwt.cookie_secure", false)

	v.SetDefault("redis.channel", "appointments")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "no-reply@telehealth.local")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.client_ttl", 10*time.Minute)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("policy.strict_availability", false)
	v.SetDefault("policy.allow_delete_resolved", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("worker.health_port", 8081)
	v.SetDefault("worker.retry_attempts", 3)
	v.SetDefault("worker.retry_delay", 2*time.Second)
}

// LoadConfig reads config.yaml (optional) and applies TELEHEALTH_* overrides.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app/config")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v)
}

// LoadFromFile is LoadConfig for an explicit path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment overrides
	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.JWT.Secret) == "" {
		problems = append(problems, "jwt.secret is required")
	}
	if c.Server.Port <= 0 {
		problems = append(problems, "server.port must be positive")
	}
	if c.JWT.ExpiryHours <= 0 {
		problems = append(problems, "jwt.expiry_hours must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
