package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "FEEDBACK"

var (
	ErrNoAdmins          = errors.New("at least one admin id is required")
	ErrInvalidAdminID    = errors.New("invalid admin id")
	ErrInvalidMaxLength  = errors.New("max message length must be positive")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Bot       BotConfig       `mapstructure:"bot"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig selects between the postgres driver and an embedded sqlite file.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Path         string `mapstructure:"path"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	StatsTTL     time.Duration `mapstructure:"stats_ttl"`
}

// RateLimitConfig holds per-minute budgets. Limits are only enforced when
// Redis is enabled.
type RateLimitConfig struct {
	APIPerMinute  int  `mapstructure:"api_per_minute"`
	AuthPerMinute int  `mapstructure:"auth_per_minute"`
	FailOpen      bool `mapstructure:"fail_open"`
}

// JWTConfig signs the tokens the chat gateway presents to the HTTP API.
// APIKey is the shared key the gateway exchanges for a token.
type JWTConfig struct {
	Secret       string `mapstructure:"secret"`
	APIKey       string `mapstructure:"api_key"`
	Issuer       string `mapstructure:"issuer"`
	ExpireHours  int    `mapstructure:"expire_hours"`
	RefreshHours int    `mapstructure:"refresh_hours"`
}

type KafkaConfig struct {
	Enabled       bool           `mapstructure:"enabled"`
	Brokers       []string       `mapstructure:"brokers"`
	ConsumerGroup string         `mapstructure:"consumer_group"`
	Topics        TopicsConfig   `mapstructure:"topics"`
	Producer      ProducerConfig `mapstructure:"producer"`
	Consumer      ConsumerConfig `mapstructure:"consumer"`
}

type TopicsConfig struct {
	Events        string `mapstructure:"events"`
	Notifications string `mapstructure:"notifications"`
	DLQ           string `mapstructure:"dlq"`
}

type ProducerConfig struct {
	MaxRetries     int `mapstructure:"max_retries"`
	RetryBackoffMs int `mapstructure:"retry_backoff_ms"`
}

type ConsumerConfig struct {
	MaxRetries     int `mapstructure:"max_retries"`
	RetryBackoffMs int `mapstructure:"retry_backoff_ms"`
}

type NATSConfig struct {
	Servers       []string      `mapstructure:"servers"`
	Name          string        `mapstructure:"name"`
	Subject       string        `mapstructure:"subject"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// NotifierConfig picks the outbound transport: "log", "kafka" or "nats".
type NotifierConfig struct {
	Driver          string        `mapstructure:"driver"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
	NodeID          int64         `mapstructure:"node_id"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type SchedulerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	OverdueSpec string `mapstructure:"overdue_spec"`
	DigestSpec  string `mapstructure:"digest_spec"`
	CleanupSpec string `mapstructure:"cleanup_spec"`
}

// BotConfig carries the relay settings consumed by the services.
type BotConfig struct {
	Token             string  `mapstructure:"token"`
	Admins            []int64 `mapstructure:"-"`
	MaxLength         int     `mapstructure:"max_message_length"`
	RetentionDays     int     `mapstructure:"auto_delete_days"`
	ResponseLimitHrs  int     `mapstructure:"response_time_limit_hours"`
	NotifyAdmins      bool    `mapstructure:"notify_admins"`
	EnableMentions    bool    `mapstructure:"enable_mentions"`
	SeedDefaultQuotes bool    `mapstructure:"seed_default_quotes"`
}

func (b BotConfig) AdminIDs() []int64 {
	out := make([]int64, len(b.Admins))
	copy(out, b.Admins)
	return out
}

func (b BotConfig) MaxMessageLength() int { return b.MaxLength }

func (b BotConfig) AutoDeleteDays() int { return b.RetentionDays }

func (b BotConfig) AdminNotificationsEnabled() bool { return b.NotifyAdmins }

// IsAdmin reports whether identity is one of the configured administrators.
func (b BotConfig) IsAdmin(identity int64) bool {
	for _, id := range b.Admins {
		if id == identity {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "bot_database.db")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "feedback")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.stats_ttl", 60*time.Second)

	v.SetDefault("rate_limit.api_per_minute", 600)
	v.SetDefault("rate_limit.auth_per_minute", 30)
	v.SetDefault("rate_limit.fail_open", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.api_key", "")
	v.SetDefault("jwt.issuer", "feedback-bot")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("jwt.refresh_hours", 168)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.consumer_group", "feedback-core")
	v.SetDefault("kafka.topics.events", "feedback.events")
	v.SetDefault("kafka.topics.notifications", "feedback.notifications")
	v.SetDefault("kafka.topics.dlq", "feedback.events.dlq")
	v.SetDefault("kafka.producer.max_retries", 3)
	v.SetDefault("kafka.producer.retry_backoff_ms", 100)
	v.SetDefault("kafka.consumer.max_retries", 3)
	v.SetDefault("kafka.consumer.retry_backoff_ms", 100)

	v.SetDefault("nats.servers", []string{"nats://127.0.0.1:4222"})
	v.SetDefault("nats.name", "feedback-core")
	v.SetDefault("nats.subject", "feedback.notifications")
	v.SetDefault("nats.user", "")
	v.SetDefault("nats.password", "")
	v.SetDefault("nats.reconnect_wait", 500*time.Millisecond)
	v.SetDefault("nats.timeout", 3*time.Second)

	v.SetDefault("notifier.driver", "log")
	v.SetDefault("notifier.dispatch_timeout", 5*time.Second)
	v.SetDefault("notifier.node_id", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "feedback.log")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.overdue_spec", "0 * * * *")
	v.SetDefault("scheduler.digest_spec", "0 9 * * *")
	v.SetDefault("scheduler.cleanup_spec", "30 3 * * *")

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.admin_ids", "")
	v.SetDefault("bot.max_message_length", 4000)
	v.SetDefault("bot.auto_delete_days", 90)
	v.SetDefault("bot.response_time_limit_hours", 72)
	v.SetDefault("bot.notify_admins", true)
	v.SetDefault("bot.enable_mentions", true)
	v.SetDefault("bot.seed_default_quotes", true)
}

// bindLegacyEnv keeps the unprefixed variable names older deployments used.
func bindLegacyEnv(v *viper.Viper) error {
	legacy := map[string]string{
		"bot.token":              "BOT_TOKEN",
		"bot.admin_ids":          "ADMIN_IDS",
		"bot.max_message_length": "MAX_MESSAGE_LENGTH",
		"bot.auto_delete_days":   "AUTO_DELETE_DAYS",
		"database.path":          "DATABASE_PATH",
	}
	for key, name := range legacy {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, name); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", name, err)
		}
	}
	return nil
}

// LoadConfig reads an optional .env file, then the config file at path when it
// exists, then environment overrides.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	admins, err := parseAdminIDs(v.Get("bot.admin_ids"))
	if err != nil {
		return nil, err
	}
	cfg.Bot.Admins = admins

	return &cfg, nil
}

// parseAdminIDs accepts a comma separated string (env) or a list (config file).
func parseAdminIDs(raw any) ([]int64, error) {
	var parts []string
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
	case []int64:
		return append([]int64(nil), val...), nil
	case int:
		return []int64{int64(val)}, nil
	case int64:
		return []int64{val}, nil
	default:
		parts = []string{fmt.Sprint(val)}
	}

	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAdminID, p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate checks the settings the core cannot run without.
func (c *Config) Validate() error {
	if len(c.Bot.Admins) == 0 {
		return ErrNoAdmins
	}
	if c.Bot.MaxLength <= 0 {
		return ErrInvalidMaxLength
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDriver, c.Database.Driver)
	}
	return nil
}

// PostgresDSN builds the connection string for the postgres driver.
func (d DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
