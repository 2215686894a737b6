// Package config loads the API and picker configuration.
package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/divverma2003/convo-app/pkg/config"
	"github.com/divverma2003/convo-app/pkg/database"
	"github.com/divverma2003/convo-app/pkg/errreport"
	"github.com/divverma2003/convo-app/pkg/log"
	"github.com/divverma2003/convo-app/pkg/pubsub"
)

// Directory backends.
const (
	BackendSQL           = "sql"
	BackendElasticsearch = "elasticsearch"
)

// Config is the API process configuration.
type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Directory     DirectoryConfig     `mapstructure:"directory"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	PubSub        pubsub.Config       `mapstructure:"pubsub"`
	Identity      IdentityConfig      `mapstructure:"identity"`
	Chat          ChatConfig          `mapstructure:"chat"`
	Presence      PresenceConfig      `mapstructure:"presence"`
	Sentry        errreport.Config    `mapstructure:"sentry"`
	Log           log.Config          `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ClientURL       string        `mapstructure:"client_url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	Debug           bool   `mapstructure:"debug"`
}

// ToDatabase converts to the connection factory's config.
func (d DatabaseConfig) ToDatabase() *database.Config {
	return &database.Config{
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		DBName:          d.DBName,
		SSLMode:         d.SSLMode,
		FilePath:        d.FilePath,
		MaxIdleConns:    d.MaxIdleConns,
		MaxOpenConns:    d.MaxOpenConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		Debug:           d.Debug,
	}
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type DirectoryConfig struct {
	Backend string `mapstructure:"backend"` // sql, elasticsearch
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	IndexUsers string   `mapstructure:"index_users"`
}

type IdentityConfig struct {
	SessionSecret string        `mapstructure:"session_secret"`
	SessionIssuer string        `mapstructure:"session_issuer"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Leeway        time.Duration `mapstructure:"leeway"`
}

type ChatConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type PresenceConfig struct {
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

var apiDefaults = map[string]interface{}{
	"env":                        "development",
	"server.host":                "0.0.0.0",
	"server.port":                5001,
	"server.client_url":          "http://localhost:5173",
	"server.shutdown_timeout":    "10s",
	"database.driver":            "postgres",
	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "postgres",
	"database.password":          "postgres",
	"database.dbname":            "convo",
	"database.sslmode":           "disable",
	"database.file_path":         "convo.db",
	"database.max_idle_conns":    10,
	"database.max_open_conns":    100,
	"database.conn_max_lifetime": 60,
	"redis.address":              "localhost:6379",
	"redis.password":             "",
	"redis.db":                   0,
	"cache.prefix":               "directory",
	"cache.ttl":                  "30s",
	"directory.backend":          BackendSQL,
	"elasticsearch.addresses":    []string{"http://localhost:9200"},
	"elasticsearch.index_users":  "convo-users",
	"pubsub.driver":              "redis",
	"pubsub.kafka.brokers":       "localhost:9092",
	"pubsub.kafka.group_id":      "convo-user-lifecycle",
	"pubsub.kafka.partitions":    3,
	"identity.leeway":            "30s",
	"chat.token_ttl":             "0s",
	"presence.prefix":            "presence",
	"presence.ttl":               "1m",
	"sentry.sample_rate":         1.0,
	"sentry.flush_timeout":       "2s",
	"log.level":                  "info",
	"log.service_name":           "convo-api",
}

var apiEnv = map[string][]string{
	"env":                     {"APP_ENV"},
	"server.port":             {"PORT"},
	"server.client_url":       {"CLIENT_URL"},
	"database.driver":         {"DB_DRIVER"},
	"database.host":           {"DB_HOST"},
	"database.port":           {"DB_PORT"},
	"database.user":           {"DB_USER"},
	"database.password":       {"DB_PASSWORD"},
	"database.dbname":         {"DB_NAME"},
	"database.sslmode":        {"DB_SSLMODE"},
	"database.file_path":      {"DB_FILE_PATH"},
	"redis.address":           {"REDIS_ADDRESS", "REDIS_URL"},
	"redis.password":          {"REDIS_PASSWORD"},
	"directory.backend":       {"DIRECTORY_BACKEND"},
	"elasticsearch.addresses": {"ES_ADDRESSES"},
	"pubsub.driver":           {"PUBSUB_DRIVER"},
	"pubsub.redis.address":    {"REDIS_ADDRESS", "REDIS_URL"},
	"pubsub.redis.password":   {"REDIS_PASSWORD"},
	"pubsub.kafka.brokers":    {"KAFKA_BROKERS"},
	"identity.session_secret": {"CLERK_SECRET_KEY"},
	"identity.session_issuer": {"CLERK_ISSUER"},
	"identity.webhook_secret": {"CLERK_WEBHOOK_SECRET"},
	"chat.api_key":            {"STREAM_API_KEY"},
	"chat.api_secret":         {"STREAM_API_SECRET"},
	"sentry.dsn":              {"SENTRY_DSN"},
	"sentry.release":          {"SENTRY_RELEASE"},
	"log.level":               {"LOG_LEVEL"},
}

// Load reads the API configuration.
func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	pkgconfig.ApplyDefaults(v, apiDefaults)
	v.SetDefault("pubsub.redis.address", v.GetString("redis.address"))
	if err := pkgconfig.BindEnvs(v, apiEnv); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Env == "development" {
		cfg.Log.Pretty = true
	}
	if cfg.Sentry.Environment == "" {
		cfg.Sentry.Environment = cfg.Env
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	if c.Identity.SessionSecret == "" {
		return fmt.Errorf("config: identity.session_secret (CLERK_SECRET_KEY) is required")
	}
	if c.Chat.APISecret == "" {
		return fmt.Errorf("config: chat.api_secret (STREAM_API_SECRET) is required")
	}
	switch c.Directory.Backend {
	case BackendSQL, BackendElasticsearch:
	default:
		return fmt.Errorf("config: unknown directory backend %q", c.Directory.Backend)
	}
	return nil
}
