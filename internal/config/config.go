package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Auth         AuthConfig         `mapstructure:"auth"`
	QR           QRConfig           `mapstructure:"qr"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Migrations   MigrationsConfig   `mapstructure:"migrations"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
	ConnectRetry int           `mapstructure:"connect_retry"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Enabled      bool          `mapstructure:"enabled"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	RoleCacheTTL time.Duration `mapstructure:"role_cache_ttl"`
}

type KafkaConfig struct {
	Brokers []string    `mapstructure:"brokers"`
	Enabled bool        `mapstructure:"enabled"`
	Topics  TopicConfig `mapstructure:"topics"`
}

type TopicConfig struct {
	FestRegistration  string `mapstructure:"fest_registration"`
	EventRegistration string `mapstructure:"event_registration"`
	Team              string `mapstructure:"team"`
	Certificate       string `mapstructure:"certificate"`
}

// All returns every configured topic name.
func (t TopicConfig) All() []string {
	return []string{t.FestRegistration, t.EventRegistration, t.Team, t.Certificate}
}

type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret"`
	OIDCIssuer string `mapstructure:"oidc_issuer"`
}

type QRConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Size      int    `mapstructure:"size"`
}

type RegistrationConfig struct {
	// RequireFestRegistration rejects event registration without a fest
	// registration. When false the fest registration is created on the fly.
	RequireFestRegistration bool          `mapstructure:"require_fest_registration"`
	CancelCutoff            time.Duration `mapstructure:"cancel_cutoff"`
	DefaultTeamSize         int           `mapstructure:"default_team_size"`
	TeamCodeLength          int           `mapstructure:"team_code_length"`
}

type MigrationsConfig struct {
	Dir         string `mapstructure:"dir"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
	Seed        bool   `mapstructure:"seed"`
}

type LogConfig struct {
	Dir   string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
}

// legacy environment names accepted next to the SECTION_KEY form.
var envAliases = map[string][]string{
	"server.port":      {"PORT"},
	"database.dsn":     {"POSTGRES_DSN"},
	"redis.addr":       {"REDIS_ADDR"},
	"kafka.brokers":    {"KAFKA_BROKERS", "KAFKA_ADDR"},
	"auth.jwt_secret":  {"JWT_SECRET"},
	"auth.oidc_issuer": {"OIDC_ISSUER"},
	"qr.secret_key":    {"QR_SECRET_KEY"},

	"registration.require_fest_registration": {"REQUIRE_FEST_REGISTRATION"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.max_lifetime", 5*time.Minute)
	v.SetDefault("database.connect_retry", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.lock_ttl", 10*time.Second)
	v.SetDefault("redis.role_cache_ttl", 5*time.Minute)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.enabled", true)
	v.SetDefault("kafka.topics.fest_registration", "festbuzz.fest-registration")
	v.SetDefault("kafka.topics.event_registration", "festbuzz.event-registration")
	v.SetDefault("kafka.topics.team", "festbuzz.team")
	v.SetDefault("kafka.topics.certificate", "festbuzz.certificate")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.oidc_issuer", "")

	v.SetDefault("qr.secret_key", "")
	v.SetDefault("qr.size", 256)

	v.SetDefault("registration.require_fest_registration", true)
	v.SetDefault("registration.cancel_cutoff", 24*time.Hour)
	v.SetDefault("registration.default_team_size", 4)
	v.SetDefault("registration.team_code_length", 6)

	v.SetDefault("migrations.dir", "./migrations")
	v.SetDefault("migrations.auto_migrate", true)
	v.SetDefault("migrations.seed", false)

	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.level", "info")
}

// Load reads defaults, an optional config.yaml (./config or .) and the
// environment, in increasing priority.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Registration.DefaultTeamSize < 1 {
		return fmt.Errorf("registration.default_team_size must be positive, got %d", c.Registration.DefaultTeamSize)
	}
	if c.Registration.TeamCodeLength < 4 {
		return fmt.Errorf("registration.team_code_length must be at least 4, got %d", c.Registration.TeamCodeLength)
	}
	if c.Registration.CancelCutoff < 0 {
		return errors.New("registration.cancel_cutoff must not be negative")
	}
	return nil
}
