package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	Migrate         bool          `mapstructure:"migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type DispatchConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	PublishTimeout  time.Duration `mapstructure:"publish_timeout"`
	BatchSize       int           `mapstructure:"batch_size"`
	ItemDelay       time.Duration `mapstructure:"item_delay"`
}

type SchedulerConfig struct {
	CronSecret string `mapstructure:"cron_secret"`
	// Interval of the in-process job. Zero leaves triggering to the external cron.
	Interval time.Duration `mapstructure:"interval"`
}

type ProvidersConfig struct {
	Email    SMTPConfig    `mapstructure:"email"`
	SMS      GatewayConfig `mapstructure:"sms"`
	WhatsApp GatewayConfig `mapstructure:"whatsapp"`
	Push     GatewayConfig `mapstructure:"push"`
	Voice    GatewayConfig `mapstructure:"voice"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type GatewayConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
	Sender string `mapstructure:"sender"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads .env (if any), then config/config.yaml (if any), then the
// environment. SERVER_PORT overrides server.port and so on.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return ParseConfig(v)
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 30)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("cache.sweep_interval", time.Minute)

	v.SetDefault("dispatch.concurrency", 10)
	v.SetDefault("dispatch.provider_timeout", 15*time.Second)
	v.SetDefault("dispatch.publish_timeout", 5*time.Second)
	v.SetDefault("dispatch.batch_size", 10)
	v.SetDefault("dispatch.item_delay", 500*time.Millisecond)

	v.SetDefault("scheduler.cron_secret", "")
	v.SetDefault("scheduler.interval", time.Duration(0))

	v.SetDefault("providers.email.host", "")
	v.SetDefault("providers.email.port", 465)
	v.SetDefault("providers.email.username", "")
	v.SetDefault("providers.email.password", "")
	v.SetDefault("providers.email.from", "")
	for _, name := range []string{"sms", "whatsapp", "push", "voice"} {
		v.SetDefault("providers."+name+".url", "")
		v.SetDefault("providers."+name+".api_key", "")
		v.SetDefault("providers."+name+".sender", "")
	}

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "delivery-attempts")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
