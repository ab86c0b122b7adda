package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Kilat-Pet-Delivery/service-trip/internal/platform/database"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds broker and topic settings.
type KafkaConfig struct {
	Enabled            bool
	Brokers            []string
	GroupPrefix        string
	TripEventsTopic    string
	LocationPicksTopic string
}

// JWTConfig holds session token settings.
type JWTConfig struct {
	Secret string
	Issuer string
}

// SessionConfig controls session lifetime.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// FareConfig is the fare schedule.
type FareConfig struct {
	BaseFare        float64
	PerKmRate       float64
	AverageSpeedKmh float64
}

// ServiceConfig holds all configuration for the trip service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	StoreDriver    string
	MigrationsPath string
	CORSOrigins    []string
	DBConfig       database.PostgresConfig
	RedisConfig    RedisConfig
	KafkaConfig    KafkaConfig
	JWTConfig      JWTConfig
	SessionConfig  SessionConfig
	FareConfig     FareConfig
}

// Load reads configuration from TRIP_* environment variables and an optional
// config.yaml in the working directory.
func Load() (*ServiceConfig, error) {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &ServiceConfig{
		Port:           ":" + strings.TrimPrefix(v.GetString("service_port"), ":"),
		AppEnv:         v.GetString("app_env"),
		StoreDriver:    strings.ToLower(v.GetString("store_driver")),
		MigrationsPath: v.GetString("migrations_path"),
		CORSOrigins:    splitList(v.GetString("cors_allowed_origins")),
		DBConfig:       loadDatabaseConfig(v),
		RedisConfig:    loadRedisConfig(v),
		KafkaConfig:    loadKafkaConfig(v),
		JWTConfig:      loadJWTConfig(v),
		SessionConfig:  loadSessionConfig(v),
		FareConfig:     loadFareConfig(v),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *ServiceConfig) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("invalid store driver %q: must be one of memory, redis, postgres", c.StoreDriver)
	}
	if len(c.JWTConfig.Secret) < 16 {
		return errors.New("JWT secret must be at least 16 characters")
	}
	if c.SessionConfig.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.SessionConfig.SweepInterval <= 0 {
		return errors.New("session sweep interval must be positive")
	}
	if c.FareConfig.BaseFare < 0 || c.FareConfig.PerKmRate < 0 {
		return errors.New("fare amounts must not be negative")
	}
	if c.FareConfig.AverageSpeedKmh <= 0 {
		return errors.New("average speed must be positive")
	}
	if c.KafkaConfig.Enabled && len(c.KafkaConfig.Brokers) == 0 {
		return errors.New("kafka is enabled but no brokers are configured")
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *ServiceConfig) IsProduction() bool {
	return c.AppEnv == "production"
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TRIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("service_port", "8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("store_driver", StoreMemory)
	v.SetDefault("migrations_path", "migrations")
	v.SetDefault("cors_allowed_origins", "*")

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "trip_db")
	v.SetDefault("db_sslmode", "disable")

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("kafka_enabled", false)
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("kafka_group_prefix", "service-trip")
	v.SetDefault("kafka_trip_events_topic", "trip.events")
	v.SetDefault("kafka_location_picks_topic", "trip.location-picks")

	v.SetDefault("jwt_secret", "change-me-in-production-please")
	v.SetDefault("jwt_issuer", "service-trip")

	v.SetDefault("session_ttl", "12h")
	v.SetDefault("session_sweep_interval", "5m")

	v.SetDefault("fare_base", 3.0)
	v.SetDefault("fare_per_km", 1.0)
	v.SetDefault("fare_average_speed_kmh", 40.0)
	return v
}

func loadDatabaseConfig(v *viper.Viper) database.PostgresConfig {
	return database.PostgresConfig{
		Host:     v.GetString("db_host"),
		Port:     v.GetString("db_port"),
		User:     v.GetString("db_user"),
		Password: v.GetString("db_password"),
		DBName:   v.GetString("db_name"),
		SSLMode:  v.GetString("db_sslmode"),
	}
}

func loadRedisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Addr:     v.GetString("redis_addr"),
		Password: v.GetString("redis_password"),
		DB:       v.GetInt("redis_db"),
	}
}

func loadKafkaConfig(v *viper.Viper) KafkaConfig {
	return KafkaConfig{
		Enabled:            v.GetBool("kafka_enabled"),
		Brokers:            splitList(v.GetString("kafka_brokers")),
		GroupPrefix:        v.GetString("kafka_group_prefix"),
		TripEventsTopic:    v.GetString("kafka_trip_events_topic"),
		LocationPicksTopic: v.GetString("kafka_location_picks_topic"),
	}
}

func loadJWTConfig(v *viper.Viper) JWTConfig {
	return JWTConfig{
		Secret: v.GetString("jwt_secret"),
		Issuer: v.GetString("jwt_issuer"),
	}
}

func loadSessionConfig(v *viper.Viper) SessionConfig {
	return SessionConfig{
		TTL:           v.GetDuration("session_ttl"),
		SweepInterval: v.GetDuration("session_sweep_interval"),
	}
}

func loadFareConfig(v *viper.Viper) FareConfig {
	return FareConfig{
		BaseFare:        v.GetFloat64("fare_base"),
		PerKmRate:       v.GetFloat64("fare_per_km"),
		AverageSpeedKmh: v.GetFloat64("fare_average_speed_kmh"),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
