package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yashrajoria/shop-service/database"
)

const (
	dbCredentialsSecret = "shop/DB_CREDENTIALS"
	jwtSecretName       = "shop/JWT_SECRET"
)

type Config struct {
	Env  string
	Port string

	Database    database.PostgresConfig
	LockTimeout time.Duration

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	RedisURL       string
	CacheTTL       time.Duration
	IdempotencyTTL time.Duration

	KafkaBrokers   []string
	KafkaTopic     string
	SNSTopicARN    string
	OutboxBatch    int
	OutboxInterval time.Duration

	AWSRegion           string
	AWSEndpoint         string
	AWSUseSecrets       bool
	CloudWatchMetrics   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string

	RequestTimeout time.Duration
	CORSOrigins    []string
	RateLimit      float64
	RateBurst      int

	AdminUsername string
	AdminPassword string
}

// SecretSource is satisfied by the Secrets Manager client.
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads the environment. With AWS_USE_SECRETS=true the database
// credentials and the JWT secret are overlaid from secrets; pass nil
// secrets to skip the overlay.
func LoadConfig(ctx context.Context, secrets SecretSource) (*Config, error) {
	var (
		cfg = &Config{}
		err error
	)
	cfg.Env = getEnv("ENV", "development")
	cfg.Port = getEnv("PORT", "8080")
	cfg.Database = database.PostgresConfig{
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     getEnv("POSTGRES_PORT", "5432"),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		DBName:   os.Getenv("POSTGRES_DB"),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "orders.events")
	cfg.SNSTopicARN = os.Getenv("SNS_TOPIC_ARN")
	cfg.AWSRegion = getEnv("AWS_REGION", "us-east-1")
	cfg.AWSEndpoint = os.Getenv("AWS_ENDPOINT")
	cfg.CloudWatchNamespace = getEnv("CLOUDWATCH_NAMESPACE", "ShopService")
	cfg.CloudWatchLogGroup = os.Getenv("CLOUDWATCH_LOG_GROUP")
	cfg.CORSOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"))
	cfg.AdminUsername = os.Getenv("ADMIN_USERNAME")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	durations := []struct {
		dst      *time.Duration
		key      string
		fallback string
	}{
		{&cfg.Database.RetryInterval, "DB_RETRY_INTERVAL", "2s"},
		{&cfg.LockTimeout, "LOCK_TIMEOUT", "5s"},
		{&cfg.AccessTTL, "JWT_ACCESS_TTL", "15m"},
		{&cfg.RefreshTTL, "JWT_REFRESH_TTL", "168h"},
		{&cfg.CacheTTL, "CACHE_TTL", "5m"},
		{&cfg.IdempotencyTTL, "IDEMPOTENCY_TTL", "24h"},
		{&cfg.OutboxInterval, "OUTBOX_INTERVAL", "2s"},
		{&cfg.RequestTimeout, "REQUEST_TIMEOUT", "30s"},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, d.fallback); err != nil {
			return nil, err
		}
	}

	if cfg.Database.ConnectAttempts, err = getInt("DB_CONNECT_ATTEMPTS", 10); err != nil {
		return nil, err
	}
	if cfg.OutboxBatch, err = getInt("OUTBOX_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = getInt("RATE_LIMIT_BURST", 40); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.AWSUseSecrets, err = getBool("AWS_USE_SECRETS", false); err != nil {
		return nil, err
	}
	if cfg.CloudWatchMetrics, err = getBool("CLOUDWATCH_METRICS_ENABLED", false); err != nil {
		return nil, err
	}

	if cfg.AWSUseSecrets && secrets != nil {
		overlaySecrets(ctx, cfg, secrets)
	}

	if cfg.Database.User == "" || cfg.Database.Password == "" || cfg.Database.DBName == "" || cfg.Database.Host == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

// overlaySecrets falls back to the environment when a secret is unavailable.
func overlaySecrets(ctx context.Context, cfg *Config, secrets SecretSource) {
	if m, err := secrets.GetSecretMap(ctx, dbCredentialsSecret); err == nil {
		for key, dst := range map[string]*string{
			"POSTGRES_USER":     &cfg.Database.User,
			"POSTGRES_PASSWORD": &cfg.Database.Password,
			"POSTGRES_DB":       &cfg.Database.DBName,
			"POSTGRES_HOST":     &cfg.Database.Host,
			"POSTGRES_PORT":     &cfg.Database.Port,
		} {
			if v, ok := m[key]; ok && v != "" {
				*dst = v
			}
		}
	}
	if jwt, err := secrets.GetSecret(ctx, jwtSecretName); err == nil && jwt != "" {
		cfg.JWTSecret = jwt
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
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
