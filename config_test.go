package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mock secrets ----

type fakeSecrets struct {
	values map[string]string
	maps   map[string]map[string]string
}

func (f fakeSecrets) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := f.values[name]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func (f fakeSecrets) GetSecretMap(_ context.Context, name string) (map[string]string, error) {
	if m, ok := f.maps[name]; ok {
		return m, nil
	}
	return nil, errors.New("not found")
}

// ---- helpers ----

func setBaseEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"POSTGRES_HOST":     "localhost",
		"POSTGRES_USER":     "shop",
		"POSTGRES_PASSWORD": "shop",
		"POSTGRES_DB":       "shop",
		"JWT_SECRET":        "env-secret",
		"AWS_USE_SECRETS":   "",
		"KAFKA_BROKERS":     "",
		"LOCK_TIMEOUT":      "",
		"RATE_LIMIT_RPS":    "",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 10, cfg.Database.ConnectAttempts)
	assert.Equal(t, float64(20), cfg.RateLimit)
	assert.Equal(t, "orders.events", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("LOCK_TIMEOUT", "750ms")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 750*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, 2.5, cfg.RateLimit)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := []struct {
		key, value, want string
	}{
		{"LOCK_TIMEOUT", "soon", "invalid LOCK_TIMEOUT"},
		{"OUTBOX_BATCH_SIZE", "many", "invalid OUTBOX_BATCH_SIZE"},
		{"AWS_USE_SECRETS", "perhaps", "invalid AWS_USE_SECRETS"},
		{"POSTGRES_DB", "", "database config incomplete"},
		{"JWT_SECRET", "", "JWT_SECRET is required"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := LoadConfig(context.Background(), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadConfig_SecretsOverlay(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AWS_USE_SECRETS", "true")
	t.Setenv("POSTGRES_PASSWORD", "")
	secrets := fakeSecrets{
		values: map[string]string{jwtSecretName: "vault-secret"},
		maps: map[string]map[string]string{dbCredentialsSecret: {
			"POSTGRES_PASSWORD": "vault-pw",
			"POSTGRES_HOST":     "db.internal",
			"POSTGRES_PORT":     "",
		}},
	}

	cfg, err := LoadConfig(context.Background(), secrets)
	require.NoError(t, err)
	assert.Equal(t, "vault-pw", cfg.Database.Password)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port, "empty secret values keep the environment")
	assert.Equal(t, "shop", cfg.Database.User)
	assert.Equal(t, "vault-secret", cfg.JWTSecret)
}

func TestLoadConfig_SecretsUnavailable(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AWS_USE_SECRETS", "true")

	cfg, err := LoadConfig(context.Background(), fakeSecrets{})
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
}
