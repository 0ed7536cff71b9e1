package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]string{})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.True(t, cfg.BreakerEnabled)
	assert.Equal(t, 0, cfg.OwnerLockStripes)
	assert.Equal(t, "unishop", cfg.Dynamo.Table)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "checkout-outbox", cfg.Kafka.Topic)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "dynamodb")
	t.Setenv("DYNAMO_TABLE", "baskets")
	t.Setenv("AWS_DYNAMODB_ENDPOINT", "http://localhost:4566")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("OWNER_LOCK_STRIPES", "64")
	t.Setenv("REQUEST_TIMEOUT", "3s")

	cfg, err := Load([]string{})
	require.NoError(t, err)

	assert.Equal(t, BackendDynamoDB, cfg.StoreBackend)
	assert.Equal(t, "baskets", cfg.Dynamo.Table)
	assert.Equal(t, "http://localhost:4566", cfg.Dynamo.Endpoint)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 64, cfg.OwnerLockStripes)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")

	cfg, err := Load([]string{"--http-port=9100", "--store-backend=memory", "--no-breaker-enabled"})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.HTTPPort)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.False(t, cfg.BreakerEnabled)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")

	_, err := Load([]string{})
	assert.Error(t, err)
}

func TestLoad_RejectsNegativeStripes(t *testing.T) {
	_, err := Load([]string{"--owner-lock-stripes=-1"})
	assert.ErrorContains(t, err, "owner-lock-stripes")
}
