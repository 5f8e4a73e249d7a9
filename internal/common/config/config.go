// Package config loads the orchestrator's environment using a plain
// getEnv-based loader rather than a config framework.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is the single environment object the orchestrator loads at
// startup.
type Config struct {
	// StoragePath selects the event store backend. "memory" (default)
	// uses the in-process event store; any other value is passed to the
	// optional Postgres event store adapter as a DSN. The aggregate
	// repositories are always in-process.
	StoragePath string

	// PaymentSuccessRate is the default PaymentGateway's success
	// probability, in [0,1].
	PaymentSuccessRate float64

	// PaymentGatewayDelayMillis simulates network latency on each gateway
	// call.
	PaymentGatewayDelayMillis int

	// ServicePort is the HTTP listen port for the transport adapter.
	ServicePort string

	// RedisAddr is only consulted when the Redis-backed idempotency
	// store is selected.
	RedisAddr string

	// EnableRedisIdempotency selects the Redis-backed idempotency store
	// (C8) over the in-memory default.
	EnableRedisIdempotency bool

	// KafkaBrokers is only consulted when the Kafka audit bridge is
	// enabled.
	KafkaBrokers []string

	// EnableKafkaBridge turns on the optional audit sink (C9).
	EnableKafkaBridge bool
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() Config {
	return Config{
		StoragePath:               getEnv("STORAGE_PATH", "memory"),
		PaymentSuccessRate:        getEnvFloat("PAYMENT_SUCCESS_RATE", 0.9),
		PaymentGatewayDelayMillis: getEnvInt("PAYMENT_GATEWAY_DELAY_MS", 50),
		ServicePort:               getEnv("SERVICE_PORT", "8080"),
		RedisAddr:                 getEnv("REDIS_ADDR", "localhost:6379"),
		EnableRedisIdempotency:    getEnvBool("ENABLE_REDIS_IDEMPOTENCY", false),
		KafkaBrokers:              strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		EnableKafkaBridge:         getEnvBool("ENABLE_KAFKA_BRIDGE", false),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}
