package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "FULFILLMENT"

// Config is the complete service configuration
type Config struct {
	Service   ServiceConfig   `envconfig:"SERVICE"`
	Server    ServerConfig    `envconfig:"SERVER"`
	Mongo     MongoConfig     `envconfig:"MONGODB"`
	Kafka     KafkaConfig     `envconfig:"KAFKA"`
	Outbox    OutboxConfig    `envconfig:"OUTBOX"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	Tracing   TracingConfig   `envconfig:"TRACING"`
	Temporal  TemporalConfig  `envconfig:"TEMPORAL"`
	Lifecycle LifecycleConfig `envconfig:"LIFECYCLE"`

	Idempotency IdempotencyConfig `envconfig:"IDEMPOTENCY"`

	// RateCardFile is an optional YAML rate card overriding the default fees
	RateCardFile string `envconfig:"RATE_CARD_FILE"`
	// OpenAPIValidation validates requests against api/openapi.yaml
	OpenAPIValidation bool `envconfig:"OPENAPI_VALIDATION" default:"false"`
}

type ServiceConfig struct {
	Name        string `envconfig:"NAME" default:"fulfillment-service"`
	Version     string `envconfig:"VERSION" default:"1.0.0"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return ":" + s.Port
}

type MongoConfig struct {
	URI            string        `envconfig:"URI" default:"mongodb://localhost:27017/?replicaSet=rs0"`
	Database       string        `envconfig:"DATABASE" default:"fulfillment"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
	MaxPoolSize    uint64        `envconfig:"MAX_POOL_SIZE" default:"100"`
}

type KafkaConfig struct {
	Enabled  bool     `envconfig:"ENABLED" default:"true"`
	Brokers  []string `envconfig:"BROKERS" default:"localhost:9092"`
	ClientID string   `envconfig:"CLIENT_ID" default:"fulfillment-service"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	BatchSize    int           `envconfig:"BATCH_SIZE" default:"100"`
	// Retention is how long published events are kept before cleanup
	Retention time.Duration `envconfig:"RETENTION" default:"168h"`
}

type RedisConfig struct {
	Enabled         bool          `envconfig:"ENABLED" default:"false"`
	Addr            string        `envconfig:"ADDR" default:"localhost:6379"`
	Password        string        `envconfig:"PASSWORD"`
	DB              int           `envconfig:"DB" default:"0"`
	LockTTL         time.Duration `envconfig:"LOCK_TTL" default:"30s"`
	LockWait        time.Duration `envconfig:"LOCK_WAIT" default:"5s"`
	ProductCacheTTL time.Duration `envconfig:"PRODUCT_CACHE_TTL" default:"5m"`
}

type TracingConfig struct {
	Enabled      bool    `envconfig:"ENABLED" default:"false"`
	OTLPEndpoint string  `envconfig:"OTLP_ENDPOINT" default:"localhost:4317"`
	SampleRate   float64 `envconfig:"SAMPLE_RATE" default:"1.0"`
}

type TemporalConfig struct {
	Enabled        bool          `envconfig:"ENABLED" default:"false"`
	HostPort       string        `envconfig:"HOST_PORT" default:"localhost:7233"`
	Namespace      string        `envconfig:"NAMESPACE" default:"default"`
	TaskQueue      string        `envconfig:"TASK_QUEUE" default:"fulfillment-inbound-queue"`
	PickupTimeout  time.Duration `envconfig:"PICKUP_TIMEOUT" default:"48h"`
	ReceiptTimeout time.Duration `envconfig:"RECEIPT_TIMEOUT" default:"168h"`
}

// IdempotencyConfig controls Idempotency-Key handling on mutating API calls
type IdempotencyConfig struct {
	Enabled     bool          `envconfig:"ENABLED" default:"true"`
	Retention   time.Duration `envconfig:"RETENTION" default:"24h"`
	LockTimeout time.Duration `envconfig:"LOCK_TIMEOUT" default:"5m"`
}

type LifecycleConfig struct {
	AllowDirectInboundCompletion bool `envconfig:"ALLOW_DIRECT_INBOUND_COMPLETION" default:"false"`
}

// Load reads a local .env file when present, then the FULFILLMENT_* environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot
func (c *Config) Validate() error {
	switch {
	case c.Server.Port == "":
		return stderrors.New("config: server port is required")
	case c.Mongo.URI == "" || c.Mongo.Database == "":
		return stderrors.New("config: mongodb uri and database are required")
	case c.Kafka.Enabled && len(c.Kafka.Brokers) == 0:
		return stderrors.New("config: kafka brokers are required when kafka is enabled")
	case c.Outbox.BatchSize <= 0 || c.Outbox.PollInterval <= 0:
		return stderrors.New("config: outbox batch size and poll interval must be positive")
	case c.Redis.Enabled && c.Redis.LockTTL <= 0:
		return stderrors.New("config: redis lock ttl must be positive")
	case c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1:
		return stderrors.New("config: tracing sample rate must be within [0, 1]")
	case c.Temporal.Enabled && (c.Temporal.PickupTimeout <= 0 || c.Temporal.ReceiptTimeout <= 0):
		return stderrors.New("config: temporal pickup and receipt timeouts must be positive")
	case c.Idempotency.Enabled && (c.Idempotency.Retention <= 0 || c.Idempotency.LockTimeout <= 0):
		return stderrors.New("config: idempotency retention and lock timeout must be positive")
	}
	return nil
}
