package idempotency

import (
	"time"

	"github.com/wms-platform/fulfillment-service/pkg/logging"
)

const (
	DefaultMaxKeyLength    = 255
	DefaultLockTimeout     = 5 * time.Minute
	DefaultRetentionPeriod = 24 * time.Hour
	DefaultMaxResponseSize = 1 << 20
)

// Recorder receives one outcome per keyed request
type Recorder interface {
	RecordIdempotency(outcome string)
}

// Config holds configuration for the idempotency middleware
type Config struct {
	ServiceName string
	Repository  KeyRepository
	Logger      *logging.Logger
	Metrics     Recorder

	MaxKeyLength int
	// LockTimeout is the age after which an unfinished key no longer blocks retries
	LockTimeout     time.Duration
	RetentionPeriod time.Duration
	// Responses larger than MaxResponseSize are not cached and the key is released
	MaxResponseSize int

	Now func() time.Time
}

// DefaultConfig returns a default configuration for the given service
func DefaultConfig(serviceName string, repository KeyRepository, logger *logging.Logger) *Config {
	return &Config{
		ServiceName:     serviceName,
		Repository:      repository,
		Logger:          logger,
		MaxKeyLength:    DefaultMaxKeyLength,
		LockTimeout:     DefaultLockTimeout,
		RetentionPeriod: DefaultRetentionPeriod,
		MaxResponseSize: DefaultMaxResponseSize,
		Now:             time.Now,
	}
}

func (c *Config) record(outcome string) {
	if c.Metrics != nil {
		c.Metrics.RecordIdempotency(outcome)
	}
}
