package kafka

import (
	"time"

	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers      []string
	ClientID     string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0 none, 1 leader, -1 all replicas
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "fulfillment-service",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
		WriteTimeout: 10 * time.Second,
	}
}

// Topics contains the fulfillment topic names
var Topics = struct {
	Orders    string
	Inbound   string
	Inventory string
}{
	Orders:    "wms.fulfillment.orders",
	Inbound:   "wms.fulfillment.inbound",
	Inventory: "wms.fulfillment.inventory",
}

// TopicForEventType routes an event type to its topic by aggregate family
func TopicForEventType(eventType string) string {
	switch cloudevents.Family(eventType) {
	case cloudevents.FamilyOrder:
		return Topics.Orders
	case cloudevents.FamilyInbound:
		return Topics.Inbound
	default:
		return Topics.Inventory
	}
}
