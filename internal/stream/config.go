package stream

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInterval is returned when a periodic interval is not positive.
	ErrInvalidInterval = errors.New("interval must be positive")
	// ErrInvalidCap is returned when a capacity limit is not positive.
	ErrInvalidCap = errors.New("capacity must be positive")
	// ErrInvalidBatchSize is returned when a per-tick drain bound is not positive.
	ErrInvalidBatchSize = errors.New("batch size must be positive")
	// ErrInvalidOverflowPolicy is returned for an unknown queue overflow policy.
	ErrInvalidOverflowPolicy = errors.New("unknown queue overflow policy")
)

// OverflowPolicy decides what happens when a bounded ingestion queue is full.
type OverflowPolicy string

const (
	// OverflowDropOldest evicts the oldest queued event to make room.
	OverflowDropOldest OverflowPolicy = "drop_oldest"
	// OverflowRejectNew drops the incoming event instead.
	OverflowRejectNew OverflowPolicy = "reject_new"
)

// Config holds the tunables of the streaming service.
type Config struct {
	// MaxConnections caps concurrent client connections; connections beyond
	// the cap are rejected at accept time with an overload close code.
	MaxConnections int

	// MaxSubscriptionsPerConnection caps subscriptions per connection;
	// subscribes beyond the cap fail with a subscription_error.
	MaxSubscriptionsPerConnection int

	// DeliveryInterval is the delivery scheduler period.
	DeliveryInterval time.Duration

	// HeartbeatInterval is the liveness monitor period. A connection whose
	// last activity is older than twice this interval is evicted.
	HeartbeatInterval time.Duration

	// BugBatchSize / AnalyticsBatchSize bound how many events each scheduler
	// tick drains from the respective queue.
	BugBatchSize       int
	AnalyticsBatchSize int

	// QueueDepthLimit bounds each ingestion queue; 0 means unbounded.
	QueueDepthLimit int

	// QueueOverflowPolicy applies when QueueDepthLimit is reached.
	QueueOverflowPolicy OverflowPolicy
}

// SetDefaults fills in zero-valued fields with production defaults.
func (c *Config) SetDefaults() {
	if c.MaxConnections == 0 {
		c.MaxConnections = 1000
	}
	if c.MaxSubscriptionsPerConnection == 0 {
		c.MaxSubscriptionsPerConnection = 50
	}
	if c.DeliveryInterval == 0 {
		c.DeliveryInterval = time.Second
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.BugBatchSize == 0 {
		c.BugBatchSize = 100
	}
	if c.AnalyticsBatchSize == 0 {
		c.AnalyticsBatchSize = 50
	}
	if c.QueueOverflowPolicy == "" {
		c.QueueOverflowPolicy = OverflowDropOldest
	}
}

// Validate checks the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.MaxConnections <= 0 {
		return fmt.Errorf("max connections: %w", ErrInvalidCap)
	}
	if c.MaxSubscriptionsPerConnection <= 0 {
		return fmt.Errorf("max subscriptions per connection: %w", ErrInvalidCap)
	}
	if c.DeliveryInterval <= 0 {
		return fmt.Errorf("delivery interval: %w", ErrInvalidInterval)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval: %w", ErrInvalidInterval)
	}
	if c.BugBatchSize <= 0 || c.AnalyticsBatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.QueueDepthLimit < 0 {
		return fmt.Errorf("queue depth limit: %w", ErrInvalidCap)
	}
	switch c.QueueOverflowPolicy {
	case OverflowDropOldest, OverflowRejectNew:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOverflowPolicy, c.QueueOverflowPolicy)
	}
	return nil
}
