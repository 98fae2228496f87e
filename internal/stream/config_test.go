package stream

import (
	"errors"
	"testing"
	"time"
)

func TestConfigSetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	if cfg.MaxConnections != 1000 {
		t.Errorf("Expected default max connections 1000, got %d", cfg.MaxConnections)
	}
	if cfg.MaxSubscriptionsPerConnection != 50 {
		t.Errorf("Expected default subscription cap 50, got %d", cfg.MaxSubscriptionsPerConnection)
	}
	if cfg.DeliveryInterval != time.Second {
		t.Errorf("Expected default delivery interval 1s, got %s", cfg.DeliveryInterval)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("Expected default heartbeat interval 30s, got %s", cfg.HeartbeatInterval)
	}
	if cfg.BugBatchSize != 100 {
		t.Errorf("Expected default bug batch size 100, got %d", cfg.BugBatchSize)
	}
	if cfg.AnalyticsBatchSize != 50 {
		t.Errorf("Expected default analytics batch size 50, got %d", cfg.AnalyticsBatchSize)
	}
	if cfg.QueueDepthLimit != 0 {
		t.Errorf("Expected unbounded queue by default, got limit %d", cfg.QueueDepthLimit)
	}
	if cfg.QueueOverflowPolicy != OverflowDropOldest {
		t.Errorf("Expected default overflow policy drop_oldest, got %q", cfg.QueueOverflowPolicy)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestConfigSetDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		MaxConnections:      5,
		QueueDepthLimit:     10,
		QueueOverflowPolicy: OverflowRejectNew,
	}
	cfg.SetDefaults()

	if cfg.MaxConnections != 5 {
		t.Errorf("Expected explicit max connections 5 kept, got %d", cfg.MaxConnections)
	}
	if cfg.QueueDepthLimit != 10 {
		t.Errorf("Expected explicit queue limit 10 kept, got %d", cfg.QueueDepthLimit)
	}
	if cfg.QueueOverflowPolicy != OverflowRejectNew {
		t.Errorf("Expected explicit overflow policy kept, got %q", cfg.QueueOverflowPolicy)
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		var cfg Config
		cfg.SetDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"negative max connections", func(c *Config) { c.MaxConnections = -1 }, ErrInvalidCap},
		{"negative subscription cap", func(c *Config) { c.MaxSubscriptionsPerConnection = -1 }, ErrInvalidCap},
		{"negative delivery interval", func(c *Config) { c.DeliveryInterval = -time.Second }, ErrInvalidInterval},
		{"negative heartbeat interval", func(c *Config) { c.HeartbeatInterval = -time.Second }, ErrInvalidInterval},
		{"negative bug batch size", func(c *Config) { c.BugBatchSize = -1 }, ErrInvalidBatchSize},
		{"negative analytics batch size", func(c *Config) { c.AnalyticsBatchSize = -1 }, ErrInvalidBatchSize},
		{"negative queue limit", func(c *Config) { c.QueueDepthLimit = -1 }, ErrInvalidCap},
		{"unknown overflow policy", func(c *Config) { c.QueueOverflowPolicy = "newest_wins" }, ErrInvalidOverflowPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
