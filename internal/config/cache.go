package config

import "time"

// CacheConfig holds cache TTL policy.
type CacheConfig struct {
	// HierarchyTTL bounds how stale the groups/teams snapshot may get
	// between explicit invalidations.
	HierarchyTTL time.Duration `yaml:"hierarchy_ttl"`

	// Report payload TTLs by report kind.
	RealtimeTTL   time.Duration `yaml:"realtime_ttl"`
	AggregateTTL  time.Duration `yaml:"aggregate_ttl"`
	HistoricalTTL time.Duration `yaml:"historical_ttl"`
}

// WithDefaults fills zero values with the service defaults.
func (c CacheConfig) WithDefaults() CacheConfig {
	if c.HierarchyTTL == 0 {
		c.HierarchyTTL = 15 * time.Minute
	}
	if c.RealtimeTTL == 0 {
		c.RealtimeTTL = time.Minute
	}
	if c.AggregateTTL == 0 {
		c.AggregateTTL = 5 * time.Minute
	}
	if c.HistoricalTTL == 0 {
		c.HistoricalTTL = 30 * time.Minute
	}
	return c
}
