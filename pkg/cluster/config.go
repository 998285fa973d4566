package cluster

import (
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

// Config defines configuration for the membership service. The config is
// immutable once passed to New; there are no runtime setters.
type Config struct {
	// SyncInterval is the period of anti-entropy SYNC rounds (default: 10s)
	SyncInterval time.Duration `yaml:"sync_interval"`
	// SyncTimeout bounds the wait for a SYNC-ACK (default: 3s)
	SyncTimeout time.Duration `yaml:"sync_timeout"`
	// MaxSuspectTime is how long a SUSPECTED member survives before removal (default: 60s)
	MaxSuspectTime time.Duration `yaml:"max_suspect_time"`
	// MaxShutdownTime is how long a SHUTDOWN member is retained (default: 60s)
	MaxShutdownTime time.Duration `yaml:"max_shutdown_time"`
	// SyncGroup partitions the cluster; messages from other groups are dropped (default: "default")
	SyncGroup string `yaml:"sync_group"`
	// SeedMembers are host:port addresses used for bootstrap and ongoing anti-entropy
	SeedMembers []string `yaml:"seed_members"`
	// Metadata is the opaque local metadata announced to the cluster
	Metadata map[string]string `yaml:"metadata"`
}

// DefaultConfig returns a safe default configuration
func DefaultConfig() Config {
	return Config{
		SyncInterval:    10 * time.Second,
		SyncTimeout:     3 * time.Second,
		MaxSuspectTime:  60 * time.Second,
		MaxShutdownTime: 60 * time.Second,
		SyncGroup:       "default",
	}
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.SyncInterval <= 0 {
		return ErrInvalidSyncInterval
	}
	if c.SyncTimeout <= 0 || c.SyncTimeout >= c.SyncInterval {
		return ErrInvalidSyncTimeout
	}
	if c.MaxSuspectTime <= 0 {
		return ErrInvalidSuspectTime
	}
	if c.MaxShutdownTime <= 0 {
		return ErrInvalidShutdownTime
	}
	if c.SyncGroup == "" {
		return ErrEmptySyncGroup
	}
	for _, seed := range c.SeedMembers {
		if _, _, err := transport.ParseAddr(seed); err != nil {
			return ErrInvalidSeedAddress
		}
	}
	return nil
}

// normalizeSeeds deduplicates the seed list and drops the local address
func normalizeSeeds(seeds []string, local transport.Endpoint) []string {
	seen := make(map[string]bool, len(seeds))
	normalized := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		host, port, err := transport.ParseAddr(seed)
		if err != nil {
			continue
		}
		if host == local.Host && port == local.Port {
			continue
		}
		if seen[seed] {
			continue
		}
		seen[seed] = true
		normalized = append(normalized, seed)
	}
	return normalized
}
