package fdetector

import "time"

// Config configures the failure detector
type Config struct {
	// PingInterval is the time between probe rounds (default: 2s)
	PingInterval time.Duration `yaml:"ping_interval"`
	// PingTimeout bounds the wait for an ack, once for the direct probe
	// and once more for the indirect round (default: 1s)
	PingTimeout time.Duration `yaml:"ping_timeout"`
	// MaxEndpointsToSelect is the number of intermediaries asked to probe
	// an unresponsive peer indirectly (default: 3)
	MaxEndpointsToSelect int `yaml:"max_endpoints_to_select"`
}

// DefaultConfig returns a safe default configuration
func DefaultConfig() Config {
	return Config{
		PingInterval:         2 * time.Second,
		PingTimeout:          time.Second,
		MaxEndpointsToSelect: 3,
	}
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.PingInterval <= 0 {
		return ErrInvalidPingInterval
	}
	if c.PingTimeout <= 0 || c.PingTimeout > c.PingInterval {
		return ErrInvalidPingTimeout
	}
	if c.MaxEndpointsToSelect < 0 {
		return ErrInvalidEndpointCount
	}
	return nil
}
