package gossip

import "errors"

// Configuration errors
var (
	ErrInvalidInterval = errors.New("gossip interval must be positive")
	ErrInvalidFanout   = errors.New("gossip fanout must be at least 1")
	ErrInvalidSeenTTL  = errors.New("seen ttl must be positive")
)

// Lifecycle errors
var (
	ErrAlreadyStarted = errors.New("gossip protocol already started")
	ErrNotStarted     = errors.New("gossip protocol not started")
)
