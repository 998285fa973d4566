package fdetector

import "errors"

// Configuration errors
var (
	ErrInvalidPingInterval  = errors.New("ping interval must be positive")
	ErrInvalidPingTimeout   = errors.New("ping timeout must be positive and not exceed the ping interval")
	ErrInvalidEndpointCount = errors.New("indirect endpoint count cannot be negative")
)

// Lifecycle errors
var (
	ErrAlreadyStarted = errors.New("failure detector already started")
	ErrNotStarted     = errors.New("failure detector not started")
)
