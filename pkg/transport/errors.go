package transport

import "errors"

// Socket errors
var (
	ErrAddrInUse    = errors.New("address already bound")
	ErrNoListener   = errors.New("no listener at address")
	ErrNotListening = errors.New("socket is not listening")
	ErrNotConnected = errors.New("socket is not connected")
	ErrNotSupported = errors.New("operation not supported on this socket")
	ErrRecvTimeout  = errors.New("receive timed out")
	ErrClosed       = errors.New("socket closed")
)

// Transport errors
var (
	ErrAlreadyStarted = errors.New("transport already started")
	ErrNotStarted     = errors.New("transport not started")
	ErrAwaitTimeout   = errors.New("timed out awaiting response")
	ErrStopped        = errors.New("transport stopped")
)
