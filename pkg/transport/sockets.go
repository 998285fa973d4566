package transport

import (
	"io"
	"time"
)

// Socket represents a messaging socket that can send and receive frames.
// This interface abstracts the underlying transport (NNG, ZMQ, or an
// in-process channel network for testing).
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// ListenSocket is a socket that can bind to an address and accept frames.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// DialSocket is a socket that can connect to a remote address.
type DialSocket interface {
	Socket
	Dial(addr string) error
}

// SocketFactory creates sockets for the membership wire protocol.
// Implementations can provide real NNG sockets or in-process channels
// for testing.
type SocketFactory interface {
	// NewPullSocket creates the listening end of a point-to-point pipeline
	NewPullSocket() (ListenSocket, error)
	// NewPushSocket creates the sending end of a point-to-point pipeline
	NewPushSocket() (DialSocket, error)
}
