package transport

import (
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
)

// Endpoint is the stable identity-plus-address of a peer. Two endpoints
// with the same ID are the same member regardless of address; the most
// recently observed address wins.
type Endpoint struct {
	ID   string `json:"id"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

// NewEndpoint creates an endpoint with a freshly generated unique ID
func NewEndpoint(host string, port int) Endpoint {
	return Endpoint{
		ID:   uuid.NewString(),
		Host: host,
		Port: port,
	}
}

// Addr returns the dialable address of the endpoint
func (e Endpoint) Addr() string {
	return fmt.Sprintf("tcp://%s", net.JoinHostPort(e.Host, strconv.Itoa(e.Port)))
}

// Equal reports whether two endpoints identify the same member
func (e Endpoint) Equal(other Endpoint) bool {
	return e.ID == other.ID
}

// String returns a human-readable endpoint description
func (e Endpoint) String() string {
	return fmt.Sprintf("%s@%s:%d", e.ID, e.Host, e.Port)
}

// ParseAddr splits a "host:port" seed address
func ParseAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in address %q", addr)
	}
	return host, port, nil
}

// DialAddr converts a "host:port" seed address to its dialable form
func DialAddr(addr string) (string, error) {
	host, port, err := ParseAddr(addr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("tcp://%s", net.JoinHostPort(host, strconv.Itoa(port))), nil
}
