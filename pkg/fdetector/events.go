package fdetector

import (
	"fmt"

	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

// StatusKind is the verdict the failure detector reaches about a peer
type StatusKind int

const (
	// Alive means the peer acknowledged a direct or indirect probe
	Alive StatusKind = iota
	// Suspect means the peer answered neither a direct nor an indirect probe
	Suspect
)

// String returns the string representation of a StatusKind
func (k StatusKind) String() string {
	switch k {
	case Alive:
		return "ALIVE"
	case Suspect:
		return "SUSPECT"
	default:
		return "UNKNOWN"
	}
}

// Event is a liveness verdict about one endpoint
type Event struct {
	Endpoint transport.Endpoint
	Kind     StatusKind
}

// String returns a human-readable event description
func (e Event) String() string {
	return fmt.Sprintf("%s is %s", e.Endpoint, e.Kind)
}
