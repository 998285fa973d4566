// Package fdetector implements a SWIM-style failure detector. Every ping
// interval one peer is probed directly; a peer that misses the direct ack
// is probed again through a handful of intermediaries before a SUSPECT
// verdict is emitted. Verdicts are hints for the membership layer, which
// owns the authoritative member state.
package fdetector

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/metrics"
	"github.com/dd0wney/cluso-cluster/pkg/stream"
	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

// Message qualifiers
const (
	QualifierPing    = "io.servicefabric.cluster/fdetector/ping"
	QualifierAck     = "io.servicefabric.cluster/fdetector/ack"
	QualifierPingReq = "io.servicefabric.cluster/fdetector/pingReq"
)

// FailureDetector probes cluster peers and emits liveness verdicts.
//
// Concurrent Safety:
// 1. The peer set is replaced wholesale under peersMu
// 2. Each probe runs in its own goroutine against the transport
// 3. Verdicts fan out through a stream.Bus
type FailureDetector struct {
	config          Config
	transport       *transport.Transport
	peers           map[string]transport.Endpoint // endpoint id -> endpoint
	suspected       map[string]bool               // endpoint id -> marked suspect
	peersMu         sync.RWMutex
	bus             *stream.Bus
	logger          logging.Logger
	metricsRegistry *metrics.Registry
	correlation     atomic.Int64
	cancelListen    context.CancelFunc
	stopCh          chan struct{}
	wg              sync.WaitGroup
	running         bool
	runningMu       sync.Mutex
}

// New creates a failure detector bound to a transport
func New(tr *transport.Transport, config Config, logger logging.Logger) (*FailureDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &FailureDetector{
		config:          config,
		transport:       tr,
		peers:           make(map[string]transport.Endpoint),
		suspected:       make(map[string]bool),
		bus:             stream.NewBus(256),
		logger:          logger.With(logging.Component("fdetector")),
		metricsRegistry: metrics.DefaultRegistry(),
		stopCh:          make(chan struct{}),
	}, nil
}

// SetClusterEndpoints replaces the probe set. The local endpoint is
// filtered out; suspicion marks for departed members are dropped.
func (fd *FailureDetector) SetClusterEndpoints(endpoints []transport.Endpoint) {
	local := fd.transport.Endpoint()

	fd.peersMu.Lock()
	defer fd.peersMu.Unlock()

	fd.peers = make(map[string]transport.Endpoint, len(endpoints))
	for _, ep := range endpoints {
		if ep.Equal(local) {
			continue
		}
		fd.peers[ep.ID] = ep
	}
	for id := range fd.suspected {
		if _, stillMember := fd.peers[id]; !stillMember {
			delete(fd.suspected, id)
		}
	}

	fd.metricsRegistry.FDetectorPeersTotal.Set(float64(len(fd.peers)))
}

// Suspect marks an endpoint as suspected; each probe round also probes
// one marked endpoint, so its recovery is noticed quickly
func (fd *FailureDetector) Suspect(ep transport.Endpoint) {
	fd.peersMu.Lock()
	defer fd.peersMu.Unlock()
	fd.suspected[ep.ID] = true
}

// Trust clears the suspicion mark for an endpoint
func (fd *FailureDetector) Trust(ep transport.Endpoint) {
	fd.peersMu.Lock()
	defer fd.peersMu.Unlock()
	delete(fd.suspected, ep.ID)
}

// ListenStatus subscribes to the stream of verdicts. Each value on the
// channel is an Event.
func (fd *FailureDetector) ListenStatus(ctx context.Context) *stream.Subscription {
	return fd.bus.Subscribe(ctx)
}

// Start begins probing and answering probes
func (fd *FailureDetector) Start() error {
	fd.runningMu.Lock()
	defer fd.runningMu.Unlock()

	if fd.running {
		return ErrAlreadyStarted
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	fd.cancelListen = cancel
	sub := fd.transport.Listen(listenCtx)

	fd.running = true
	fd.wg.Add(2)
	go fd.probeLoop()
	go fd.handleLoop(sub)

	fd.logger.Info("Failure detector started",
		logging.Duration("ping_interval", fd.config.PingInterval))
	return nil
}

// Stop halts probing and completes the verdict stream
func (fd *FailureDetector) Stop() error {
	fd.runningMu.Lock()
	defer fd.runningMu.Unlock()

	if !fd.running {
		return ErrNotStarted
	}

	close(fd.stopCh)
	fd.cancelListen()
	fd.wg.Wait()
	fd.bus.Complete()
	fd.running = false

	fd.logger.Info("Failure detector stopped")
	return nil
}

// nextCorrelationID renders the process-wide probe counter for the wire
func (fd *FailureDetector) nextCorrelationID() string {
	return "fd-" + strconv.FormatInt(fd.correlation.Add(1), 10)
}

// pickProbeTarget selects one peer uniformly at random
func (fd *FailureDetector) pickProbeTarget() (transport.Endpoint, bool) {
	fd.peersMu.RLock()
	defer fd.peersMu.RUnlock()

	if len(fd.peers) == 0 {
		return transport.Endpoint{}, false
	}
	candidates := make([]transport.Endpoint, 0, len(fd.peers))
	for _, ep := range fd.peers {
		candidates = append(candidates, ep)
	}
	return candidates[rand.Intn(len(candidates))], true
}

// pickIntermediaries selects up to n random peers excluding the target
func (fd *FailureDetector) pickIntermediaries(target transport.Endpoint, n int) []transport.Endpoint {
	fd.peersMu.RLock()
	defer fd.peersMu.RUnlock()

	candidates := make([]transport.Endpoint, 0, len(fd.peers))
	for _, ep := range fd.peers {
		if ep.Equal(target) {
			continue
		}
		candidates = append(candidates, ep)
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

func (fd *FailureDetector) isSuspected(id string) bool {
	fd.peersMu.RLock()
	defer fd.peersMu.RUnlock()
	return fd.suspected[id]
}
