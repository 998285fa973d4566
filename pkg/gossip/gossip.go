// Package gossip implements infection-style dissemination of opaque
// transport messages. A spread message is retransmitted to a few random
// peers per round for a number of rounds that grows logarithmically with
// the cluster size; receivers deduplicate by gossip id, deliver each
// message once, and pass it onward.
package gossip

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/metrics"
	"github.com/dd0wney/cluso-cluster/pkg/stream"
	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

// QualifierRequest carries a batch of gossips between peers
const QualifierRequest = "io.servicefabric.cluster/gossip/request"

// Gossip is one disseminated message with its cluster-unique id
type Gossip struct {
	ID      string            `json:"id"`
	Message transport.Message `json:"message"`
}

// requestPayload is the wire batch exchanged per round
type requestPayload struct {
	Gossips []Gossip `json:"gossips"`
}

// queued is a gossip still being retransmitted
type queued struct {
	gossip     Gossip
	roundsLeft int
}

// Protocol spreads and receives gossips.
//
// Concurrent Safety:
// 1. Queue, peers and the seen set share one mutex
// 2. Sends happen outside the lock on snapshot copies
// 3. Delivered messages fan out through a stream.Bus
type Protocol struct {
	config          Config
	transport       *transport.Transport
	peers           []transport.Endpoint
	queue           []*queued
	seen            map[string]time.Time // gossip id -> first seen
	mu              sync.Mutex
	bus             *stream.Bus
	logger          logging.Logger
	metricsRegistry *metrics.Registry
	counter         atomic.Int64
	cancelListen    func()
	stopCh          chan struct{}
	wg              sync.WaitGroup
	running         bool
	runningMu       sync.Mutex
}

// New creates a gossip protocol bound to a transport
func New(tr *transport.Transport, config Config, logger logging.Logger) (*Protocol, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &Protocol{
		config:          config,
		transport:       tr,
		seen:            make(map[string]time.Time),
		bus:             stream.NewBus(256),
		logger:          logger.With(logging.Component("gossip")),
		metricsRegistry: metrics.DefaultRegistry(),
		stopCh:          make(chan struct{}),
	}, nil
}

// SetClusterEndpoints replaces the dissemination peer set. The local
// endpoint is filtered out.
func (p *Protocol) SetClusterEndpoints(endpoints []transport.Endpoint) {
	local := p.transport.Endpoint()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.peers = p.peers[:0]
	for _, ep := range endpoints {
		if ep.Equal(local) {
			continue
		}
		p.peers = append(p.peers, ep)
	}
	p.metricsRegistry.GossipPeersTotal.Set(float64(len(p.peers)))
}

// Spread queues a message for dissemination to the cluster
func (p *Protocol) Spread(msg transport.Message) {
	id := p.transport.Endpoint().ID + "-" + strconv.FormatInt(p.counter.Add(1), 10)

	p.mu.Lock()
	p.seen[id] = time.Now()
	p.queue = append(p.queue, &queued{
		gossip:     Gossip{ID: id, Message: msg},
		roundsLeft: p.rounds(len(p.peers)),
	})
	p.metricsRegistry.GossipQueueSize.Set(float64(len(p.queue)))
	p.mu.Unlock()

	p.metricsRegistry.GossipSpreadTotal.Inc()
}

// Listen subscribes to the stream of delivered messages. Each value on
// the channel is a transport.Message, delivered once per unique gossip.
func (p *Protocol) Listen(ctx context.Context) *stream.Subscription {
	return p.bus.Subscribe(ctx)
}

// Start begins dissemination rounds and receipt handling
func (p *Protocol) Start() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return ErrAlreadyStarted
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	p.cancelListen = cancel
	sub := p.transport.Listen(listenCtx)

	p.running = true
	p.wg.Add(2)
	go p.spreadLoop()
	go p.handleLoop(sub)

	p.logger.Info("Gossip protocol started",
		logging.Duration("interval", p.config.GossipInterval),
		logging.Int("fanout", p.config.Fanout))
	return nil
}

// Stop halts dissemination and completes the delivery stream
func (p *Protocol) Stop() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if !p.running {
		return ErrNotStarted
	}

	close(p.stopCh)
	p.cancelListen()
	p.wg.Wait()
	p.bus.Complete()
	p.running = false

	p.logger.Info("Gossip protocol stopped")
	return nil
}

// rounds computes how many dissemination rounds a gossip lives for
func (p *Protocol) rounds(clusterSize int) int {
	return int(math.Ceil(math.Log2(float64(clusterSize+1)))) + 2
}

// spreadLoop runs one dissemination round per interval
func (p *Protocol) spreadLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.GossipInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.disseminate()
		}
	}
}

// disseminate sends the live queue to fanout random peers and retires
// exhausted gossips
func (p *Protocol) disseminate() {
	p.mu.Lock()
	p.sweepSeen()

	if len(p.queue) == 0 || len(p.peers) == 0 {
		p.mu.Unlock()
		return
	}

	batch := make([]Gossip, 0, len(p.queue))
	live := p.queue[:0]
	for _, q := range p.queue {
		batch = append(batch, q.gossip)
		q.roundsLeft--
		if q.roundsLeft > 0 {
			live = append(live, q)
		}
	}
	p.queue = live
	p.metricsRegistry.GossipQueueSize.Set(float64(len(p.queue)))

	targets := make([]transport.Endpoint, len(p.peers))
	copy(targets, p.peers)
	p.mu.Unlock()

	rand.Shuffle(len(targets), func(i, j int) {
		targets[i], targets[j] = targets[j], targets[i]
	})
	if len(targets) > p.config.Fanout {
		targets = targets[:p.config.Fanout]
	}

	data, err := json.Marshal(requestPayload{Gossips: batch})
	if err != nil {
		p.logger.Error("Failed to marshal gossip batch", logging.Error(err))
		return
	}
	msg := transport.Message{Qualifier: QualifierRequest, Data: data}

	for _, target := range targets {
		p.metricsRegistry.GossipSentTotal.Inc()
		if err := p.transport.SendToEndpoint(target, msg); err != nil {
			p.logger.Debug("Gossip send failed",
				logging.EndpointID(target.ID), logging.Error(err))
		}
	}
}

// handleLoop delivers unseen gossips and queues them for onward spreading
func (p *Protocol) handleLoop(sub *stream.Subscription) {
	defer p.wg.Done()

	for value := range sub.Channel() {
		incoming, ok := value.(transport.IncomingMessage)
		if !ok || incoming.Message.Qualifier != QualifierRequest {
			continue
		}

		var payload requestPayload
		if err := json.Unmarshal(incoming.Message.Data, &payload); err != nil {
			p.logger.Warn("Dropped malformed gossip batch", logging.Error(err))
			continue
		}

		for _, g := range payload.Gossips {
			p.mu.Lock()
			if _, dup := p.seen[g.ID]; dup {
				p.mu.Unlock()
				p.metricsRegistry.RecordGossipReceived(false)
				continue
			}
			p.seen[g.ID] = time.Now()
			p.queue = append(p.queue, &queued{
				gossip:     g,
				roundsLeft: p.rounds(len(p.peers)),
			})
			p.metricsRegistry.GossipQueueSize.Set(float64(len(p.queue)))
			p.mu.Unlock()

			p.metricsRegistry.RecordGossipReceived(true)
			p.bus.Publish(g.Message)
		}
	}
}

// sweepSeen drops dedup entries past their ttl. Caller holds the lock.
func (p *Protocol) sweepSeen() {
	cutoff := time.Now().Add(-p.config.SeenTTL)
	for id, at := range p.seen {
		if at.Before(cutoff) {
			delete(p.seen, id)
		}
	}
}
