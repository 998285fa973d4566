package cluster

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-cluster/pkg/fdetector"
	"github.com/dd0wney/cluso-cluster/pkg/gossip"
	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/metrics"
	"github.com/dd0wney/cluso-cluster/pkg/stream"
	"github.com/dd0wney/cluso-cluster/pkg/timer"
	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

// Membership maintains an eventually-consistent view of the cluster. It
// fuses three asynchronous inputs (SYNC exchanges, failure detector
// verdicts, gossip receipts) into one single-writer update pipeline that
// owns the membership table and all decay timers.
//
// Concurrent Safety:
// 1. Only the dispatch loop mutates the table; inputs are marshaled onto
//    it through the events channel
// 2. Reads (Members, Member, LocalMember) return snapshot copies
// 3. Outbound sends run off the dispatch loop and may complete late
type Membership struct {
	config          Config
	localEndpoint   transport.Endpoint
	seeds           []string
	transport       *transport.Transport
	fdetector       *fdetector.FailureDetector
	gossip          *gossip.Protocol
	table           *membershipTable
	events          chan event
	updates         *stream.Bus
	timers          *timer.Scheduler
	logger          logging.Logger
	metricsRegistry *metrics.Registry
	correlation     atomic.Int64
	inputCtx        context.Context
	cancelInputs    context.CancelFunc
	stopCh          chan struct{}
	laneDrain       chan struct{}
	laneDone        chan struct{}
	wg              sync.WaitGroup
	running         bool
	runningMu       sync.Mutex
}

// New creates a membership service. The configuration is validated and
// frozen; the service does nothing until Start.
func New(
	tr *transport.Transport,
	fd *fdetector.FailureDetector,
	gp *gossip.Protocol,
	config Config,
	logger logging.Logger,
) (*Membership, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	local := tr.Endpoint()
	return &Membership{
		config:          config,
		localEndpoint:   local,
		seeds:           normalizeSeeds(config.SeedMembers, local),
		transport:       tr,
		fdetector:       fd,
		gossip:          gp,
		table:           newMembershipTable(local.ID),
		events:          make(chan event, 256),
		updates:         stream.NewBus(256),
		timers:          timer.New(),
		logger:          logger.With(logging.Component("membership"), logging.EndpointID(local.ID)),
		metricsRegistry: metrics.DefaultRegistry(),
		stopCh:          make(chan struct{}),
		laneDrain:       make(chan struct{}),
		laneDone:        make(chan struct{}),
	}, nil
}

// Members returns a snapshot of the current member list
func (m *Membership) Members() []Member {
	return m.table.asList()
}

// Member returns the member with the given id
func (m *Membership) Member(id string) (Member, error) {
	if id == "" {
		return Member{}, ErrEmptyMemberID
	}
	member, exists := m.table.get(id)
	if !exists {
		return Member{}, ErrMemberNotFound
	}
	return member, nil
}

// LocalMember returns the local member record
func (m *Membership) LocalMember() Member {
	return m.table.local()
}

// IsLocalMember reports whether the given member is this node
func (m *Membership) IsLocalMember(member Member) bool {
	return member.Endpoint.Equal(m.localEndpoint)
}

// SeedMembers returns the normalized seed address list
func (m *Membership) SeedMembers() []string {
	seeds := make([]string, len(m.seeds))
	copy(seeds, m.seeds)
	return seeds
}

// ListenUpdates subscribes to the stream of membership deltas. Each value
// on the channel is a Member carrying its new status. The stream completes
// on Stop.
func (m *Membership) ListenUpdates(ctx context.Context) *stream.Subscription {
	return m.updates.Subscribe(ctx)
}

// Start seeds the table with the local member, wires the three input
// subscriptions and runs the initial blocking sync against the seed
// members. It returns once the initial sync finished or timed out;
// everything afterwards is asynchronous.
func (m *Membership) Start() error {
	m.runningMu.Lock()
	if m.running {
		m.runningMu.Unlock()
		return ErrAlreadyStarted
	}
	m.running = true
	m.runningMu.Unlock()

	// Register the local member before any exchange. The dispatch loop
	// has not started, so this is still single-threaded.
	deltas := m.table.mergeMember(Member{
		Endpoint: m.localEndpoint,
		Status:   Trusted,
		Metadata: m.config.Metadata,
	})
	m.processUpdates(deltas, true)

	inputCtx, cancel := context.WithCancel(context.Background())
	m.inputCtx = inputCtx
	m.cancelInputs = cancel

	transportSub := m.transport.Listen(inputCtx)
	fdSub := m.fdetector.ListenStatus(inputCtx)
	gossipSub := m.gossip.Listen(inputCtx)

	go m.dispatchLoop()
	m.wg.Add(3)
	go m.transportAdapter(transportSub)
	go m.fdAdapter(fdSub)
	go m.gossipAdapter(gossipSub)

	if len(m.seeds) > 0 {
		m.logger.Info("Initial sync", logging.Count(len(m.seeds)),
			logging.SyncGroup(m.config.SyncGroup))
		m.doInitialSync()

		m.wg.Add(1)
		go m.syncLoop()
	}

	m.logger.Info("Membership started")
	return nil
}

// Stop halts the periodic sync, drains in-flight merges, completes the
// update stream and stops the decay timers. No merges happen after Stop
// returns.
func (m *Membership) Stop() error {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()

	if !m.running {
		return ErrNotStarted
	}

	close(m.stopCh)
	m.cancelInputs()
	m.wg.Wait()
	m.timers.Stop()

	close(m.laneDrain)
	<-m.laneDone

	m.updates.Complete()
	m.running = false

	m.logger.Info("Membership stopped")
	return nil
}

// Leave announces a graceful departure by gossiping the local member as
// SHUTDOWN. It does not wait for peers to react; callers are expected to
// tear down the transport shortly after.
func (m *Membership) Leave() {
	local := m.table.local()
	local.Status = Shutdown

	payload := MembershipPayload{Members: []Member{local}, SyncGroup: m.config.SyncGroup}
	msg, err := encodePayload(QualifierMembershipGossip, "", payload)
	if err != nil {
		m.logger.Error("Failed to encode leave announcement", logging.Error(err))
		return
	}
	m.gossip.Spread(msg)

	m.logger.Info("Announced leave")
}

// enqueue marshals an event onto the dispatch lane, dropping it if the
// service is stopping
func (m *Membership) enqueue(e event) {
	select {
	case m.events <- e:
	case <-m.stopCh:
	}
}
