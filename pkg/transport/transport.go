// Package transport carries the membership wire protocol. A Transport
// binds one listening socket for inbound frames and maintains dialed
// point-to-point sockets per destination. Frames are JSON envelopes
// compressed with snappy; delivery is best-effort and single-attempt.
package transport

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/metrics"
	"github.com/dd0wney/cluso-cluster/pkg/stream"
)

// recvPoll bounds how long the receive loop blocks before rechecking for
// shutdown.
const recvPoll = 250 * time.Millisecond

// Config configures a Transport.
type Config struct {
	// Endpoint is the local identity stamped on every outbound frame
	Endpoint Endpoint
	// BindAddr is the listen address; defaults to tcp://0.0.0.0:<endpoint port>
	BindAddr string
	// SendTimeout bounds a single send attempt (default: 2s)
	SendTimeout time.Duration
}

// Transport sends and receives membership protocol messages.
//
// Concurrent Safety:
// 1. The receive loop is the only reader of the listen socket
// 2. Dialed peer sockets are cached under peersMu
// 3. Incoming messages fan out through a stream.Bus snapshot
type Transport struct {
	config          Config
	factory         SocketFactory
	listenSock      ListenSocket
	peers           map[string]DialSocket // dial addr -> socket
	peersMu         sync.Mutex
	bus             *stream.Bus
	logger          logging.Logger
	metricsRegistry *metrics.Registry
	stopCh          chan struct{}
	wg              sync.WaitGroup
	running         bool
	runningMu       sync.Mutex
}

// New creates a transport from a socket factory. The transport does not
// touch the network until Start.
func New(factory SocketFactory, config Config, logger logging.Logger) *Transport {
	if config.BindAddr == "" {
		config.BindAddr = "tcp://0.0.0.0:" + strconv.Itoa(config.Endpoint.Port)
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &Transport{
		config:          config,
		factory:         factory,
		peers:           make(map[string]DialSocket),
		bus:             stream.NewBus(256),
		logger:          logger.With(logging.Component("transport")),
		metricsRegistry: metrics.DefaultRegistry(),
		stopCh:          make(chan struct{}),
	}
}

// Endpoint returns the local endpoint
func (t *Transport) Endpoint() Endpoint {
	return t.config.Endpoint
}

// Start binds the listen socket and begins receiving
func (t *Transport) Start() error {
	t.runningMu.Lock()
	defer t.runningMu.Unlock()

	if t.running {
		return ErrAlreadyStarted
	}

	sock, err := t.factory.NewPullSocket()
	if err != nil {
		return fmt.Errorf("create listen socket: %w", err)
	}
	if err := sock.Listen(t.config.BindAddr); err != nil {
		sock.Close()
		return fmt.Errorf("bind %s: %w", t.config.BindAddr, err)
	}
	if err := sock.SetRecvDeadline(recvPoll); err != nil {
		sock.Close()
		return fmt.Errorf("set receive deadline: %w", err)
	}

	t.listenSock = sock
	t.running = true
	t.wg.Add(1)
	go t.recvLoop()

	t.logger.Info("Transport listening", logging.Address(t.config.BindAddr))
	return nil
}

// Stop closes the listen socket, all peer sockets and completes the
// incoming stream. No messages are delivered after Stop returns.
func (t *Transport) Stop() error {
	t.runningMu.Lock()
	defer t.runningMu.Unlock()

	if !t.running {
		return ErrNotStarted
	}

	close(t.stopCh)
	t.wg.Wait()
	t.listenSock.Close()

	t.peersMu.Lock()
	for addr, sock := range t.peers {
		sock.Close()
		delete(t.peers, addr)
	}
	t.peersMu.Unlock()

	t.bus.Complete()
	t.running = false

	t.logger.Info("Transport stopped")
	return nil
}

// Listen subscribes to the stream of incoming messages. Each value on the
// channel is an IncomingMessage.
func (t *Transport) Listen(ctx context.Context) *stream.Subscription {
	return t.bus.Subscribe(ctx)
}

// Send delivers one message to the destination dial address. A single
// attempt is made; failures are returned for the caller to log.
func (t *Transport) Send(addr string, msg Message) error {
	frame, err := encodeFrame(t.config.Endpoint, msg)
	if err != nil {
		return err
	}

	sock, err := t.peerSocket(addr)
	if err != nil {
		t.metricsRegistry.TransportSendErrors.Inc()
		return err
	}

	if err := sock.Send(frame); err != nil {
		t.metricsRegistry.TransportSendErrors.Inc()
		t.forgetPeer(addr)
		return fmt.Errorf("send to %s: %w", addr, err)
	}

	t.metricsRegistry.RecordSent(msg.Qualifier, len(frame))
	return nil
}

// SendToEndpoint delivers one message to a known endpoint
func (t *Transport) SendToEndpoint(ep Endpoint, msg Message) error {
	return t.Send(ep.Addr(), msg)
}

// AwaitFirst blocks until the first message carrying the given qualifier
// and correlation id arrives, the timeout elapses, or ctx is cancelled.
func (t *Transport) AwaitFirst(ctx context.Context, qualifier, correlationID string, timeout time.Duration) (IncomingMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sub := t.bus.Subscribe(ctx)
	defer sub.Unsubscribe()

	for {
		select {
		case value, ok := <-sub.Channel():
			if !ok {
				return IncomingMessage{}, ErrStopped
			}
			incoming, isMsg := value.(IncomingMessage)
			if !isMsg {
				continue
			}
			if incoming.Message.Qualifier == qualifier && incoming.Message.CorrelationID == correlationID {
				return incoming, nil
			}
		case <-ctx.Done():
			return IncomingMessage{}, ErrAwaitTimeout
		}
	}
}

// recvLoop reads frames until Stop
func (t *Transport) recvLoop() {
	defer t.wg.Done()

	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		frame, err := t.listenSock.Recv()
		if err != nil {
			continue // Deadline expired or socket closing
		}

		incoming, err := decodeFrame(frame)
		if err != nil {
			t.metricsRegistry.TransportDecodeErrors.Inc()
			t.logger.Warn("Dropped undecodable frame", logging.Error(err))
			continue
		}

		t.metricsRegistry.RecordReceived(incoming.Message.Qualifier, len(frame))
		t.bus.Publish(incoming)
	}
}

// peerSocket returns a cached dialed socket for addr, dialing on first use
func (t *Transport) peerSocket(addr string) (DialSocket, error) {
	t.peersMu.Lock()
	defer t.peersMu.Unlock()

	if sock, exists := t.peers[addr]; exists {
		return sock, nil
	}

	sock, err := t.factory.NewPushSocket()
	if err != nil {
		return nil, fmt.Errorf("create push socket: %w", err)
	}
	if err := sock.SetSendDeadline(t.config.SendTimeout); err != nil {
		sock.Close()
		return nil, fmt.Errorf("set send deadline: %w", err)
	}
	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	t.peers[addr] = sock
	return sock, nil
}

func (t *Transport) forgetPeer(addr string) {
	t.peersMu.Lock()
	defer t.peersMu.Unlock()
	if sock, exists := t.peers[addr]; exists {
		sock.Close()
		delete(t.peers, addr)
	}
}
