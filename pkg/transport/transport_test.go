package transport

import (
	"context"
	"testing"
	"time"

	"github.com/dd0wney/cluso-cluster/pkg/logging"
)

func newTestTransport(t *testing.T, network *ChanNetwork, port int) *Transport {
	t.Helper()
	ep := NewEndpoint("127.0.0.1", port)
	tr := New(network.Factory(), Config{Endpoint: ep}, logging.NewNopLogger())
	if err := tr.Start(); err != nil {
		t.Fatalf("Failed to start transport: %v", err)
	}
	t.Cleanup(func() { tr.Stop() })
	return tr
}

// TestTransport_SendReceive tests a frame round trip between two transports
func TestTransport_SendReceive(t *testing.T) {
	network := NewChanNetwork()
	a := newTestTransport(t, network, 7001)
	b := newTestTransport(t, network, 7002)

	sub := b.Listen(context.Background())

	msg := Message{
		Qualifier:     "test/ping",
		CorrelationID: "42",
		Data:          []byte(`{"n":1}`),
	}
	if err := a.SendToEndpoint(b.Endpoint(), msg); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case value := <-sub.Channel():
		incoming := value.(IncomingMessage)
		if incoming.Message.Qualifier != "test/ping" {
			t.Errorf("Expected qualifier test/ping, got %s", incoming.Message.Qualifier)
		}
		if incoming.Message.CorrelationID != "42" {
			t.Errorf("Expected correlation id 42, got %s", incoming.Message.CorrelationID)
		}
		if !incoming.From.Equal(a.Endpoint()) {
			t.Errorf("Expected sender %s, got %s", a.Endpoint(), incoming.From)
		}
		if string(incoming.Message.Data) != `{"n":1}` {
			t.Errorf("Unexpected payload: %s", incoming.Message.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for message")
	}
}

// TestTransport_AwaitFirst tests correlation-id matching
func TestTransport_AwaitFirst(t *testing.T) {
	network := NewChanNetwork()
	a := newTestTransport(t, network, 7011)
	b := newTestTransport(t, network, 7012)

	done := make(chan error, 1)
	go func() {
		// Unrelated message first, then the match
		b.SendToEndpoint(a.Endpoint(), Message{Qualifier: "test/ack", CorrelationID: "other"})
		b.SendToEndpoint(a.Endpoint(), Message{Qualifier: "test/ack", CorrelationID: "7"})
		done <- nil
	}()

	incoming, err := a.AwaitFirst(context.Background(), "test/ack", "7", 2*time.Second)
	if err != nil {
		t.Fatalf("AwaitFirst failed: %v", err)
	}
	if incoming.Message.CorrelationID != "7" {
		t.Errorf("Expected correlation id 7, got %s", incoming.Message.CorrelationID)
	}
	<-done
}

// TestTransport_AwaitFirstTimeout tests that a missing response times out
func TestTransport_AwaitFirstTimeout(t *testing.T) {
	network := NewChanNetwork()
	a := newTestTransport(t, network, 7021)

	start := time.Now()
	_, err := a.AwaitFirst(context.Background(), "test/ack", "never", 50*time.Millisecond)
	if err != ErrAwaitTimeout {
		t.Fatalf("Expected ErrAwaitTimeout, got %v", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("AwaitFirst returned before the timeout")
	}
}

// TestTransport_SendToUnknownAddress tests single-attempt failure reporting
func TestTransport_SendToUnknownAddress(t *testing.T) {
	network := NewChanNetwork()
	a := newTestTransport(t, network, 7031)

	err := a.Send("tcp://127.0.0.1:9999", Message{Qualifier: "test/ping"})
	if err == nil {
		t.Fatal("Expected error sending to address with no listener")
	}
}

// TestCodec_RoundTrip tests frame encoding and decoding
func TestCodec_RoundTrip(t *testing.T) {
	from := NewEndpoint("10.0.0.1", 7946)
	msg := Message{
		Qualifier:     "io.servicefabric.cluster/membership/sync",
		CorrelationID: "13",
		Data:          []byte(`{"members":[]}`),
	}

	frame, err := encodeFrame(from, msg)
	if err != nil {
		t.Fatalf("encodeFrame failed: %v", err)
	}

	decoded, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("decodeFrame failed: %v", err)
	}

	if !decoded.From.Equal(from) {
		t.Errorf("Sender mismatch: %s != %s", decoded.From, from)
	}
	if decoded.Message.Qualifier != msg.Qualifier {
		t.Errorf("Qualifier mismatch: %s", decoded.Message.Qualifier)
	}
	if decoded.Message.CorrelationID != "13" {
		t.Errorf("Correlation id mismatch: %s", decoded.Message.CorrelationID)
	}
	if string(decoded.Message.Data) != `{"members":[]}` {
		t.Errorf("Payload mismatch: %s", decoded.Message.Data)
	}
}

// TestDecodeFrame_Garbage tests that junk frames fail to decode
func TestDecodeFrame_Garbage(t *testing.T) {
	if _, err := decodeFrame([]byte("not a frame")); err == nil {
		t.Error("Expected error decoding garbage frame")
	}
}

// TestEndpoint_ParseAddr tests seed address parsing
func TestEndpoint_ParseAddr(t *testing.T) {
	host, port, err := ParseAddr("10.1.2.3:7946")
	if err != nil {
		t.Fatalf("ParseAddr failed: %v", err)
	}
	if host != "10.1.2.3" || port != 7946 {
		t.Errorf("Unexpected parse result: %s:%d", host, port)
	}

	if _, _, err := ParseAddr("no-port"); err == nil {
		t.Error("Expected error for address without port")
	}
	if _, _, err := ParseAddr("host:notaport"); err == nil {
		t.Error("Expected error for non-numeric port")
	}
}

// TestEndpoint_Equality tests that identity is by id, not address
func TestEndpoint_Equality(t *testing.T) {
	e1 := NewEndpoint("10.0.0.1", 7946)
	e2 := e1
	e2.Host = "10.0.0.2"

	if !e1.Equal(e2) {
		t.Error("Endpoints with the same id should be equal")
	}

	e3 := NewEndpoint("10.0.0.1", 7946)
	if e1.Equal(e3) {
		t.Error("Endpoints with different ids should not be equal")
	}
}
