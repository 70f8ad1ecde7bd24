package session

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nugget/leapctl/internal/leap"
)

// waitFor polls cond until it returns true or timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for condition: %s", msg)
}

// fakeConnector hands out net.Pipe server halves to the supervisor and
// keeps the client halves so a test can act as the bridge.
type fakeConnector struct {
	fail     atomic.Int32 // number of remaining Connect calls that should fail
	attempts atomic.Int32
	peers    chan net.Conn
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{peers: make(chan net.Conn, 16)}
}

func (f *fakeConnector) Connect(ctx context.Context) (io.ReadWriteCloser, error) {
	f.attempts.Add(1)
	if f.fail.Load() > 0 {
		f.fail.Add(-1)
		return nil, errors.New("simulated dial failure")
	}
	client, server := net.Pipe()
	f.peers <- server
	return client, nil
}

func noopOnConnect(ctx context.Context, p *leap.Protocol) error { return nil }

func TestSupervisor_ConnectSucceeds(t *testing.T) {
	connector := newFakeConnector()
	s := NewSupervisor(Options{
		Connector:      connector,
		OnConnect:      noopOnConnect,
		ReconnectDelay: 5 * time.Millisecond,
	})
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !s.IsConnected() {
		t.Fatal("expected IsConnected() == true")
	}
}

func TestSupervisor_RetriesAfterDialFailure(t *testing.T) {
	connector := newFakeConnector()
	connector.fail.Store(2)

	s := NewSupervisor(Options{
		Connector:      connector,
		OnConnect:      noopOnConnect,
		ReconnectDelay: 5 * time.Millisecond,
	})
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if connector.attempts.Load() < 3 {
		t.Fatalf("expected at least 3 connect attempts, got %d", connector.attempts.Load())
	}
}

func TestSupervisor_BootstrapFailureTriggersReconnect(t *testing.T) {
	connector := newFakeConnector()

	var onConnectCalls atomic.Int32
	onConnect := func(ctx context.Context, p *leap.Protocol) error {
		n := onConnectCalls.Add(1)
		if n == 1 {
			return errors.New("simulated bootstrap failure")
		}
		return nil
	}

	s := NewSupervisor(Options{
		Connector:      connector,
		OnConnect:      onConnect,
		ReconnectDelay: 5 * time.Millisecond,
	})
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// The first attempt's bootstrap fails; Connect should still report
	// that failure to the caller since it is the very first cycle.
	err := s.Connect(ctx)
	if err == nil {
		t.Fatal("expected first Connect to report the bootstrap failure")
	}

	// But the supervisor keeps retrying on its own afterward.
	waitFor(t, time.Second, s.IsConnected, "eventually connected after retry")
}

func TestSupervisor_DisconnectOnReadLoopEOFReconnects(t *testing.T) {
	connector := newFakeConnector()
	s := NewSupervisor(Options{
		Connector:      connector,
		OnConnect:      noopOnConnect,
		ReconnectDelay: 5 * time.Millisecond,
	})
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Close the bridge side of the first pipe to force read-loop EOF.
	first := <-connector.peers
	first.Close()

	waitFor(t, time.Second, func() bool {
		return connector.attempts.Load() >= 2
	}, "supervisor reconnects after EOF")

	waitFor(t, time.Second, s.IsConnected, "reconnected and connected again")
}

func TestSupervisor_CloseStopsMonitor(t *testing.T) {
	connector := newFakeConnector()
	s := NewSupervisor(Options{
		Connector:      connector,
		OnConnect:      noopOnConnect,
		ReconnectDelay: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return within timeout")
	}

	if s.IsConnected() {
		t.Fatal("expected not connected after Close")
	}
}
