package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nugget/leapctl/internal/leap"
)

// Default timings from §4.3. Fixed, not exponential: a bridge is a
// local device, and backing off an already-local reconnect buys
// nothing but delay.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultRequestTimeout = 5 * time.Second
	DefaultPingInterval   = 60 * time.Second
	DefaultReconnectDelay = 2 * time.Second
)

// State is the supervisor's coarse connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateBootstrapping
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateBootstrapping:
		return "bootstrapping"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// OnConnectFunc runs once per successful connection, after the
// Protocol exists but before the supervisor reports Connected. It is
// where callers register unsolicited/tagged-subscription handlers and
// run the topology bootstrap sequence. Returning an error aborts this
// connection attempt and triggers a reconnect.
type OnConnectFunc func(ctx context.Context, p *leap.Protocol) error

// Supervisor drives one bridge session: connect, bootstrap, ping,
// reconnect-on-failure, matching the state diagram in §4.3. It owns
// exactly one live *leap.Protocol at a time.
type Supervisor struct {
	connector Connector
	logger    *slog.Logger
	onConnect OnConnectFunc

	connectTimeout time.Duration
	requestTimeout time.Duration
	pingInterval   time.Duration
	reconnectDelay time.Duration

	mu    sync.Mutex
	state State
	proto *leap.Protocol

	firstLoginOnce sync.Once
	firstLoginCh   chan error

	cancel    context.CancelFunc
	stopped   chan struct{}
	startOnce sync.Once
}

// Options configures a Supervisor. Zero-valued duration fields fall
// back to the spec's fixed defaults.
type Options struct {
	Connector      Connector
	Logger         *slog.Logger
	OnConnect      OnConnectFunc
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	PingInterval   time.Duration
	ReconnectDelay time.Duration
}

// NewSupervisor builds a Supervisor from opts. It does not connect;
// call Start to begin the monitor loop.
func NewSupervisor(opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supervisor{
		connector:      opts.Connector,
		logger:         logger,
		onConnect:      opts.OnConnect,
		connectTimeout: orDefault(opts.ConnectTimeout, DefaultConnectTimeout),
		requestTimeout: orDefault(opts.RequestTimeout, DefaultRequestTimeout),
		pingInterval:   orDefault(opts.PingInterval, DefaultPingInterval),
		reconnectDelay: orDefault(opts.ReconnectDelay, DefaultReconnectDelay),
		firstLoginCh:   make(chan error, 1),
		stopped:        make(chan struct{}),
	}
	return s
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// Start launches the monitor loop in the background. Calling Start
// more than once is a no-op.
func (s *Supervisor) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		go s.monitor(ctx)
	})
}

// Connect starts the monitor if needed and blocks until the first
// login completes, the context is cancelled, or the connect timeout
// for the first attempt sequence expires via ctx.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.Start(context.WithoutCancel(ctx))
	select {
	case err := <-s.firstLoginCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return leap.ErrDisconnected
	}
}

// Close cancels the monitor, closes the current protocol if any, and
// waits for the monitor goroutine to exit. Idempotent.
func (s *Supervisor) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.stopped
	return nil
}

// State reports the current coarse connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether a live protocol is available for calls.
func (s *Supervisor) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateConnected && s.proto != nil
}

// Protocol returns the current live protocol, or false if the session
// is not currently connected. Façade calls should fetch it fresh for
// every operation rather than caching it across reconnects.
func (s *Supervisor) Protocol() (*leap.Protocol, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.proto == nil {
		return nil, false
	}
	return s.proto, true
}

// RequestTimeout is the façade's fixed per-request budget.
func (s *Supervisor) RequestTimeout() time.Duration {
	return s.requestTimeout
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Supervisor) setProtocol(p *leap.Protocol) {
	s.mu.Lock()
	s.proto = p
	s.mu.Unlock()
}

// monitor is the reconnect loop: Disconnected -> Connecting ->
// Bootstrapping -> Connected, looping back to Connecting on any
// failure, with a fixed delay between attempts.
func (s *Supervisor) monitor(ctx context.Context) {
	defer close(s.stopped)

	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.attemptOnce(ctx); err != nil {
			s.logger.Warn("leap session attempt failed, will retry", "error", err, "delay", s.reconnectDelay)
		}

		s.setState(StateDisconnected)
		s.setProtocol(nil)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

// attemptOnce runs one full connect/bootstrap/connected/run cycle. It
// returns an error when the dial fails, bootstrap fails, or the
// connection drops, and nil on a clean shutdown (ctx cancelled while
// connected). Only a bootstrap failure or success is reported to the
// first Connect caller; a failed dial is simply retried.
func (s *Supervisor) attemptOnce(ctx context.Context) error {
	s.setState(StateConnecting)

	connectCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	stream, err := s.connector.Connect(connectCtx)
	cancel()
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			s.logger.Error("leap connector misconfigured, will keep retrying on the same cadence", "error", err)
		}
		return fmt.Errorf("connect: %w", err)
	}

	proto := leap.NewProtocol(stream, s.logger)
	s.setState(StateBootstrapping)

	runDone := make(chan error, 1)
	go func() { runDone <- proto.Run(ctx) }()

	if s.onConnect != nil {
		if err := s.onConnect(ctx, proto); err != nil {
			proto.Close()
			<-runDone
			err = fmt.Errorf("bootstrap: %w", err)
			s.reportFirstLoginResult(err)
			return err
		}
	}

	s.setProtocol(proto)
	s.setState(StateConnected)
	s.logger.Info("leap session connected")
	s.reportFirstLoginResult(nil)

	pingCtx, stopPing := context.WithCancel(ctx)
	pingDone := make(chan struct{})
	go func() {
		defer close(pingDone)
		s.pingLoop(pingCtx, proto)
	}()

	select {
	case err := <-runDone:
		stopPing()
		<-pingDone
		if err != nil {
			return fmt.Errorf("read loop: %w", err)
		}
		return fmt.Errorf("read loop: %w", leap.ErrDisconnected)
	case <-ctx.Done():
		stopPing()
		<-pingDone
		proto.Close()
		<-runDone
		return nil
	}
}

// pingLoop issues a ping at pingInterval and forces the protocol
// closed (triggering reconnect via the read loop unblocking) if a
// ping ever times out or errors, per §4.3.
func (s *Supervisor) pingLoop(ctx context.Context, proto *leap.Protocol) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
			_, err := proto.Request(reqCtx, "ReadRequest", "/server/1/status/ping", nil)
			cancel()
			if err != nil {
				s.logger.Warn("leap ping failed, forcing reconnect", "error", err)
				proto.Close()
				return
			}
		}
	}
}

// reportFirstLoginResult delivers err (nil on success) to the first
// Connect() caller exactly once. Subsequent reconnect cycles do not
// gate application calls, matching the "login-completed promise
// created anew each cycle" behaviour in §4.3 — only the very first
// such promise is observable from the outside, through Connect.
func (s *Supervisor) reportFirstLoginResult(err error) {
	s.firstLoginOnce.Do(func() {
		s.firstLoginCh <- err
	})
}
