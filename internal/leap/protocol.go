package leap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// UnsolicitedFunc handles an untagged inbound frame.
type UnsolicitedFunc func(Response)

// SubscriptionFunc handles a frame delivered to a tagged subscription.
type SubscriptionFunc func(Response)

// UnsolicitedHandle identifies a registered unsolicited handler so it
// can later be removed with UnsubscribeUnsolicited.
type UnsolicitedHandle uint64

// unsolicitedEntry pairs a handle with its callback so registration
// order is preserved while still allowing O(1) removal by handle.
type unsolicitedEntry struct {
	handle UnsolicitedHandle
	fn     UnsolicitedFunc
}

// Protocol multiplexes concurrent logical requests over a single
// bidirectional framed stream. One Protocol owns exactly one stream
// for its lifetime; callers get a fresh Protocol per connection.
type Protocol struct {
	logger *slog.Logger
	stream io.Closer
	reader *frameReader
	writer *frameWriter

	mu          sync.Mutex
	inFlight    map[string]chan Response
	tagged      map[string]SubscriptionFunc
	unsolicited []unsolicitedEntry
	nextHandle  UnsolicitedHandle
	closed      bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewProtocol wraps stream with LEAP request/response multiplexing.
// stream is read and written from this point on exclusively through
// the returned Protocol.
func NewProtocol(stream io.ReadWriteCloser, logger *slog.Logger) *Protocol {
	if logger == nil {
		logger = slog.Default()
	}
	return &Protocol{
		logger:   logger,
		stream:   stream,
		reader:   newFrameReader(stream),
		writer:   newFrameWriter(stream),
		inFlight: make(map[string]chan Response),
		tagged:   make(map[string]SubscriptionFunc),
		done:     make(chan struct{}),
	}
}

// Request sends communiqueType/url/body with a fresh tag and waits for
// the matching response. The in-flight table is populated before the
// frame is written, so no response can be lost to a race between send
// and the read loop observing it.
func (p *Protocol) Request(ctx context.Context, communiqueType, url string, body any) (Response, error) {
	return p.requestWithTag(ctx, communiqueType, url, body, uuid.NewString())
}

func (p *Protocol) requestWithTag(ctx context.Context, communiqueType, url string, body any, tag string) (Response, error) {
	ch := make(chan Response, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Response{}, ErrDisconnected
	}
	p.inFlight[tag] = ch
	p.mu.Unlock()

	cleanup := func() {
		p.mu.Lock()
		delete(p.inFlight, tag)
		p.mu.Unlock()
	}

	frame, err := buildRequestFrame(communiqueType, tag, url, body)
	if err != nil {
		cleanup()
		return Response{}, fmt.Errorf("leap: encode request: %w", err)
	}

	p.logger.Debug("leap sending frame", "tag", tag, "communique_type", communiqueType, "url", url)

	if err := p.writer.writeFrame(frame); err != nil {
		cleanup()
		return Response{}, fmt.Errorf("leap: write request: %w", err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		cleanup()
		return Response{}, ctx.Err()
	case <-p.done:
		cleanup()
		return Response{}, ErrDisconnected
	}
}

// Subscribe behaves like Request, except that on a successful status
// (200-range) the callback is registered under the request's tag.
// Later inbound frames carrying that tag are delivered to callback
// instead of resolving a waiter. It returns the initial response and
// the tag, which callers may retain for bookkeeping (there is no
// unsubscribe for tagged subscriptions; they live for the session).
func (p *Protocol) Subscribe(ctx context.Context, url string, callback SubscriptionFunc, body any, communiqueType string) (Response, string, error) {
	if callback == nil {
		return Response{}, "", fmt.Errorf("leap: subscribe callback must not be nil")
	}
	if communiqueType == "" {
		communiqueType = "SubscribeRequest"
	}

	tag := uuid.NewString()
	resp, err := p.requestWithTag(ctx, communiqueType, url, body, tag)
	if err != nil {
		return Response{}, "", err
	}

	if resp.Header.StatusCode != nil && resp.Header.StatusCode.IsSuccessful() {
		p.mu.Lock()
		if !p.closed {
			p.tagged[tag] = callback
			p.logger.Debug("leap subscribed", "url", url, "tag", tag)
		}
		p.mu.Unlock()
	}

	return resp, tag, nil
}

// SubscribeUnsolicited registers callback to receive every untagged
// inbound frame, in registration order relative to other unsolicited
// handlers.
func (p *Protocol) SubscribeUnsolicited(callback UnsolicitedFunc) UnsolicitedHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextHandle++
	h := p.nextHandle
	p.unsolicited = append(p.unsolicited, unsolicitedEntry{handle: h, fn: callback})
	return h
}

// UnsubscribeUnsolicited removes a handler registered with
// SubscribeUnsolicited. A removal of an unknown handle is a no-op.
func (p *Protocol) UnsubscribeUnsolicited(handle UnsolicitedHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range p.unsolicited {
		if e.handle == handle {
			p.unsolicited = append(p.unsolicited[:i], p.unsolicited[i+1:]...)
			return
		}
	}
}

// Run is the read loop. It blocks until the stream reaches EOF, a
// frame fails to parse, or the protocol is closed. A clean EOF
// returns nil; anything else returns the triggering error. Run always
// closes the protocol before returning, so callers do not need to
// call Close themselves after Run exits (though Close remains safe
// and idempotent to call concurrently, e.g. to force an early exit).
func (p *Protocol) Run(ctx context.Context) error {
	defer p.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := p.reader.readFrame()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("leap: read frame: %w", err)
		}
		if len(frame) == 0 {
			continue
		}

		resp, tag, err := parseResponse(frame)
		if err != nil {
			return err
		}

		p.route(tag, resp)
	}
}

// route delivers one parsed response to the correct destination per
// the rules in §4.2 of the protocol spec: a pending waiter first, a
// tagged subscription second, an unexpected-but-tagged frame is
// logged and discarded, and an untagged frame fans out to every
// unsolicited handler in registration order.
func (p *Protocol) route(tag string, resp Response) {
	if tag != "" {
		p.mu.Lock()
		if ch, ok := p.inFlight[tag]; ok {
			delete(p.inFlight, tag)
			p.mu.Unlock()
			ch <- resp
			return
		}
		sub, ok := p.tagged[tag]
		p.mu.Unlock()

		if ok {
			sub(resp)
			return
		}

		p.logger.Error("leap response for unknown tag", "tag", tag)
		return
	}

	p.logger.Debug("leap unsolicited frame", "communique_type", resp.CommuniqueType, "message_body_type", resp.Header.MessageBodyType)

	p.mu.Lock()
	handlers := make([]UnsolicitedFunc, len(p.unsolicited))
	for i, e := range p.unsolicited {
		handlers[i] = e.fn
	}
	p.mu.Unlock()

	for _, h := range handlers {
		p.safeCall(h, resp)
	}
}

// safeCall invokes an unsolicited handler, recovering from a panic so
// one misbehaving subscriber cannot halt event delivery to the rest.
func (p *Protocol) safeCall(h UnsolicitedFunc, resp Response) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("leap unsolicited handler panicked", "panic", r)
		}
	}()
	h(resp)
}

// Close disconnects the stream and fails every outstanding request
// with ErrDisconnected. It is idempotent and safe to call from any
// goroutine, including concurrently with Run.
func (p *Protocol) Close() error {
	var closeErr error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.inFlight = make(map[string]chan Response)
		p.tagged = make(map[string]SubscriptionFunc)
		p.mu.Unlock()

		// Every request/subscribe call still blocked in its select also
		// waits on p.done, so closing it (rather than the per-tag
		// channels) is what actually wakes them with ErrDisconnected.
		close(p.done)
		closeErr = p.stream.Close()
	})
	return closeErr
}
