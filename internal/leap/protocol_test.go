package leap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// pipeStream wires a Protocol to in-memory pipes so tests can act as
// the bridge: read what the client wrote, and feed canned frames back.
type pipeStream struct {
	r *io.PipeReader // protocol reads from here
	w *io.PipeWriter // protocol writes to here

	serverR *io.PipeReader // test reads protocol's writes from here
	serverW *io.PipeWriter // test writes inbound frames here
}

func (s *pipeStream) Read(p []byte) (int, error)  { return s.r.Read(p) }
func (s *pipeStream) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *pipeStream) Close() error {
	s.w.Close()
	s.serverW.Close()
	return nil
}

func newPipeProtocol(t *testing.T) (*Protocol, *pipeStream) {
	t.Helper()
	inR, inW := io.Pipe()   // test -> protocol
	outR, outW := io.Pipe() // protocol -> test

	ps := &pipeStream{r: inR, w: outW, serverR: outR, serverW: inW}
	p := NewProtocol(ps, nil)
	return p, ps
}

// readServerFrame reads one CRLF-terminated frame the protocol wrote.
func readServerFrame(t *testing.T, ps *pipeStream) map[string]any {
	t.Helper()
	buf := make([]byte, 0, 256)
	tmp := make([]byte, 1)
	for {
		n, err := ps.serverR.Read(tmp)
		if err != nil {
			t.Fatalf("read server frame: %v", err)
		}
		if n == 0 {
			continue
		}
		buf = append(buf, tmp[0])
		if strings.HasSuffix(string(buf), "\r\n") {
			break
		}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSuffix(string(buf), "\r\n")), &out); err != nil {
		t.Fatalf("unmarshal server frame: %v", err)
	}
	return out
}

func sendInboundFrame(t *testing.T, ps *pipeStream, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal inbound frame: %v", err)
	}
	if _, err := ps.serverW.Write(append(data, '\r', '\n')); err != nil {
		t.Fatalf("write inbound frame: %v", err)
	}
}

func TestRequest_TagUniqueness(t *testing.T) {
	p, ps := newPipeProtocol(t)
	go p.Run(context.Background())
	defer p.Close()

	const n = 20
	tags := make(chan string, n)
	var wg sync.WaitGroup
	// One reader plays the bridge: concurrent readers of the same pipe
	// would split frames between them.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			frame := readServerFrame(t, ps)
			header := frame["Header"].(map[string]any)
			tag := header["ClientTag"].(string)
			tags <- tag
			sendInboundFrame(t, ps, map[string]any{
				"CommuniqueType": "ReadResponse",
				"Header": map[string]any{
					"ClientTag":  tag,
					"StatusCode": "200 OK",
				},
			})
		}
	}()

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Request(context.Background(), "ReadRequest", fmt.Sprintf("/device/%d", i), nil)
			if err != nil {
				t.Errorf("request %d failed: %v", i, err)
			}
		}()
	}

	wg.Wait()
	close(tags)

	seen := make(map[string]bool)
	for tag := range tags {
		if seen[tag] {
			t.Fatalf("duplicate tag observed: %s", tag)
		}
		seen[tag] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d unique tags, got %d", n, len(seen))
	}
}

func TestRequest_ResolvesMatchingTagOnly(t *testing.T) {
	p, ps := newPipeProtocol(t)
	go p.Run(context.Background())
	defer p.Close()

	resultCh := make(chan error, 1)
	go func() {
		_, err := p.Request(context.Background(), "ReadRequest", "/device", nil)
		resultCh <- err
	}()

	frame := readServerFrame(t, ps)
	realTag := frame["Header"].(map[string]any)["ClientTag"].(string)

	// An unrelated tag should not resolve the waiter.
	sendInboundFrame(t, ps, map[string]any{
		"CommuniqueType": "ReadResponse",
		"Header":         map[string]any{"ClientTag": "unrelated-tag", "StatusCode": "200 OK"},
	})

	select {
	case err := <-resultCh:
		t.Fatalf("request resolved by unrelated tag, err=%v", err)
	case <-time.After(100 * time.Millisecond):
	}

	sendInboundFrame(t, ps, map[string]any{
		"CommuniqueType": "ReadResponse",
		"Header":         map[string]any{"ClientTag": realTag, "StatusCode": "200 OK"},
	})

	select {
	case err := <-resultCh:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for matching tag to resolve")
	}
}

func TestUnsolicited_DeliveredToAllHandlersInOrder(t *testing.T) {
	p, ps := newPipeProtocol(t)
	go p.Run(context.Background())
	defer p.Close()

	var mu sync.Mutex
	var order []int

	p.SubscribeUnsolicited(func(Response) {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
	})
	p.SubscribeUnsolicited(func(Response) {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		panic("boom") // must not prevent delivery of this event to the next handler
	})
	p.SubscribeUnsolicited(func(Response) {
		mu.Lock()
		order = append(order, 3)
		mu.Unlock()
	})

	sendInboundFrame(t, ps, map[string]any{"CommuniqueType": "ReadResponse"})

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		got := len(order)
		mu.Unlock()
		if got >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("handlers not all invoked, order=%v", order)
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("handlers invoked out of order: %v", order)
	}
}

func TestSubscribe_PersistsAcrossMultipleDeliveries(t *testing.T) {
	p, ps := newPipeProtocol(t)
	go p.Run(context.Background())
	defer p.Close()

	doneCh := make(chan struct{})
	go func() {
		_, _, err := p.Subscribe(context.Background(), "/occupancygroup/status", func(Response) {}, nil, "")
		if err != nil {
			t.Errorf("subscribe failed: %v", err)
		}
		close(doneCh)
	}()

	frame := readServerFrame(t, ps)
	tag := frame["Header"].(map[string]any)["ClientTag"].(string)

	sendInboundFrame(t, ps, map[string]any{
		"CommuniqueType": "SubscribeResponse",
		"Header":         map[string]any{"ClientTag": tag, "StatusCode": "200 OK"},
	})
	<-doneCh

	var count int
	var mu sync.Mutex
	p.mu.Lock()
	p.tagged[tag] = func(Response) {
		mu.Lock()
		count++
		mu.Unlock()
	}
	p.mu.Unlock()

	for i := 0; i < 3; i++ {
		sendInboundFrame(t, ps, map[string]any{
			"CommuniqueType": "ReadResponse",
			"Header":         map[string]any{"ClientTag": tag},
		})
	}

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		got := count
		mu.Unlock()
		if got == 3 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("expected 3 deliveries, got %d", got)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestClose_FailsOutstandingRequests(t *testing.T) {
	p, ps := newPipeProtocol(t)
	go p.Run(context.Background())

	resultCh := make(chan error, 1)
	go func() {
		_, err := p.Request(context.Background(), "ReadRequest", "/device", nil)
		resultCh <- err
	}()

	readServerFrame(t, ps)
	p.Close()

	select {
	case err := <-resultCh:
		if err != ErrDisconnected {
			t.Fatalf("expected ErrDisconnected, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close to fail outstanding request")
	}
}

func TestIDFromHref(t *testing.T) {
	cases := []struct {
		href    string
		want    string
		wantErr bool
	}{
		{"/device/2", "2", false},
		{"/zone/1/status", "1", false},
		{"/button/101", "101", false},
		{"not-a-href", "", true},
	}
	for _, c := range cases {
		got, err := IDFromHref(c.href)
		if c.wantErr {
			if err == nil {
				t.Errorf("IDFromHref(%q): expected error", c.href)
			}
			continue
		}
		if err != nil {
			t.Errorf("IDFromHref(%q): unexpected error %v", c.href, err)
		}
		if got != c.want {
			t.Errorf("IDFromHref(%q) = %q, want %q", c.href, got, c.want)
		}
	}
}

func TestParseStatusCode(t *testing.T) {
	cases := []struct {
		in   string
		code int
		ok   bool
	}{
		{"200 OK", 200, true},
		{"201 Created", 201, true},
		{"404 Not Found", 404, false},
		{"garbage", 0, false},
	}
	for _, c := range cases {
		sc := ParseStatusCode(c.in)
		if sc.Code != c.code {
			t.Errorf("ParseStatusCode(%q).Code = %d, want %d", c.in, sc.Code, c.code)
		}
		if sc.IsSuccessful() != c.ok {
			t.Errorf("ParseStatusCode(%q).IsSuccessful() = %v, want %v", c.in, sc.IsSuccessful(), c.ok)
		}
	}
}
