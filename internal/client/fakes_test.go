package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"chatr/internal/config"
	"chatr/internal/protocol"
)

type fakeTransport struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written []protocol.Envelope
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeTransport) Read() ([]byte, error) {
	select {
	case frame := <-f.in:
		return frame, nil
	case <-f.closed:
		return nil, errors.New("use of closed connection")
	}
}

func (f *fakeTransport) Write(frame []byte) error {
	select {
	case <-f.closed:
		return errors.New("write on closed connection")
	default:
	}
	env, err := protocol.Decode(frame)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.written = append(f.written, env)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

// push queues a server frame.
func (f *fakeTransport) push(event string, payload interface{}) {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		panic(err)
	}
	f.in <- frame
}

func (f *fakeTransport) sent() []protocol.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Envelope(nil), f.written...)
}

func (f *fakeTransport) sentEvents() []string {
	var events []string
	for _, env := range f.sent() {
		events = append(events, env.Event)
	}
	return events
}

// fakeDialer hands out transports in order, then fails.
type fakeDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
	urls       []string
}

func (d *fakeDialer) Dial(ctx context.Context, rawURL string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, rawURL)
	if len(d.transports) == 0 {
		return nil, errors.New("connection refused")
	}
	t := d.transports[0]
	d.transports = d.transports[1:]
	return t, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func testClientConfig(serverURL string) *config.ClientConfig {
	return &config.ClientConfig{
		ServerURL:         serverURL,
		ReconnectAttempts: 3,
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		DialTimeout:       time.Second,
	}
}

// stateLog records hook calls.
type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) all() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func (l *stateLog) count(want State) int {
	n := 0
	for _, s := range l.all() {
		if s == want {
			n++
		}
	}
	return n
}
