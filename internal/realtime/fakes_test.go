package realtime

import (
	"sync"
)

type emitted struct {
	Event   string
	Payload interface{}
}

type fakePeer struct {
	id      string
	err     error
	mu      sync.Mutex
	events  []emitted
	userID  string
	subject string
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Emit(event string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, emitted{Event: event, Payload: payload})
	return nil
}

func (p *fakePeer) Events() []emitted {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]emitted(nil), p.events...)
}

func (p *fakePeer) UserID() string { return p.userID }

func (p *fakePeer) SetUserID(userID string) { p.userID = userID }

func (p *fakePeer) TokenSubject() string { return p.subject }
