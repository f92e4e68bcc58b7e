package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chatr/internal/protocol"
)

// ErrSuperseded is returned by Open when a newer Open replaced it mid-fetch.
var ErrSuperseded = errors.New("conversation reopened before history loaded")

// HistoryFetcher loads a conversation ordered by timestamp ascending.
type HistoryFetcher interface {
	FetchConversation(ctx context.Context, userID, otherUserID string) ([]protocol.Message, error)
}

// Reconciler merges one history fetch with the live receive-message stream
// into a duplicate-free list for the open conversation.
type Reconciler struct {
	self    string
	fetcher HistoryFetcher

	mu         sync.Mutex
	generation uint64
	peer       string
	loaded     bool
	messages   []protocol.Message
	seen       map[string]struct{}
	pending    []protocol.Message
	onChange   func([]protocol.Message)
}

func NewReconciler(self string, fetcher HistoryFetcher) *Reconciler {
	return &Reconciler{self: self, fetcher: fetcher}
}

// OnChange fires with a snapshot after every change to the visible list.
func (r *Reconciler) OnChange(fn func([]protocol.Message)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Peer is the other side of the open conversation, empty when none is open.
func (r *Reconciler) Peer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peer
}

func (r *Reconciler) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Open detaches the current conversation and loads the one with peer. Live
// events for peer that arrive during the fetch are held and merged after it.
func (r *Reconciler) Open(ctx context.Context, peer string) error {
	if peer == "" {
		return errors.New("open conversation: peer id is required")
	}

	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.reset(peer)
	r.mu.Unlock()

	history, err := r.fetcher.FetchConversation(ctx, r.self, peer)

	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		r.reset("")
		r.mu.Unlock()
		return fmt.Errorf("open conversation with %s: %w", peer, err)
	}

	r.seen = make(map[string]struct{}, len(history)+len(r.pending))
	r.messages = make([]protocol.Message, 0, len(history)+len(r.pending))
	for _, m := range history {
		if _, dup := r.seen[m.ID]; dup {
			continue
		}
		r.seen[m.ID] = struct{}{}
		r.messages = append(r.messages, m)
	}
	for _, m := range r.pending {
		r.accept(m)
	}
	r.pending = nil
	r.loaded = true

	snapshot, fn := r.snapshot(), r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
	return nil
}

// Close detaches the open conversation. An in-flight Open is discarded.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.generation++
	r.reset("")
	r.mu.Unlock()
}

// HandleEvent offers a live message. It reports whether the visible list grew.
func (r *Reconciler) HandleEvent(m protocol.Message) bool {
	r.mu.Lock()
	if r.peer == "" || m.ID == "" || !m.Involves(r.self, r.peer) {
		r.mu.Unlock()
		return false
	}
	if !r.loaded {
		r.pending = append(r.pending, m)
		r.mu.Unlock()
		return false
	}
	if !r.accept(m) {
		r.mu.Unlock()
		return false
	}

	snapshot, fn := r.snapshot(), r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
	return true
}

// Messages returns a copy of the visible list.
func (r *Reconciler) Messages() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// callers hold mu
func (r *Reconciler) accept(m protocol.Message) bool {
	if _, dup := r.seen[m.ID]; dup {
		return false
	}
	r.seen[m.ID] = struct{}{}
	r.messages = append(r.messages, m)
	return true
}

func (r *Reconciler) reset(peer string) {
	r.peer = peer
	r.loaded = false
	r.messages = nil
	r.seen = nil
	r.pending = nil
}

func (r *Reconciler) snapshot() []protocol.Message {
	out := make([]protocol.Message, len(r.messages))
	copy(out, r.messages)
	return out
}
