// Package realtime carries live message delivery: the connection registry,
// pair rooms, the message relay and the websocket peers.
package realtime

import (
	"sort"
	"sync"
)

// Peer is a live connection that can receive events.
type Peer interface {
	ID() string
	Emit(event string, payload interface{}) error
}

// Registry maps a user id to that user's most recent live peer.
type Registry interface {
	Register(userID string, peer Peer)
	Unregister(peer Peer) (userID string, removed bool)
	Lookup(userID string) (Peer, bool)
	Online() []string
}

type registry struct {
	mu     sync.RWMutex
	byUser map[string]Peer
	byPeer map[string]string
}

func NewRegistry() Registry {
	return &registry{
		byUser: make(map[string]Peer),
		byPeer: make(map[string]string),
	}
}

// Register binds peer to userID, last write wins. A peer that identified as
// someone else before loses that binding.
func (r *registry) Register(userID string, peer Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byPeer[peer.ID()]; ok && prev != userID {
		if cur, ok := r.byUser[prev]; ok && cur.ID() == peer.ID() {
			delete(r.byUser, prev)
		}
	}
	if old, ok := r.byUser[userID]; ok && old.ID() != peer.ID() {
		delete(r.byPeer, old.ID())
	}

	r.byUser[userID] = peer
	r.byPeer[peer.ID()] = userID
}

// Unregister drops the binding held by peer. A newer peer registered for the
// same user is left alone.
func (r *registry) Unregister(peer Peer) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byPeer[peer.ID()]
	if !ok {
		return "", false
	}
	delete(r.byPeer, peer.ID())

	if cur, ok := r.byUser[userID]; ok && cur.ID() == peer.ID() {
		delete(r.byUser, userID)
		return userID, true
	}
	return userID, false
}

func (r *registry) Lookup(userID string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peer, ok := r.byUser[userID]
	return peer, ok
}

func (r *registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
