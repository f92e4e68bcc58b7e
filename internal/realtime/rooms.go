package realtime

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chatr/internal/common"
)

const roomKeySeparator = ":"

// RoomKey is the canonical key of the unordered pair {a, b}.
func RoomKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, roomKeySeparator)
}

// ValidateRoomKey rejects keys that do not name two users.
func ValidateRoomKey(key string) error {
	parts := strings.Split(key, roomKeySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%w: room key %q must be two user ids joined by %q", common.ErrInvalidRequest, key, roomKeySeparator)
	}
	return nil
}

// RoomIncludes reports whether userID is one of the two ids in key.
func RoomIncludes(key, userID string) bool {
	a, b, ok := strings.Cut(key, roomKeySeparator)
	return ok && (a == userID || b == userID)
}

// Rooms tracks which peers joined which pair room.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]Peer
	joined  map[string]map[string]struct{}
	logger  *zap.Logger
}

func NewRooms(logger *zap.Logger) *Rooms {
	return &Rooms{
		members: make(map[string]map[string]Peer),
		joined:  make(map[string]map[string]struct{}),
		logger:  logger,
	}
}

// Join is idempotent.
func (r *Rooms) Join(peer Peer, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.members[key]
	if !ok {
		room = make(map[string]Peer)
		r.members[key] = room
	}
	room[peer.ID()] = peer

	keys, ok := r.joined[peer.ID()]
	if !ok {
		keys = make(map[string]struct{})
		r.joined[peer.ID()] = keys
	}
	keys[key] = struct{}{}
}

// Retain removes peer from every joined room that does not include userID and
// returns the keys it left.
func (r *Rooms) Retain(peer Peer, userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []string
	keys := r.joined[peer.ID()]
	for key := range keys {
		if RoomIncludes(key, userID) {
			continue
		}
		room := r.members[key]
		delete(room, peer.ID())
		if len(room) == 0 {
			delete(r.members, key)
		}
		delete(keys, key)
		left = append(left, key)
	}
	if len(keys) == 0 {
		delete(r.joined, peer.ID())
	}
	return left
}

// LeaveAll removes peer from every room it joined.
func (r *Rooms) LeaveAll(peer Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.joined[peer.ID()] {
		room := r.members[key]
		delete(room, peer.ID())
		if len(room) == 0 {
			delete(r.members, key)
		}
	}
	delete(r.joined, peer.ID())
}

func (r *Rooms) Members(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[key])
}

// Broadcast emits to every peer in the room and returns how many accepted it.
func (r *Rooms) Broadcast(key, event string, payload interface{}) int {
	return len(r.BroadcastExcept(key, event, payload, nil))
}

// BroadcastExcept emits to the room, skipping peer ids in skip, and returns
// the ids of the peers that accepted the event.
func (r *Rooms) BroadcastExcept(key, event string, payload interface{}, skip map[string]bool) []string {
	r.mu.RLock()
	targets := make([]Peer, 0, len(r.members[key]))
	for id, peer := range r.members[key] {
		if skip[id] {
			continue
		}
		targets = append(targets, peer)
	}
	r.mu.RUnlock()

	delivered := make([]string, 0, len(targets))
	for _, peer := range targets {
		if err := peer.Emit(event, payload); err != nil {
			r.logger.Warn("room delivery failed",
				zap.String("room", key),
				zap.String("peer", peer.ID()),
				zap.Error(err),
			)
			continue
		}
		delivered = append(delivered, peer.ID())
	}
	return delivered
}
