package client

import (
	"fmt"
	"time"
)

// Phase is the coarse position of a Session in its lifecycle.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseReconnecting
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseReconnecting:
		return "reconnecting"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a value; every transition below returns a new one. Attempt is the
// reconnect attempt in progress and is only meaningful while Reconnecting or
// Failed.
type State struct {
	Phase      Phase
	Identified bool
	Attempt    int
}

func (s State) String() string {
	switch s.Phase {
	case PhaseConnected:
		return fmt.Sprintf("connected(identified=%t)", s.Identified)
	case PhaseReconnecting:
		return fmt.Sprintf("reconnecting(attempt=%d)", s.Attempt)
	default:
		return s.Phase.String()
	}
}

// Ready reports whether live sends will reach the server as this user.
func (s State) Ready() bool {
	return s.Phase == PhaseConnected && s.Identified
}

// Connect starts a fresh run. Failed is left only through here.
func (s State) Connect() State {
	if s.Phase == PhaseDisconnected || s.Phase == PhaseFailed {
		return State{Phase: PhaseConnecting}
	}
	return s
}

// Established enters Connected(identified=false) and clears the retry count.
func (s State) Established() State {
	if s.Phase == PhaseConnecting || s.Phase == PhaseReconnecting {
		return State{Phase: PhaseConnected}
	}
	return s
}

func (s State) Identify() State {
	if s.Phase == PhaseConnected {
		return State{Phase: PhaseConnected, Identified: true}
	}
	return s
}

// TransportError moves to the next reconnect attempt, or to Failed once
// maxAttempts have been used.
func (s State) TransportError(maxAttempts int) State {
	switch s.Phase {
	case PhaseConnecting, PhaseConnected, PhaseReconnecting:
	default:
		return s
	}

	next := s.Attempt + 1
	if s.Phase != PhaseReconnecting {
		next = 1
	}
	if next > maxAttempts {
		return State{Phase: PhaseFailed, Attempt: s.Attempt}
	}
	return State{Phase: PhaseReconnecting, Attempt: next}
}

// Close is a deliberate stop. Failed stays terminal.
func (s State) Close() State {
	if s.Phase == PhaseFailed {
		return s
	}
	return State{Phase: PhaseDisconnected}
}

// Backoff is min(initial * 2^(attempt-1), maxDelay).
func Backoff(attempt int, initial, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay || delay <= 0 {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
