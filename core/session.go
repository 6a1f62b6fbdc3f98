package orchestration

import (
	"time"

	"github.com/koscakluka/ema-realtime/core/conversation"
	"github.com/koscakluka/ema-realtime/core/realtime"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	}
	return "unknown"
}

// Session is a point-in-time copy of the session state.
type Session struct {
	State     State
	Connected bool
	Recording bool
	Muted     bool
	StartedAt time.Time

	// Profile is the active instruction profile, if one was set.
	Profile *realtime.Profile
}

func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()

	session := Session{
		State:     o.state,
		Connected: o.connected,
		Recording: o.recording,
		Muted:     o.muted,
		StartedAt: o.startedAt,
	}
	if o.activeProfile != nil {
		profile := *o.activeProfile
		session.Profile = &profile
	}
	return session
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Profiles returns the instruction profiles available for SetInstructions.
func (o *Orchestrator) Profiles() []realtime.Profile {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]realtime.Profile(nil), o.profiles...)
}

// Transcript returns the latest published transcript snapshot.
func (o *Orchestrator) Transcript() conversation.Snapshot {
	return o.store.Snapshot()
}

// Subscribe registers fn for every transcript snapshot published from now on.
func (o *Orchestrator) Subscribe(fn func(conversation.Snapshot)) (unsubscribe func()) {
	return o.store.Subscribe(fn)
}
