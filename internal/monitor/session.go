package monitor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mhso/intfar/internal/game"
)

// State is the phase of a guild session.
type State int

const (
	StateDormant State = iota
	StateArmed
	StateInGame
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateDormant:
		return "dormant"
	case StateArmed:
		return "armed"
	case StateInGame:
		return "in_game"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned for a state change the machine forbids.
var ErrInvalidTransition = errors.New("invalid state transition")

func canTransition(from, to State) bool {
	switch from {
	case StateDormant:
		return to == StateArmed
	case StateArmed:
		return to == StateDormant || to == StateInGame
	case StateInGame:
		return to == StateFinalizing
	case StateFinalizing:
		return to == StateDormant || to == StateArmed
	default:
		return false
	}
}

// Snapshot is a copy of a guild session for callers outside its goroutine.
type Snapshot struct {
	GuildID     string
	Game        game.GameType
	State       State
	Polling     bool
	ActiveMatch *game.ActiveMatch
	Players     []game.Player
}

// session is the state of one guild. state and activeMatch are written by
// the session goroutine only, polling by the manager under its lock; mu
// makes them readable from elsewhere.
type session struct {
	guildID string

	mu          sync.Mutex
	state       State
	activeMatch *game.ActiveMatch
	polling     bool

	// lastFinalized is the match most recently finalized, so that stale
	// provider data cannot arm the same match twice. Session goroutine only.
	lastFinalized string

	wake chan struct{}
}

func newSession(guildID string) *session {
	return &session{
		guildID: guildID,
		state:   StateDormant,
		wake:    make(chan struct{}, 1),
	}
}

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) ActiveMatch() *game.ActiveMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeMatch
}

// transition moves the session to another state.
func (s *session) transition(to State) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state
	if !canTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	s.state = to
	if to == StateDormant || to == StateArmed {
		s.activeMatch = nil
	}
	return from, nil
}

// begin records the match and enters InGame.
func (s *session) begin(match *game.ActiveMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateArmed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, StateInGame)
	}
	s.state = StateInGame
	s.activeMatch = match
	return nil
}

// notify wakes the session goroutine if it is waiting while armed.
func (s *session) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// drain discards a pending wake-up.
func (s *session) drain() {
	select {
	case <-s.wake:
	default:
	}
}

func (s *session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		GuildID:     s.guildID,
		State:       s.state,
		Polling:     s.polling,
		ActiveMatch: s.activeMatch,
	}
}
