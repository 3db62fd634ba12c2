package monitor

import (
	"slices"
	"sort"
	"sync"

	"github.com/mhso/intfar/internal/game"
)

// ArmThreshold is the number of registered players that must be in voice
// before a guild is polled.
const ArmThreshold = 2

// PresenceTracker keeps the registered players currently in voice per guild
// and whether a poll task is running for it.
type PresenceTracker struct {
	mu      sync.RWMutex
	members map[string]map[string]game.Player
	polling map[string]bool
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		members: make(map[string]map[string]game.Player),
		polling: make(map[string]bool),
	}
}

// UpdateVoiceMembership replaces the players known to be in voice for the
// guild. It reports whether the set differs from the stored one.
func (t *PresenceTracker) UpdateVoiceMembership(guildID string, players []game.Player) bool {
	next := make(map[string]game.Player, len(players))
	for _, p := range players {
		next[p.UserID] = p
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	changed := !sameMembers(t.members[guildID], next)
	t.members[guildID] = next
	return changed
}

// ShouldStartPolling reports whether the guild has a quorum but no poll
// task yet.
func (t *PresenceTracker) ShouldStartPolling(guildID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members[guildID]) >= ArmThreshold && !t.polling[guildID]
}

// ShouldStopPolling reports whether a poll task runs for a guild that lost
// its quorum.
func (t *PresenceTracker) ShouldStopPolling(guildID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members[guildID]) < ArmThreshold && t.polling[guildID]
}

// HasQuorum reports whether enough registered players are in voice.
func (t *PresenceTracker) HasQuorum(guildID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members[guildID]) >= ArmThreshold
}

// MarkPolling records whether a poll task runs for the guild.
func (t *PresenceTracker) MarkPolling(guildID string, running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.polling[guildID] = running
}

// Players returns the registered players in voice ordered by user id.
func (t *PresenceTracker) Players(guildID string) []game.Player {
	t.mu.RLock()
	defer t.mu.RUnlock()

	players := make([]game.Player, 0, len(t.members[guildID]))
	for _, p := range t.members[guildID] {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].UserID < players[j].UserID
	})
	return players
}

func sameMembers(a, b map[string]game.Player) bool {
	if len(a) != len(b) {
		return false
	}
	for id, pa := range a {
		pb, ok := b[id]
		if !ok || pa.DisplayName != pb.DisplayName || !slices.Equal(pa.ExternalIDs, pb.ExternalIDs) {
			return false
		}
	}
	return true
}
