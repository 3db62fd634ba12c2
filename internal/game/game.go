package game

import (
	"context"
	"time"
)

// GameType represents a supported game type
type GameType string

const (
	GameTypeLoL GameType = "lol"
	GameTypeTFT GameType = "tft"
)

// PlayerInfo contains common player identification information
type PlayerInfo struct {
	ID          string   // Unique player identifier (PUUID)
	DisplayName string   // Human-readable display name
	GameType    GameType // Which game this player is tracked for
}

// Player is a registered user together with every external account they
// own for one game. ExternalIDs are tried in order.
type Player struct {
	UserID      string
	DisplayName string
	ExternalIDs []string
}

// ActiveGame is what a provider reports for a single external account that
// is currently inside a match.
type ActiveGame struct {
	MatchID   string
	StartedAt time.Time // zero when the provider has not started the clock yet
	Team      int
	Mode      string
	Map       string
	Custom    bool
	EntityID  string // champion, agent, ... as the provider names it
}

// Participant is a tracked player confirmed to be inside a specific match.
type Participant struct {
	Player     Player
	ExternalID string
	Team       int
	EntityID   string
}

// ActiveMatch describes the single match a guild's players converged on.
type ActiveMatch struct {
	MatchID      string
	StartedAt    time.Time
	Team         int
	Mode         string
	Map          string
	Custom       bool
	Participants []Participant
}

// MatchParticipant is one player's line in a finished match.
type MatchParticipant struct {
	ExternalID string
	Name       string
	Team       int
	Win        bool
	Entity     string
	Kills      int
	Deaths     int
	Assists    int
	Placement  int // only set by placement based games
}

// MatchDetails is the provider-neutral view of a finished match.
type MatchDetails struct {
	MatchID      string
	StartedAt    time.Time
	Duration     time.Duration
	Mode         string
	Map          string
	Queue        int
	Participants []MatchParticipant
	Raw          any
}

// FindParticipant returns the line for an external account, or nil.
func (d *MatchDetails) FindParticipant(externalID string) *MatchParticipant {
	for i := range d.Participants {
		if d.Participants[i].ExternalID == externalID {
			return &d.Participants[i]
		}
	}
	return nil
}

// Provider is implemented once per supported game. It wraps the external
// lookups the monitor needs and the game specific classification rules.
type Provider interface {
	// Name returns the human-readable name of the game
	Name() string

	// Type returns the game type identifier
	Type() GameType

	// Description returns a brief description of the game
	Description() string

	// ValidatePlayerID validates the player identifier format
	ValidatePlayerID(input string) error

	// ResolvePlayer looks up player information from the game's API
	ResolvePlayer(ctx context.Context, input string) (*PlayerInfo, error)

	// LookupActiveMatch returns the match the account is currently playing,
	// or nil when it is not in a match. Errors are transient failures.
	LookupActiveMatch(ctx context.Context, externalID string) (*ActiveGame, error)

	// FetchMatchDetails fetches a finished match. Any error, including the
	// provider not having processed the match yet, is worth retrying.
	FetchMatchDetails(ctx context.Context, matchID string) (*MatchDetails, error)

	// ClassifyExtra returns StatusUnsupportedMode for matches played in a mode
	// or on a map the game excludes, StatusOK otherwise.
	ClassifyExtra(details *MatchDetails) Status

	// MinDuration is the shortest match that is not treated as a remake.
	MinDuration() time.Duration
}

// StaticDataRefresher is implemented by providers that cache reference data
// (champion tables and similar) that can go stale when the game patches.
type StaticDataRefresher interface {
	KnowsEntity(entityID string) bool
	RefreshStaticData(ctx context.Context) error
}
