package storage

import (
	"time"

	"github.com/mhso/intfar/internal/game"
)

// Account links a Discord user in a guild to an account in a game
type Account struct {
	ID          int64
	GuildID     string
	UserID      string // Discord user ID
	Game        game.GameType
	ExternalID  string // e.g. the Riot PUUID
	DisplayName string // e.g. GameName#TagLine
	CreatedAt   time.Time
}

// GuildSettings stores per-server configuration
type GuildSettings struct {
	GuildID               string
	NotificationChannelID string
	CreatedAt             time.Time
}

// RecordedMatch is a finished match handed over with status ok
type RecordedMatch struct {
	Game         game.GameType
	MatchID      string
	GuildID      string
	Status       string
	StartedAt    time.Time
	Duration     time.Duration
	Participants int
	RecordedAt   time.Time
}

// MissedMatch is a finished match whose details could not be fetched.
// These are kept so they can be backfilled by hand.
type MissedMatch struct {
	Game      game.GameType
	MatchID   string
	GuildID   string
	Reason    string
	CreatedAt time.Time
}
