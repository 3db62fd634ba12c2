package monitor

import (
	"context"

	"github.com/mhso/intfar/internal/game"
)

// MatchEnd is handed to the consumer once a finished match is classified.
type MatchEnd struct {
	GuildID string
	Game    game.GameType
	MatchID string
	Status  game.Status

	// Match is the match as it was detected while live.
	Match *game.ActiveMatch
	// Details is nil for StatusCustomGame and StatusMissingData.
	Details *game.MatchDetails
	// Participants are the tracked players found in Details.
	Participants []game.Participant
}

// Consumer receives finished matches. Returning nil acknowledges the match;
// an error keeps the session finalizing and the hand-over is retried.
type Consumer interface {
	OnMatchEnded(ctx context.Context, end MatchEnd) error
}

// Listener is a consumer that also wants to hear about the life of a match
// in each guild. Every OnMatchStarted is followed by one OnMatchClosed for
// the same guild and match, after the hand-over. dispatched is false when
// the match had already been handed over, e.g. from another guild.
type Listener interface {
	Consumer
	OnMatchStarted(ctx context.Context, guildID string, gameType game.GameType, match *game.ActiveMatch)
	OnMatchClosed(ctx context.Context, guildID string, gameType game.GameType, matchID string, dispatched bool)
}

// MatchStore answers whether a match has already been recorded. It must be
// safe for concurrent use.
type MatchStore interface {
	MatchAlreadyRecorded(ctx context.Context, matchID string) (bool, error)
}
