package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/mhso/intfar/internal/game"
	"github.com/mhso/intfar/internal/metrics"
)

var errNoDetails = errors.New("provider returned no match details")

// Verdict is the terminal classification of a finished match.
type Verdict struct {
	Status       game.Status
	Details      *game.MatchDetails
	Participants []game.Participant
	Attempts     int // match detail fetches made
	Err          error
}

// Classifier turns a match that is no longer live into a Verdict.
type Classifier struct {
	provider game.Provider
	store    MatchStore
	attempts int
	delays   []time.Duration
	timer    backoff.Timer
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewClassifier creates a classifier fetching match details at most
// attempts times, waiting delays[i] after the i-th failure (the last delay
// repeats).
func NewClassifier(provider game.Provider, store MatchStore, attempts int, delays []time.Duration, log zerolog.Logger, m *metrics.Metrics) *Classifier {
	if attempts < 1 {
		attempts = 1
	}
	return &Classifier{
		provider: provider,
		store:    store,
		attempts: attempts,
		delays:   delays,
		log:      log,
		metrics:  m,
	}
}

// Classify fetches the details of the match and classifies it. tracked are
// all registered players that may have played in it.
func (c *Classifier) Classify(ctx context.Context, match *game.ActiveMatch, tracked []game.Player) Verdict {
	if match.Custom {
		return Verdict{Status: game.StatusCustomGame}
	}

	details, attempts, err := c.fetch(ctx, match.MatchID)
	if err != nil {
		c.log.Error().Err(err).Str("match", match.MatchID).Int("attempts", attempts).Msg("Giving up on match details")
		return Verdict{Status: game.StatusMissingData, Attempts: attempts, Err: err}
	}

	v := c.classify(ctx, match, details, tracked)
	v.Attempts = attempts
	return v
}

func (c *Classifier) classify(ctx context.Context, match *game.ActiveMatch, details *game.MatchDetails, tracked []game.Player) Verdict {
	v := Verdict{
		Status:       game.StatusOK,
		Details:      details,
		Participants: trackedParticipants(details, match, tracked),
	}

	recorded, err := c.store.MatchAlreadyRecorded(ctx, match.MatchID)
	switch {
	case err != nil:
		v.Status = game.StatusError
		v.Err = fmt.Errorf("failed to check match store: %w", err)
	case recorded:
		v.Status = game.StatusDuplicate
	case len(v.Participants) < ArmThreshold:
		v.Status = game.StatusSolo
	case c.provider.ClassifyExtra(details) != game.StatusOK:
		v.Status = game.StatusUnsupportedMode
	case details.Duration < c.provider.MinDuration():
		v.Status = game.StatusTooShort
	}
	return v
}

// fetch retrieves the match details within the retry budget.
func (c *Classifier) fetch(ctx context.Context, matchID string) (*game.MatchDetails, int, error) {
	var (
		details  *game.MatchDetails
		attempts int
		gameName = string(c.provider.Type())
	)

	operation := func() error {
		attempts++
		d, err := c.provider.FetchMatchDetails(ctx, matchID)
		if err == nil && d == nil {
			err = errNoDetails
		}
		c.metrics.FetchAttempt(gameName, err == nil)
		if err != nil {
			return err
		}
		details = d
		return nil
	}

	notify := func(err error, next time.Duration) {
		c.log.Warn().Err(err).
			Str("match", matchID).
			Int("attempt", attempts).
			Int("budget", c.attempts).
			Dur("retry_in", next).
			Msg("Match details not available yet")
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(&scheduleBackOff{delays: c.delays}, uint64(c.attempts-1)),
		ctx,
	)
	err := backoff.RetryNotifyWithTimer(operation, b, notify, c.timer)
	return details, attempts, err
}

// trackedParticipants returns the tracked players that show up in the
// finished match, one entry per user.
func trackedParticipants(details *game.MatchDetails, match *game.ActiveMatch, tracked []game.Player) []game.Participant {
	candidates := make([]game.Player, 0, len(match.Participants)+len(tracked))
	for _, p := range match.Participants {
		candidates = append(candidates, p.Player)
	}
	candidates = append(candidates, tracked...)

	seen := make(map[string]bool)
	var participants []game.Participant
	for _, player := range candidates {
		if seen[player.UserID] {
			continue
		}
		for _, externalID := range player.ExternalIDs {
			line := details.FindParticipant(externalID)
			if line == nil {
				continue
			}
			seen[player.UserID] = true
			participants = append(participants, game.Participant{
				Player:     player,
				ExternalID: externalID,
				Team:       line.Team,
				EntityID:   line.Entity,
			})
			break
		}
	}
	return participants
}

// scheduleBackOff walks a fixed list of delays and repeats the last one.
type scheduleBackOff struct {
	delays []time.Duration
	next   int
}

func (b *scheduleBackOff) NextBackOff() time.Duration {
	if len(b.delays) == 0 {
		return 0
	}
	i := min(b.next, len(b.delays)-1)
	b.next++
	return b.delays[i]
}

func (b *scheduleBackOff) Reset() { b.next = 0 }
