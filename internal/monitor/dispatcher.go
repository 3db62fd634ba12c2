package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mhso/intfar/internal/game"
	"github.com/mhso/intfar/internal/metrics"
)

// Claimer hands out a match id once. Release gives a claim back after a
// failed hand-over.
type Claimer interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// MemoryClaimer is a process local Claimer.
type MemoryClaimer struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewMemoryClaimer creates an empty MemoryClaimer.
func NewMemoryClaimer() *MemoryClaimer {
	return &MemoryClaimer{claimed: make(map[string]struct{})}
}

func (c *MemoryClaimer) Claim(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.claimed[key]; ok {
		return false, nil
	}
	c.claimed[key] = struct{}{}
	return true, nil
}

func (c *MemoryClaimer) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claimed, key)
	return nil
}

// Dispatcher hands classified matches to the consumer at most once.
type Dispatcher struct {
	gameType game.GameType
	store    MatchStore
	claimer  Claimer
	consumer Consumer
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewDispatcher creates a dispatcher. A nil claimer falls back to a
// MemoryClaimer.
func NewDispatcher(gameType game.GameType, store MatchStore, claimer Claimer, consumer Consumer, log zerolog.Logger, m *metrics.Metrics) *Dispatcher {
	if claimer == nil {
		claimer = NewMemoryClaimer()
	}
	return &Dispatcher{
		gameType: gameType,
		store:    store,
		claimer:  claimer,
		consumer: consumer,
		log:      log,
		metrics:  m,
	}
}

// Dispatch hands the match to the consumer. It reports false without
// calling the consumer when the match was already handed over. Consumer
// errors are returned with the claim released so the call can be repeated.
func (d *Dispatcher) Dispatch(ctx context.Context, end MatchEnd) (bool, error) {
	key := string(d.gameType) + ":" + end.MatchID

	claimed := false
	if end.Status.Deliverable() {
		ok, err := d.claimer.Claim(ctx, key)
		if err != nil {
			return false, fmt.Errorf("failed to claim match %s: %w", end.MatchID, err)
		}
		if !ok {
			d.log.Info().Str("match", end.MatchID).Str("status", end.Status.String()).Msg("Match already dispatched, skipping")
			return false, nil
		}
		claimed = true
	}

	release := func() {
		if !claimed {
			return
		}
		if err := d.claimer.Release(ctx, key); err != nil {
			d.log.Warn().Err(err).Str("match", end.MatchID).Msg("Failed to release match claim")
		}
	}

	// Another task or process may have recorded the match since it was
	// classified.
	if end.Status == game.StatusOK {
		recorded, err := d.store.MatchAlreadyRecorded(ctx, end.MatchID)
		if err != nil {
			release()
			return false, fmt.Errorf("failed to check match %s: %w", end.MatchID, err)
		}
		if recorded {
			end.Status = game.StatusDuplicate
		}
	}

	if err := d.consumer.OnMatchEnded(ctx, end); err != nil {
		release()
		d.metrics.DispatchFailed(string(d.gameType))
		return false, fmt.Errorf("consumer failed for match %s: %w", end.MatchID, err)
	}

	d.metrics.Dispatched(string(d.gameType), end.Status.String())
	d.log.Info().
		Str("guild", end.GuildID).
		Str("match", end.MatchID).
		Str("status", end.Status.String()).
		Msg("Match dispatched")
	return true, nil
}
