package monitor

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mhso/intfar/internal/game"
	"github.com/mhso/intfar/internal/metrics"
)

// Outcome is the result of polling a group of players.
type Outcome int

const (
	// OutcomeNoActiveMatch means every lookup succeeded and nobody is in a match.
	OutcomeNoActiveMatch Outcome = iota
	// OutcomeConverged means everyone in a match is in the same one.
	OutcomeConverged
	// OutcomeDiverged means players are spread over several matches.
	OutcomeDiverged
	// OutcomeInconclusive means lookups failed and nothing was found.
	OutcomeInconclusive
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoActiveMatch:
		return "no_active_match"
	case OutcomeConverged:
		return "converged"
	case OutcomeDiverged:
		return "diverged"
	case OutcomeInconclusive:
		return "inconclusive"
	default:
		return "unknown"
	}
}

// Resolution is the classified result of one poll.
type Resolution struct {
	Outcome  Outcome
	Match    *game.ActiveMatch // set for OutcomeConverged
	MatchIDs []string          // distinct match ids seen, sorted
	Failed   int               // players whose lookups failed without a hit
}

// Seen reports whether any polled player was found in the match.
func (r Resolution) Seen(matchID string) bool {
	for _, id := range r.MatchIDs {
		if id == matchID {
			return true
		}
	}
	return false
}

// Ended reports whether the poll proves that the match is over: every
// lookup succeeded and nobody is in it anymore.
func (r Resolution) Ended(matchID string) bool {
	return r.Failed == 0 && !r.Seen(matchID)
}

// lookup is the poll result of a single player.
type lookup struct {
	player     game.Player
	externalID string
	active     *game.ActiveGame
	err        error
}

// Resolver polls a provider for the active match of a group of players.
type Resolver struct {
	provider game.Provider
	spacing  time.Duration
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewResolver creates a resolver that waits spacing between provider calls.
func NewResolver(provider game.Provider, spacing time.Duration, log zerolog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		provider: provider,
		spacing:  spacing,
		log:      log,
		metrics:  m,
	}
}

// Resolve looks up every player, trying their external accounts in order
// until one is in a match, and classifies the group.
func (r *Resolver) Resolve(ctx context.Context, players []game.Player) Resolution {
	results := make([]lookup, 0, len(players))
	calls := 0

	for _, p := range players {
		res := lookup{player: p}
		for _, externalID := range p.ExternalIDs {
			if calls > 0 {
				if err := sleepContext(ctx, r.spacing); err != nil {
					res.err = err
					break
				}
			}
			calls++

			active, err := r.provider.LookupActiveMatch(ctx, externalID)
			if err != nil {
				r.log.Debug().Err(err).Str("user", p.UserID).Str("account", externalID).Msg("Active match lookup failed")
				res.err = err
				continue
			}
			if active != nil {
				res.externalID = externalID
				res.active = active
				res.err = nil
				break
			}
		}
		results = append(results, res)
	}

	resolution := resolveOutcome(results)
	r.metrics.Poll(string(r.provider.Type()), resolution.Outcome.String())

	if resolution.Outcome == OutcomeConverged {
		r.refreshStaticData(ctx, resolution.Match)
	}
	return resolution
}

// refreshStaticData reloads the provider's reference data when the match
// contains an entity it does not know yet.
func (r *Resolver) refreshStaticData(ctx context.Context, match *game.ActiveMatch) {
	refresher, ok := r.provider.(game.StaticDataRefresher)
	if !ok {
		return
	}
	for _, p := range match.Participants {
		if p.EntityID == "" || refresher.KnowsEntity(p.EntityID) {
			continue
		}
		r.log.Info().Str("entity", p.EntityID).Msg("Unknown entity in active match, refreshing static data")
		r.metrics.StaticRefresh(string(r.provider.Type()))
		if err := refresher.RefreshStaticData(ctx); err != nil {
			r.log.Warn().Err(err).Msg("Failed to refresh static data")
		}
		return
	}
}

// resolveOutcome classifies the per-player results of one poll.
func resolveOutcome(results []lookup) Resolution {
	var res Resolution
	byMatch := make(map[string][]lookup)

	for _, l := range results {
		if l.active == nil {
			if l.err != nil {
				res.Failed++
			}
			continue
		}
		byMatch[l.active.MatchID] = append(byMatch[l.active.MatchID], l)
	}

	for id := range byMatch {
		res.MatchIDs = append(res.MatchIDs, id)
	}
	sort.Strings(res.MatchIDs)

	switch len(byMatch) {
	case 0:
		if res.Failed > 0 {
			res.Outcome = OutcomeInconclusive
		} else {
			res.Outcome = OutcomeNoActiveMatch
		}
	case 1:
		res.Outcome = OutcomeConverged
		res.Match = buildActiveMatch(byMatch[res.MatchIDs[0]])
	default:
		res.Outcome = OutcomeDiverged
	}
	return res
}

// buildActiveMatch merges the lookups of the players found in one match.
func buildActiveMatch(found []lookup) *game.ActiveMatch {
	first := found[0].active
	match := &game.ActiveMatch{
		MatchID: first.MatchID,
		Mode:    first.Mode,
		Map:     first.Map,
	}

	teams := make(map[int]int)
	for _, l := range found {
		if l.active.Custom {
			match.Custom = true
		}
		if !l.active.StartedAt.IsZero() && (match.StartedAt.IsZero() || l.active.StartedAt.Before(match.StartedAt)) {
			match.StartedAt = l.active.StartedAt
		}
		teams[l.active.Team]++
		match.Participants = append(match.Participants, game.Participant{
			Player:     l.player,
			ExternalID: l.externalID,
			Team:       l.active.Team,
			EntityID:   l.active.EntityID,
		})
	}

	// The side most of the group plays on; ties go to the lower team id.
	best, bestCount := 0, 0
	for team, n := range teams {
		if n > bestCount || (n == bestCount && team < best) {
			best, bestCount = team, n
		}
	}
	match.Team = best
	return match
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
