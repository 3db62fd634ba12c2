package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mhso/intfar/internal/config"
	"github.com/mhso/intfar/internal/game"
	"github.com/mhso/intfar/internal/metrics"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithMetrics sets the collectors the manager reports to.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithClaimer replaces the process local dispatch claimer.
func WithClaimer(c Claimer) Option {
	return func(m *Manager) { m.claimer = c }
}

// Manager owns the guild sessions of one game and runs a poll goroutine for
// every guild with enough registered players in voice.
type Manager struct {
	provider   game.Provider
	cfg        config.MonitorConfig
	tracker    *PresenceTracker
	resolver   *Resolver
	classifier *Classifier
	dispatcher *Dispatcher
	listener   Listener
	claimer    Claimer
	metrics    *metrics.Metrics
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
	closing  bool
}

// NewManager creates the manager for the provider's game.
func NewManager(provider game.Provider, store MatchStore, listener Listener, cfg config.MonitorConfig, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		cfg:      cfg,
		tracker:  NewPresenceTracker(),
		listener: listener,
		log:      zerolog.Nop(),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.log = m.log.With().Str("game", string(provider.Type())).Logger()
	m.resolver = NewResolver(provider, cfg.LookupSpacing, m.log, m.metrics)
	m.classifier = NewClassifier(provider, store, cfg.FinalizeAttempts, cfg.FinalizeDelays, m.log, m.metrics)
	m.dispatcher = NewDispatcher(provider.Type(), store, m.claimer, listener, m.log, m.metrics)
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Game returns the game the manager watches.
func (m *Manager) Game() game.GameType {
	return m.provider.Type()
}

// UpdateVoiceMembership replaces the registered players in voice for the
// guild and starts or stops its poll task accordingly.
func (m *Manager) UpdateVoiceMembership(guildID string, players []game.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tracker.UpdateVoiceMembership(guildID, players) {
		m.log.Debug().Str("guild", guildID).Int("players", len(players)).Msg("Voice membership changed")
	}
	s := m.sessionLocked(guildID)

	switch {
	case m.closing:
	case m.tracker.ShouldStartPolling(guildID):
		m.startLocked(s)
	case m.tracker.ShouldStopPolling(guildID):
		s.notify()
	}
}

// Snapshot returns a copy of the guild's session.
func (m *Manager) Snapshot(guildID string) (Snapshot, bool) {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}

	snap := s.snapshot()
	snap.Game = m.Game()
	snap.Players = m.tracker.Players(guildID)
	return snap, true
}

// Sessions returns a copy of every session ordered by guild id.
func (m *Manager) Sessions() []Snapshot {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)

	snaps := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := m.Snapshot(id); ok {
			snaps = append(snaps, snap)
		}
	}
	return snaps
}

// Close stops every armed session and waits for sessions with a match in
// progress to finalize it, or for ctx to expire.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	for _, s := range m.sessions {
		s.notify()
	}
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, snap := range m.Sessions() {
			if snap.Polling {
				m.log.Warn().Str("guild", snap.GuildID).Str("state", snap.State.String()).Msg("Session still running at shutdown")
			}
		}
		return fmt.Errorf("waiting for sessions: %w", ctx.Err())
	}
}

func (m *Manager) sessionLocked(guildID string) *session {
	s, ok := m.sessions[guildID]
	if !ok {
		s = newSession(guildID)
		m.sessions[guildID] = s
	}
	return s
}

func (m *Manager) startLocked(s *session) {
	s.mu.Lock()
	s.polling = true
	s.mu.Unlock()
	// A stop request left over from the previous task must not cut the
	// arm delay of the new one short.
	s.drain()
	m.tracker.MarkPolling(s.guildID, true)
	m.metrics.SessionPolling(string(m.Game()), 1)

	m.log.Info().Str("guild", s.guildID).Msg("Starting to poll guild")
	m.wg.Add(1)
	go m.run(s)
}

// retire ends the poll task when the guild lost its quorum or the manager
// is closing. It reports whether the task must exit.
func (m *Manager) retire(s *session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closing && m.tracker.HasQuorum(s.guildID) {
		return false
	}
	if s.State() != StateDormant {
		m.setState(s, StateDormant)
	}

	s.mu.Lock()
	s.polling = false
	s.mu.Unlock()
	m.tracker.MarkPolling(s.guildID, false)
	m.metrics.SessionPolling(string(m.Game()), -1)

	m.log.Info().Str("guild", s.guildID).Msg("Stopped polling guild")
	return true
}

func (m *Manager) setState(s *session, to State) {
	from, err := s.transition(to)
	if err != nil {
		m.log.Error().Err(err).Str("guild", s.guildID).Msg("Rejected state change")
		return
	}
	m.metrics.Transition(string(m.Game()), from.String(), to.String())
	m.log.Info().Str("guild", s.guildID).Str("from", from.String()).Str("to", to.String()).Msg("Session state changed")
}

// run is the poll task of one guild.
func (m *Manager) run(s *session) {
	defer m.wg.Done()

	m.pause(s, m.cfg.ArmDelay)
	for !m.step(s) {
		switch s.State() {
		case StateArmed:
			m.pause(s, m.cfg.PollInterval)
		case StateInGame:
			// A match in progress is polled to the end even when
			// everybody left voice or the bot is shutting down.
			time.Sleep(m.cfg.PollInterval)
		}
	}
}

// step advances the session by one poll. It reports whether the poll task
// must exit.
func (m *Manager) step(s *session) bool {
	switch s.State() {
	case StateDormant, StateArmed:
		if m.retire(s) {
			return true
		}
		if s.State() == StateDormant {
			m.setState(s, StateArmed)
		}
		m.pollArmed(s)
	case StateInGame:
		m.pollInGame(s)
	case StateFinalizing:
		m.finalize(s)
		if m.retire(s) {
			return true
		}
		m.setState(s, StateArmed)
	}
	return false
}

// pause waits d, or less when the session is woken or the manager closes.
func (m *Manager) pause(s *session, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.wake:
	case <-m.ctx.Done():
	}
}

func (m *Manager) pollArmed(s *session) {
	log := m.log.With().Str("guild", s.guildID).Logger()
	res := m.resolver.Resolve(m.ctx, m.tracker.Players(s.guildID))

	switch res.Outcome {
	case OutcomeConverged:
		if res.Match.MatchID == s.lastFinalized {
			log.Debug().Str("match", res.Match.MatchID).Msg("Match was already finalized")
			return
		}
		if err := s.begin(res.Match); err != nil {
			log.Error().Err(err).Msg("Rejected state change")
			return
		}
		m.metrics.Transition(string(m.Game()), StateArmed.String(), StateInGame.String())
		log.Info().
			Str("match", res.Match.MatchID).
			Int("participants", len(res.Match.Participants)).
			Msg("Match started")
		m.listener.OnMatchStarted(m.ctx, s.guildID, m.Game(), res.Match)
	case OutcomeDiverged:
		log.Debug().Strs("matches", res.MatchIDs).Msg("Players are in different matches")
	case OutcomeInconclusive:
		log.Debug().Int("failed", res.Failed).Msg("Poll inconclusive")
	}
}

func (m *Manager) pollInGame(s *session) {
	match := s.ActiveMatch()
	players := make([]game.Player, 0, len(match.Participants))
	for _, p := range match.Participants {
		players = append(players, p.Player)
	}

	res := m.resolver.Resolve(context.WithoutCancel(m.ctx), players)
	if res.Ended(match.MatchID) {
		m.setState(s, StateFinalizing)
	}
}

// finalize classifies the match and hands it over, retrying the hand-over
// until the consumer accepts it.
func (m *Manager) finalize(s *session) {
	ctx := context.WithoutCancel(m.ctx)
	match := s.ActiveMatch()
	log := m.log.With().Str("guild", s.guildID).Str("match", match.MatchID).Logger()

	verdict := m.classifier.Classify(ctx, match, m.tracker.Players(s.guildID))
	end := MatchEnd{
		GuildID:      s.guildID,
		Game:         m.Game(),
		MatchID:      match.MatchID,
		Status:       verdict.Status,
		Match:        match,
		Details:      verdict.Details,
		Participants: verdict.Participants,
	}
	log.Info().Str("status", verdict.Status.String()).Int("fetches", verdict.Attempts).Msg("Match ended")

	var dispatched bool
	for attempt := 1; ; attempt++ {
		ok, err := m.dispatcher.Dispatch(ctx, end)
		if err == nil {
			dispatched = ok
			break
		}
		log.Error().Err(err).Int("attempt", attempt).Msg("Failed to hand over finished match, retrying")
		time.Sleep(m.cfg.DispatchRetryInterval)
	}
	s.lastFinalized = match.MatchID
	m.listener.OnMatchClosed(ctx, s.guildID, m.Game(), match.MatchID, dispatched)
}
