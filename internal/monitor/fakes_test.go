package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mhso/intfar/internal/config"
	"github.com/mhso/intfar/internal/game"
)

var errProvider = errors.New("provider unavailable")

type fakeProvider struct {
	mu          sync.Mutex
	active      map[string]*game.ActiveGame
	lookupErr   map[string]error
	lookups     int
	details     map[string]*game.MatchDetails
	fetchErr    error
	failFetches int
	fetches     int
	extra       game.Status
	minDuration time.Duration
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		active:      make(map[string]*game.ActiveGame),
		lookupErr:   make(map[string]error),
		details:     make(map[string]*game.MatchDetails),
		minDuration: 5 * time.Minute,
	}
}

func (p *fakeProvider) Name() string                        { return "Fake" }
func (p *fakeProvider) Type() game.GameType                 { return "fake" }
func (p *fakeProvider) Description() string                 { return "fake game" }
func (p *fakeProvider) ValidatePlayerID(input string) error { return nil }

func (p *fakeProvider) ResolvePlayer(ctx context.Context, input string) (*game.PlayerInfo, error) {
	return &game.PlayerInfo{ID: input, DisplayName: input, GameType: p.Type()}, nil
}

func (p *fakeProvider) LookupActiveMatch(ctx context.Context, externalID string) (*game.ActiveGame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookups++
	if err := p.lookupErr[externalID]; err != nil {
		return nil, err
	}
	if a, ok := p.active[externalID]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (p *fakeProvider) FetchMatchDetails(ctx context.Context, matchID string) (*game.MatchDetails, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetches++
	if p.failFetches > 0 {
		p.failFetches--
		return nil, errProvider
	}
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	d, ok := p.details[matchID]
	if !ok {
		return nil, nil
	}
	return d, nil
}

func (p *fakeProvider) ClassifyExtra(details *game.MatchDetails) game.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.extra
}

func (p *fakeProvider) MinDuration() time.Duration { return p.minDuration }

// setActive puts the external accounts into the match.
func (p *fakeProvider) setActive(matchID string, team int, externalIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range externalIDs {
		p.active[id] = &game.ActiveGame{MatchID: matchID, Team: team, Mode: "CLASSIC", Map: "Summoner's Rift"}
	}
}

func (p *fakeProvider) setLookupErr(externalID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.lookupErr, externalID)
		return
	}
	p.lookupErr[externalID] = err
}

func (p *fakeProvider) setCustom(externalID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[externalID].Custom = true
}

func (p *fakeProvider) clearActive(externalIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(externalIDs) == 0 {
		p.active = make(map[string]*game.ActiveGame)
		return
	}
	for _, id := range externalIDs {
		delete(p.active, id)
	}
}

func (p *fakeProvider) setDetails(d *game.MatchDetails) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.details[d.MatchID] = d
}

func (p *fakeProvider) setFetchErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchErr = err
}

func (p *fakeProvider) lookupCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookups
}

func (p *fakeProvider) fetchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}

// refreshingProvider also caches static data.
type refreshingProvider struct {
	*fakeProvider
	known     map[string]bool
	refreshes int
}

func (p *refreshingProvider) KnowsEntity(entityID string) bool { return p.known[entityID] }

func (p *refreshingProvider) RefreshStaticData(ctx context.Context) error {
	p.refreshes++
	return nil
}

type fakeStore struct {
	mu       sync.Mutex
	recorded map[string]bool
	err      error
}

func newFakeStore(recorded ...string) *fakeStore {
	s := &fakeStore{recorded: make(map[string]bool)}
	for _, id := range recorded {
		s.recorded[id] = true
	}
	return s
}

func (s *fakeStore) MatchAlreadyRecorded(ctx context.Context, matchID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorded[matchID], s.err
}

func (s *fakeStore) record(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded[matchID] = true
}

type closedMatch struct {
	guildID    string
	matchID    string
	dispatched bool
}

type recordingListener struct {
	mu       sync.Mutex
	started  []*game.ActiveMatch
	ended    []MatchEnd
	closed   []closedMatch
	failures int
	calls    int
}

func (l *recordingListener) OnMatchStarted(ctx context.Context, guildID string, gameType game.GameType, match *game.ActiveMatch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, match)
}

func (l *recordingListener) OnMatchEnded(ctx context.Context, end MatchEnd) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.failures > 0 {
		l.failures--
		return errors.New("database is locked")
	}
	l.ended = append(l.ended, end)
	return nil
}

func (l *recordingListener) OnMatchClosed(ctx context.Context, guildID string, gameType game.GameType, matchID string, dispatched bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = append(l.closed, closedMatch{guildID: guildID, matchID: matchID, dispatched: dispatched})
}

func (l *recordingListener) closedMatches() []closedMatch {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]closedMatch(nil), l.closed...)
}

func (l *recordingListener) endedMatches() []MatchEnd {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]MatchEnd(nil), l.ended...)
}

func (l *recordingListener) startedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.started)
}

func player(userID string, externalIDs ...string) game.Player {
	return game.Player{UserID: userID, DisplayName: userID, ExternalIDs: externalIDs}
}

func matchDetails(matchID string, duration time.Duration, externalIDs ...string) *game.MatchDetails {
	d := &game.MatchDetails{MatchID: matchID, Duration: duration, Mode: "CLASSIC"}
	for _, id := range externalIDs {
		d.Participants = append(d.Participants, game.MatchParticipant{ExternalID: id, Team: 100})
	}
	return d
}

func testConfig() config.MonitorConfig {
	return config.MonitorConfig{
		PollInterval:          2 * time.Millisecond,
		ArmDelay:              0,
		LookupSpacing:         0,
		FinalizeAttempts:      3,
		FinalizeDelays:        []time.Duration{time.Millisecond},
		DispatchRetryInterval: time.Millisecond,
	}
}
