package lol

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mhso/intfar/internal/config"
	"github.com/mhso/intfar/internal/game"
	"github.com/mhso/intfar/internal/riot"
)

// Provider implements game.Provider for League of Legends
type Provider struct {
	client    *riot.Client
	champions *riot.Champions
	rules     config.GameRules
}

// NewProvider creates a new LoL provider
func NewProvider(client *riot.Client, rules config.GameRules) *Provider {
	return &Provider{
		client:    client,
		champions: riot.NewChampions(client),
		rules:     rules,
	}
}

// Name returns the human-readable name of the game
func (p *Provider) Name() string {
	return "League of Legends"
}

// Type returns the game type identifier
func (p *Provider) Type() game.GameType {
	return game.GameTypeLoL
}

// Description returns a brief description of the game
func (p *Provider) Description() string {
	return "Watch voice channels and score League of Legends games played together"
}

// ValidatePlayerID validates the Riot ID format
func (p *Provider) ValidatePlayerID(input string) error {
	_, _, err := riot.ParseRiotID(input)
	return err
}

// ResolvePlayer looks up player information from Riot API
func (p *Provider) ResolvePlayer(ctx context.Context, input string) (*game.PlayerInfo, error) {
	gameName, tagLine, err := riot.ParseRiotID(input)
	if err != nil {
		return nil, err
	}

	account, err := p.client.GetAccountByRiotID(ctx, gameName, tagLine)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve player: %w", err)
	}

	return &game.PlayerInfo{
		ID:          account.PUUID,
		DisplayName: account.RiotID(),
		GameType:    game.GameTypeLoL,
	}, nil
}

// LookupActiveMatch returns the game the account is in, or nil
func (p *Provider) LookupActiveMatch(ctx context.Context, puuid string) (*game.ActiveGame, error) {
	current, err := p.client.GetActiveGame(ctx, puuid)
	if err != nil || current == nil {
		return nil, err
	}

	active := &game.ActiveGame{
		MatchID: current.MatchID(),
		Mode:    current.GameMode,
		Map:     riot.GetMapName(current.MapID),
		Custom:  current.GameType == riot.GameTypeCustom || current.GameQueueConfigID == 0,
	}
	if current.GameStartTime > 0 {
		active.StartedAt = time.UnixMilli(current.GameStartTime)
	}
	if participant := current.FindParticipant(puuid); participant != nil {
		active.Team = participant.TeamID
		active.EntityID = strconv.Itoa(participant.ChampionID)
	}
	return active, nil
}

// FetchMatchDetails fetches a finished match from Match-V5
func (p *Provider) FetchMatchDetails(ctx context.Context, matchID string) (*game.MatchDetails, error) {
	match, err := p.client.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	// Before patch 11.20 gameDuration was reported in milliseconds and
	// gameEndTimestamp was absent.
	duration := time.Duration(match.Info.GameDuration) * time.Second
	if match.Info.GameEndTimestamp == 0 {
		duration = time.Duration(match.Info.GameDuration) * time.Millisecond
	}

	details := &game.MatchDetails{
		MatchID:   match.Metadata.MatchID,
		StartedAt: time.UnixMilli(match.Info.GameStartTime),
		Duration:  duration,
		Mode:      match.Info.GameMode,
		Map:       riot.GetMapName(match.Info.MapID),
		Queue:     match.Info.QueueID,
		Raw:       match,
	}
	for _, mp := range match.Info.Participants {
		details.Participants = append(details.Participants, game.MatchParticipant{
			ExternalID: mp.PUUID,
			Name:       mp.RiotIdGameName + "#" + mp.RiotIdTagline,
			Team:       mp.TeamID,
			Win:        mp.Win,
			Entity:     mp.ChampionName,
			Kills:      mp.Kills,
			Deaths:     mp.Deaths,
			Assists:    mp.Assists,
		})
	}
	return details, nil
}

// ClassifyExtra rejects maps and queues the rules exclude
func (p *Provider) ClassifyExtra(details *game.MatchDetails) game.Status {
	if !p.rules.AllowsQueue(details.Queue) {
		return game.StatusUnsupportedMode
	}
	if match, ok := details.Raw.(*riot.Match); ok && !p.rules.AllowsMap(match.Info.MapID) {
		return game.StatusUnsupportedMode
	}
	return game.StatusOK
}

// MinDuration is the remake threshold
func (p *Provider) MinDuration() time.Duration {
	return p.rules.MinDuration
}

// KnowsEntity reports whether the champion id is in the cached table
func (p *Provider) KnowsEntity(entityID string) bool {
	id, err := strconv.Atoi(entityID)
	if err != nil {
		return true
	}
	_, ok := p.champions.Name(id)
	return ok
}

// RefreshStaticData reloads the champion table from Data Dragon
func (p *Provider) RefreshStaticData(ctx context.Context) error {
	return p.champions.Refresh(ctx)
}

// ChampionName returns the cached name of a champion id
func (p *Provider) ChampionName(entityID string) string {
	id, err := strconv.Atoi(entityID)
	if err != nil {
		return entityID
	}
	if name, ok := p.champions.Name(id); ok {
		return name
	}
	return entityID
}
