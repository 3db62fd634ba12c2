package tft

import (
	"context"
	"fmt"
	"time"

	"github.com/mhso/intfar/internal/config"
	"github.com/mhso/intfar/internal/game"
	"github.com/mhso/intfar/internal/riot"
)

// Provider implements game.Provider for Teamfight Tactics. TFT lobbies have
// no teams, every participant is reported on team 0.
type Provider struct {
	client *riot.Client
	rules  config.GameRules
}

// NewProvider creates a new TFT provider sharing the Riot client
func NewProvider(client *riot.Client, rules config.GameRules) *Provider {
	return &Provider{client: client, rules: rules}
}

func (p *Provider) Name() string        { return "Teamfight Tactics" }
func (p *Provider) Type() game.GameType { return game.GameTypeTFT }
func (p *Provider) Description() string {
	return "Watch voice channels and score TFT lobbies played together"
}

func (p *Provider) ValidatePlayerID(input string) error {
	_, _, err := riot.ParseRiotID(input)
	return err
}

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
		GameType:    game.GameTypeTFT,
	}, nil
}

func (p *Provider) LookupActiveMatch(ctx context.Context, puuid string) (*game.ActiveGame, error) {
	current, err := p.client.GetActiveTFTGame(ctx, puuid)
	if err != nil || current == nil {
		return nil, err
	}

	active := &game.ActiveGame{
		MatchID: current.MatchID(),
		Mode:    current.GameMode,
		Map:     riot.GetQueueName(current.GameQueueConfigID),
		Custom:  current.GameType == riot.GameTypeCustom || current.GameQueueConfigID == 0,
	}
	if current.GameStartTime > 0 {
		active.StartedAt = time.UnixMilli(current.GameStartTime)
	}
	return active, nil
}

func (p *Provider) FetchMatchDetails(ctx context.Context, matchID string) (*game.MatchDetails, error) {
	match, err := p.client.GetTFTMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	details := &game.MatchDetails{
		MatchID:   match.Metadata.MatchID,
		StartedAt: time.UnixMilli(match.Info.GameDatetime),
		Duration:  time.Duration(match.Info.GameLength * float64(time.Second)),
		Mode:      match.Info.GameType,
		Map:       fmt.Sprintf("Set %d", match.Info.SetNumber),
		Queue:     match.Info.QueueID,
		Raw:       match,
	}
	for _, tp := range match.Info.Participants {
		details.Participants = append(details.Participants, game.MatchParticipant{
			ExternalID: tp.PUUID,
			Name:       tp.RiotIdGameName + "#" + tp.RiotIdTagline,
			// Top four is a win in TFT.
			Win:       tp.Placement > 0 && tp.Placement <= 4,
			Kills:     tp.PlayersKilled,
			Placement: tp.Placement,
		})
	}
	return details, nil
}

func (p *Provider) ClassifyExtra(details *game.MatchDetails) game.Status {
	if !p.rules.AllowsQueue(details.Queue) {
		return game.StatusUnsupportedMode
	}
	return game.StatusOK
}

func (p *Provider) MinDuration() time.Duration {
	return p.rules.MinDuration
}
