package riot

import (
	"context"
	"fmt"
	"net/url"
)

// TFTMatch represents match data from the TFT-Match-V1 API
type TFTMatch struct {
	Metadata TFTMatchMetadata `json:"metadata"`
	Info     TFTMatchInfo     `json:"info"`
}

// TFTMatchMetadata contains TFT match metadata
type TFTMatchMetadata struct {
	MatchID      string   `json:"match_id"`
	Participants []string `json:"participants"`
}

// TFTMatchInfo contains detailed TFT match information
type TFTMatchInfo struct {
	GameDatetime int64            `json:"game_datetime"` // Unix timestamp in ms
	GameLength   float64          `json:"game_length"`   // in seconds
	QueueID      int              `json:"queue_id"`
	GameType     string           `json:"tft_game_type"`
	SetNumber    int              `json:"tft_set_number"`
	Participants []TFTParticipant `json:"participants"`
}

// TFTParticipant represents a player in a TFT match
type TFTParticipant struct {
	PUUID          string `json:"puuid"`
	RiotIdGameName string `json:"riotIdGameName"`
	RiotIdTagline  string `json:"riotIdTagline"`
	Placement      int    `json:"placement"`
	Level          int    `json:"level"`
	LastRound      int    `json:"last_round"`
	PlayersKilled  int    `json:"players_eliminated"`
	TotalDamage    int    `json:"total_damage_to_players"`
}

// GetTFTMatch retrieves detailed TFT match information
func (c *Client) GetTFTMatch(ctx context.Context, matchID string) (*TFTMatch, error) {
	endpoint := fmt.Sprintf("%s/tft/match/v1/matches/%s", c.regionalURL, url.PathEscape(matchID))

	var match TFTMatch
	if err := c.get(ctx, endpoint, &match); err != nil {
		return nil, fmt.Errorf("failed to get TFT match: %w", err)
	}

	return &match, nil
}
