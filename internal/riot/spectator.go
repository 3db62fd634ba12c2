package riot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// Game types reported by the spectator API.
const (
	GameTypeMatched  = "MATCHED_GAME"
	GameTypeCustom   = "CUSTOM_GAME"
	GameTypeTutorial = "TUTORIAL_GAME"
)

// CurrentGame is the Spectator-V5 CurrentGameInfo object.
type CurrentGame struct {
	GameID            int64                    `json:"gameId"`
	GameType          string                   `json:"gameType"`
	GameStartTime     int64                    `json:"gameStartTime"` // Unix ms, 0 while loading
	MapID             int                      `json:"mapId"`
	GameLength        int64                    `json:"gameLength"`
	PlatformID        string                   `json:"platformId"`
	GameMode          string                   `json:"gameMode"`
	GameQueueConfigID int                      `json:"gameQueueConfigId"`
	Participants      []CurrentGameParticipant `json:"participants"`
}

// CurrentGameParticipant is one player of a live game.
type CurrentGameParticipant struct {
	PUUID      string `json:"puuid"`
	RiotID     string `json:"riotId"`
	ChampionID int    `json:"championId"`
	TeamID     int    `json:"teamId"`
	Bot        bool   `json:"bot"`
}

// MatchID returns the Match-V5 identifier of the game.
func (g *CurrentGame) MatchID() string {
	return g.PlatformID + "_" + strconv.FormatInt(g.GameID, 10)
}

// FindParticipant finds a participant in the live game by PUUID
func (g *CurrentGame) FindParticipant(puuid string) *CurrentGameParticipant {
	for i := range g.Participants {
		if g.Participants[i].PUUID == puuid {
			return &g.Participants[i]
		}
	}
	return nil
}

// GetActiveGame returns the League game the player is in, or nil when the
// player is not in a game.
func (c *Client) GetActiveGame(ctx context.Context, puuid string) (*CurrentGame, error) {
	endpoint := fmt.Sprintf("%s/lol/spectator/v5/active-games/by-summoner/%s",
		c.platformURL, url.PathEscape(puuid))
	return c.getActiveGame(ctx, endpoint)
}

// GetActiveTFTGame returns the TFT game the player is in, or nil.
func (c *Client) GetActiveTFTGame(ctx context.Context, puuid string) (*CurrentGame, error) {
	endpoint := fmt.Sprintf("%s/lol/spectator/tft/v5/active-games/by-puuid/%s",
		c.platformURL, url.PathEscape(puuid))
	return c.getActiveGame(ctx, endpoint)
}

func (c *Client) getActiveGame(ctx context.Context, endpoint string) (*CurrentGame, error) {
	var game CurrentGame
	if err := c.get(ctx, endpoint, &game); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active game: %w", err)
	}
	return &game, nil
}
