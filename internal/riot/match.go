package riot

import (
	"context"
	"fmt"
	"net/url"
)

// Match represents match data from the Match-V5 API
type Match struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

// MatchMetadata contains match metadata
type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

// MatchInfo contains detailed match information
type MatchInfo struct {
	GameDuration     int64         `json:"gameDuration"` // in seconds
	GameMode         string        `json:"gameMode"`
	GameType         string        `json:"gameType"`
	MapID            int           `json:"mapId"`
	QueueID          int           `json:"queueId"`
	GameCreation     int64         `json:"gameCreation"`       // Unix timestamp in ms
	GameStartTime    int64         `json:"gameStartTimestamp"` // Unix timestamp in ms
	GameEndTimestamp int64         `json:"gameEndTimestamp"`   // Unix timestamp in ms
	Participants     []Participant `json:"participants"`
}

// Participant represents a player in the match
type Participant struct {
	PUUID                       string `json:"puuid"`
	RiotIdGameName              string `json:"riotIdGameName"`
	RiotIdTagline               string `json:"riotIdTagline"`
	ChampionName                string `json:"championName"`
	ChampionID                  int    `json:"championId"`
	TeamID                      int    `json:"teamId"`
	Win                         bool   `json:"win"`
	Kills                       int    `json:"kills"`
	Deaths                      int    `json:"deaths"`
	Assists                     int    `json:"assists"`
	TotalMinionsKilled          int    `json:"totalMinionsKilled"`
	NeutralMinionsKilled        int    `json:"neutralMinionsKilled"`
	GoldEarned                  int    `json:"goldEarned"`
	TotalDamageDealtToChampions int    `json:"totalDamageDealtToChampions"`
	VisionScore                 int    `json:"visionScore"`
}

// GetMatch retrieves detailed match information
func (c *Client) GetMatch(ctx context.Context, matchID string) (*Match, error) {
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.regionalURL, url.PathEscape(matchID))

	var match Match
	if err := c.get(ctx, endpoint, &match); err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	return &match, nil
}

// FindParticipant finds a participant in the match by PUUID
func (m *Match) FindParticipant(puuid string) *Participant {
	for i := range m.Info.Participants {
		if m.Info.Participants[i].PUUID == puuid {
			return &m.Info.Participants[i]
		}
	}
	return nil
}

// GetQueueName returns a human-readable queue name
func GetQueueName(queueID int) string {
	queueNames := map[int]string{
		0:    "Custom Game",
		400:  "Normal Draft",
		420:  "Ranked Solo/Duo",
		430:  "Normal Blind",
		440:  "Ranked Flex",
		450:  "ARAM",
		490:  "Quickplay",
		900:  "URF",
		1020: "One for All",
		1090: "TFT Normal",
		1100: "TFT Ranked",
		1130: "TFT Hyper Roll",
		1160: "TFT Double Up",
		1300: "Nexus Blitz",
		1400: "Ultimate Spellbook",
		1700: "Arena",
		1900: "Pick URF",
	}

	if name, ok := queueNames[queueID]; ok {
		return name
	}
	return fmt.Sprintf("Queue %d", queueID)
}

// GetMapName returns a human-readable map name
func GetMapName(mapID int) string {
	switch mapID {
	case 11:
		return "Summoner's Rift"
	case 12:
		return "Howling Abyss"
	case 21:
		return "Nexus Blitz"
	case 22:
		return "Convergence"
	case 30:
		return "Rings of Wrath"
	default:
		return fmt.Sprintf("Map %d", mapID)
	}
}
