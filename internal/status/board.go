// Package status keeps a board of the matches currently being played in
// each guild, shared through Redis so a status page or another bot process
// can read it.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mhso/intfar/internal/game"
)

// ttlBoard bounds how long an entry survives a bot that died mid match.
const ttlBoard = 6 * time.Hour

// Entry is a match in progress.
type Entry struct {
	Game      game.GameType `json:"game"`
	MatchID   string        `json:"match_id"`
	StartedAt time.Time     `json:"started_at"`
	Mode      string        `json:"mode,omitempty"`
	Map       string        `json:"map,omitempty"`
	Players   []string      `json:"players"`
}

// NewEntry builds the board entry of a live match.
func NewEntry(gameType game.GameType, match *game.ActiveMatch) Entry {
	e := Entry{
		Game:      gameType,
		MatchID:   match.MatchID,
		StartedAt: match.StartedAt,
		Mode:      match.Mode,
		Map:       match.Map,
	}
	for _, p := range match.Participants {
		e.Players = append(e.Players, p.Player.DisplayName)
	}
	return e
}

// Board stores one Redis hash per guild, keyed by game, holding the JSON
// entry of the match being played.
type Board struct {
	rdb *redis.Client
}

// NewBoard creates a board on the given client.
func NewBoard(rdb *redis.Client) *Board {
	return &Board{rdb: rdb}
}

// key is the hash holding a guild's live matches.
func (b *Board) key(guildID string) string {
	return "intfar:live:" + guildID
}

// Put records the match a guild is playing in a game.
func (b *Board) Put(ctx context.Context, guildID string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := b.rdb.HSet(ctx, b.key(guildID), string(e.Game), raw).Err(); err != nil {
		return fmt.Errorf("put live match: %w", err)
	}
	return b.rdb.Expire(ctx, b.key(guildID), ttlBoard).Err()
}

// Clear removes the guild's entry for a game.
func (b *Board) Clear(ctx context.Context, guildID string, gameType game.GameType) error {
	return b.rdb.HDel(ctx, b.key(guildID), string(gameType)).Err()
}

// Active returns the matches a guild is playing, ordered by game.
func (b *Board) Active(ctx context.Context, guildID string) ([]Entry, error) {
	fields, err := b.rdb.HGetAll(ctx, b.key(guildID)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(fields))
	for _, raw := range fields {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Game < entries[j].Game })
	return entries, nil
}
