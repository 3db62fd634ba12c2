package status

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhso/intfar/internal/game"
)

func newTestBoard(t *testing.T) (*miniredis.Miniredis, *Board) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, NewBoard(rdb)
}

func TestBoardPutAndClear(t *testing.T) {
	mr, b := newTestBoard(t)
	ctx := context.Background()

	match := &game.ActiveMatch{
		MatchID:   "EUW1_1",
		StartedAt: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
		Mode:      "CLASSIC",
		Participants: []game.Participant{
			{Player: game.Player{UserID: "u1", DisplayName: "Dave"}},
			{Player: game.Player{UserID: "u2", DisplayName: "Murt"}},
		},
	}
	require.NoError(t, b.Put(ctx, "g1", NewEntry(game.GameTypeTFT, &game.ActiveMatch{MatchID: "EUW1_9"})))
	require.NoError(t, b.Put(ctx, "g1", NewEntry(game.GameTypeLoL, match)))

	entries, err := b.Active(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, game.GameTypeLoL, entries[0].Game)
	assert.Equal(t, []string{"Dave", "Murt"}, entries[0].Players)
	assert.True(t, match.StartedAt.Equal(entries[0].StartedAt))
	assert.Equal(t, ttlBoard, mr.TTL("intfar:live:g1"))

	require.NoError(t, b.Clear(ctx, "g1", game.GameTypeLoL))
	entries, err = b.Active(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "EUW1_9", entries[0].MatchID)
}

func TestBoardEmptyGuild(t *testing.T) {
	_, b := newTestBoard(t)
	entries, err := b.Active(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, b.Clear(context.Background(), "nobody", game.GameTypeLoL))
}
