package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhso/intfar/internal/game"
	"github.com/mhso/intfar/internal/monitor"
	"github.com/mhso/intfar/internal/status"
	"github.com/mhso/intfar/internal/storage"
)

type stubProvider struct{ gameType game.GameType }

func (p stubProvider) Name() string                        { return "League of Legends" }
func (p stubProvider) Type() game.GameType                 { return p.gameType }
func (p stubProvider) Description() string                 { return "" }
func (p stubProvider) ValidatePlayerID(input string) error { return nil }
func (p stubProvider) ResolvePlayer(ctx context.Context, input string) (*game.PlayerInfo, error) {
	return nil, nil
}
func (p stubProvider) LookupActiveMatch(ctx context.Context, externalID string) (*game.ActiveGame, error) {
	return nil, nil
}
func (p stubProvider) FetchMatchDetails(ctx context.Context, matchID string) (*game.MatchDetails, error) {
	return nil, nil
}
func (p stubProvider) ClassifyExtra(details *game.MatchDetails) game.Status { return game.StatusOK }
func (p stubProvider) MinDuration() time.Duration                           { return 0 }
func (p stubProvider) ChampionName(entityID string) string                  { return "Champion " + entityID }

type fakeRecorder struct {
	saved  []*storage.RecordedMatch
	missed []*storage.MissedMatch
	err    error
}

func (r *fakeRecorder) SaveMatch(ctx context.Context, m *storage.RecordedMatch) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, m)
	return nil
}

func (r *fakeRecorder) SaveMissedMatch(ctx context.Context, m *storage.MissedMatch) error {
	if r.err != nil {
		return r.err
	}
	r.missed = append(r.missed, m)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	embeds []*discordgo.MessageEmbed
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, guildID string, embed *discordgo.MessageEmbed) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.embeds = append(n.embeds, embed)
	return n.err
}

type fakeBoard struct {
	entries map[string]status.Entry
}

func (b *fakeBoard) Put(ctx context.Context, guildID string, e status.Entry) error {
	b.entries[guildID+"/"+string(e.Game)] = e
	return nil
}

func (b *fakeBoard) Clear(ctx context.Context, guildID string, gameType game.GameType) error {
	delete(b.entries, guildID+"/"+string(gameType))
	return nil
}

func newTestAnnouncer() (*Announcer, *fakeRecorder, *fakeNotifier, *fakeBoard) {
	recorder := &fakeRecorder{}
	notifier := &fakeNotifier{}
	board := &fakeBoard{entries: make(map[string]status.Entry)}
	registry := game.NewRegistry(stubProvider{gameType: game.GameTypeLoL})
	return NewAnnouncer(recorder, notifier, board, registry, zerolog.Nop()), recorder, notifier, board
}

func finishedMatch(s game.Status) monitor.MatchEnd {
	dave := game.Player{UserID: "u1", DisplayName: "Dave", ExternalIDs: []string{"p1"}}
	murt := game.Player{UserID: "u2", DisplayName: "Murt", ExternalIDs: []string{"p2"}}
	end := monitor.MatchEnd{
		GuildID: "g1",
		Game:    game.GameTypeLoL,
		MatchID: "EUW1_1",
		Status:  s,
		Match:   &game.ActiveMatch{MatchID: "EUW1_1"},
	}
	if s != game.StatusMissingData && s != game.StatusCustomGame {
		end.Details = &game.MatchDetails{
			MatchID:  "EUW1_1",
			Duration: 31*time.Minute + 5*time.Second,
			Mode:     "CLASSIC",
			Participants: []game.MatchParticipant{
				{ExternalID: "p1", Win: true, Entity: "Ahri", Kills: 7, Deaths: 2, Assists: 9},
				{ExternalID: "p2", Win: true, Entity: "Jinx", Kills: 3, Deaths: 0, Assists: 4},
			},
		}
		end.Participants = []game.Participant{
			{Player: dave, ExternalID: "p1"},
			{Player: murt, ExternalID: "p2"},
		}
	}
	return end
}

func TestAnnounceMatchStarted(t *testing.T) {
	a, _, notifier, board := newTestAnnouncer()

	match := &game.ActiveMatch{
		MatchID: "EUW1_1",
		Mode:    "CLASSIC",
		Participants: []game.Participant{
			{Player: game.Player{UserID: "u1", DisplayName: "Dave"}, EntityID: "103"},
		},
	}
	a.OnMatchStarted(context.Background(), "g1", game.GameTypeLoL, match)

	require.Len(t, notifier.embeds, 1)
	assert.Equal(t, "League of Legends game started", notifier.embeds[0].Title)
	assert.Contains(t, notifier.embeds[0].Description, "Dave (Champion 103)")
	assert.Contains(t, board.entries, "g1/lol")
}

func TestAnnounceOkMatch(t *testing.T) {
	a, recorder, notifier, _ := newTestAnnouncer()

	require.NoError(t, a.OnMatchEnded(context.Background(), finishedMatch(game.StatusOK)))

	require.Len(t, recorder.saved, 1)
	assert.Equal(t, "EUW1_1", recorder.saved[0].MatchID)
	assert.Equal(t, 2, recorder.saved[0].Participants)
	assert.Equal(t, "ok", recorder.saved[0].Status)

	require.Len(t, notifier.embeds, 1)
	embed := notifier.embeds[0]
	assert.Equal(t, "League of Legends: Victory", embed.Title)
	assert.Contains(t, embed.Description, "**Dave** (Ahri): 7/2/9, 8.00 KDA")
	assert.Equal(t, "31:05", embed.Fields[1].Value)
}

func TestMatchClosedClearsBoard(t *testing.T) {
	for _, dispatched := range []bool{true, false} {
		a, recorder, notifier, board := newTestAnnouncer()
		board.entries["g1/lol"] = status.Entry{}
		board.entries["g2/lol"] = status.Entry{}

		a.OnMatchClosed(context.Background(), "g1", game.GameTypeLoL, "EUW1_1", dispatched)

		assert.NotContains(t, board.entries, "g1/lol")
		assert.Contains(t, board.entries, "g2/lol")
		assert.Empty(t, recorder.saved)
		assert.Empty(t, notifier.embeds)
	}
}

func TestAnnounceSaveFailureIsReturned(t *testing.T) {
	a, recorder, notifier, _ := newTestAnnouncer()
	recorder.err = errors.New("database is locked")

	assert.Error(t, a.OnMatchEnded(context.Background(), finishedMatch(game.StatusOK)))
	assert.Error(t, a.OnMatchEnded(context.Background(), finishedMatch(game.StatusMissingData)))
	assert.Empty(t, notifier.embeds)
}

func TestAnnounceMissingData(t *testing.T) {
	a, recorder, notifier, _ := newTestAnnouncer()

	require.NoError(t, a.OnMatchEnded(context.Background(), finishedMatch(game.StatusMissingData)))
	require.Len(t, recorder.missed, 1)
	assert.Equal(t, "EUW1_1", recorder.missed[0].MatchID)
	require.Len(t, notifier.embeds, 1)
	assert.Equal(t, colorNotice, notifier.embeds[0].Color)
}

func TestAnnounceUncountedMatches(t *testing.T) {
	for _, s := range []game.Status{game.StatusCustomGame, game.StatusSolo, game.StatusUnsupportedMode, game.StatusTooShort, game.StatusDuplicate} {
		a, recorder, notifier, _ := newTestAnnouncer()

		require.NoError(t, a.OnMatchEnded(context.Background(), finishedMatch(s)), s.String())
		assert.Empty(t, recorder.saved, s.String())
		assert.Empty(t, notifier.embeds, s.String())
	}
}

func TestAnnounceErrorStatusNotifies(t *testing.T) {
	a, recorder, notifier, _ := newTestAnnouncer()

	require.NoError(t, a.OnMatchEnded(context.Background(), finishedMatch(game.StatusError)))
	assert.Empty(t, recorder.saved)
	require.Len(t, notifier.embeds, 1)
}

func TestNotifyFailureDoesNotFailHandOver(t *testing.T) {
	a, recorder, notifier, _ := newTestAnnouncer()
	notifier.err = errors.New("missing access")

	require.NoError(t, a.OnMatchEnded(context.Background(), finishedMatch(game.StatusOK)))
	assert.Len(t, recorder.saved, 1)
}
