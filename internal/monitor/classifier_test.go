package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mhso/intfar/internal/game"
)

func activeMatch(matchID string, players ...game.Player) *game.ActiveMatch {
	m := &game.ActiveMatch{MatchID: matchID, Team: 100}
	for _, p := range players {
		m.Participants = append(m.Participants, game.Participant{Player: p, ExternalID: p.ExternalIDs[0], Team: 100})
	}
	return m
}

func newTestClassifier(p game.Provider, store MatchStore, attempts int) *Classifier {
	return NewClassifier(p, store, attempts, []time.Duration{0}, zerolog.Nop(), nil)
}

func TestClassifyCustomGameSkipsFetch(t *testing.T) {
	p := newFakeProvider()
	c := newTestClassifier(p, newFakeStore(), 3)

	match := activeMatch("EUW1_1", player("a", "pa"), player("b", "pb"))
	match.Custom = true

	v := c.Classify(context.Background(), match, nil)
	assert.Equal(t, game.StatusCustomGame, v.Status)
	assert.Zero(t, p.fetchCount())
}

func TestClassifyPriority(t *testing.T) {
	a, b := player("a", "pa"), player("b", "pb")

	tests := []struct {
		name     string
		duration time.Duration
		ids      []string
		extra    game.Status
		recorded bool
		storeErr error
		want     game.Status
	}{
		{name: "ok", duration: 30 * time.Minute, ids: []string{"pa", "pb"}, want: game.StatusOK},
		{name: "too short", duration: 3 * time.Minute, ids: []string{"pa", "pb"}, want: game.StatusTooShort},
		{name: "unsupported before too short", duration: time.Minute, ids: []string{"pa", "pb"}, extra: game.StatusUnsupportedMode, want: game.StatusUnsupportedMode},
		{name: "solo before unsupported", duration: time.Minute, ids: []string{"pa"}, extra: game.StatusUnsupportedMode, want: game.StatusSolo},
		{name: "duplicate before solo", duration: time.Minute, ids: []string{"pa"}, recorded: true, want: game.StatusDuplicate},
		{name: "store failure", duration: 30 * time.Minute, ids: []string{"pa", "pb"}, storeErr: errors.New("disk I/O error"), want: game.StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider()
			p.extra = tt.extra
			p.setDetails(matchDetails("EUW1_1", tt.duration, tt.ids...))

			store := newFakeStore()
			if tt.recorded {
				store.record("EUW1_1")
			}
			store.err = tt.storeErr

			v := newTestClassifier(p, store, 3).Classify(context.Background(), activeMatch("EUW1_1", a, b), nil)
			assert.Equal(t, tt.want, v.Status)
			assert.Equal(t, 1, v.Attempts)
			if tt.want == game.StatusError {
				assert.Error(t, v.Err)
			}
		})
	}
}

func TestClassifyCountsTrackedPlayersOutsideTheLiveMatch(t *testing.T) {
	p := newFakeProvider()
	p.setDetails(matchDetails("EUW1_1", 30*time.Minute, "pa", "pb2"))

	// Only a was seen live; b joined on a second account.
	match := activeMatch("EUW1_1", player("a", "pa"))
	tracked := []game.Player{player("a", "pa"), player("b", "pb1", "pb2")}

	v := newTestClassifier(p, newFakeStore(), 1).Classify(context.Background(), match, tracked)
	require.Equal(t, game.StatusOK, v.Status)
	require.Len(t, v.Participants, 2)
	assert.Equal(t, "pb2", v.Participants[1].ExternalID)
}

func TestClassifyRetriesUntilDetailsArrive(t *testing.T) {
	p := newFakeProvider()
	p.failFetches = 2
	p.setDetails(matchDetails("EUW1_1", 30*time.Minute, "pa", "pb"))

	v := newTestClassifier(p, newFakeStore(), 5).Classify(context.Background(), activeMatch("EUW1_1", player("a", "pa"), player("b", "pb")), nil)
	assert.Equal(t, game.StatusOK, v.Status)
	assert.Equal(t, 3, v.Attempts)
	assert.Equal(t, 3, p.fetchCount())
}

func TestClassifyRetryExhaustion(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		attempts := rapid.IntRange(1, 8).Draw(t, "attempts")
		failWithError := rapid.Bool().Draw(t, "error")

		p := newFakeProvider()
		if failWithError {
			p.setFetchErr(errProvider)
		}
		c := newTestClassifier(p, newFakeStore(), attempts)

		v := c.Classify(context.Background(), activeMatch("EUW1_1", player("a", "pa"), player("b", "pb")), nil)
		if v.Status != game.StatusMissingData {
			t.Fatalf("status = %s, want missing_data", v.Status)
		}
		if p.fetchCount() != attempts || v.Attempts != attempts {
			t.Fatalf("fetched %d times (verdict %d), budget %d", p.fetchCount(), v.Attempts, attempts)
		}
	})
}

func TestClassifySoloShortCircuit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := newFakeProvider()
		p.extra = rapid.SampledFrom([]game.Status{game.StatusOK, game.StatusUnsupportedMode}).Draw(t, "extra")
		duration := time.Duration(rapid.IntRange(0, 3600).Draw(t, "seconds")) * time.Second

		// Only one tracked player shows up in the finished match, whatever
		// else it contains.
		ids := []string{"pa"}
		for i := range rapid.IntRange(0, 9).Draw(t, "strangers") {
			ids = append(ids, "stranger-"+string(rune('a'+i)))
		}
		p.setDetails(matchDetails("EUW1_1", duration, ids...))

		tracked := []game.Player{player("a", "pa"), player("b", "pb")}
		v := newTestClassifier(p, newFakeStore(), 1).Classify(context.Background(), activeMatch("EUW1_1", tracked...), tracked)
		if v.Status != game.StatusSolo {
			t.Fatalf("status = %s, want solo", v.Status)
		}
	})
}

func TestScheduleBackOffRepeatsLastDelay(t *testing.T) {
	b := &scheduleBackOff{delays: []time.Duration{time.Second, 2 * time.Second}}
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())

	b.Reset()
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Zero(t, (&scheduleBackOff{}).NextBackOff())
}
