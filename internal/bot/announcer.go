package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/mhso/intfar/internal/game"
	"github.com/mhso/intfar/internal/monitor"
	"github.com/mhso/intfar/internal/status"
	"github.com/mhso/intfar/internal/storage"
)

// MatchRecorder persists finished matches.
type MatchRecorder interface {
	SaveMatch(ctx context.Context, m *storage.RecordedMatch) error
	SaveMissedMatch(ctx context.Context, m *storage.MissedMatch) error
}

// Notifier posts to the notification channel of a guild.
type Notifier interface {
	Notify(ctx context.Context, guildID string, embed *discordgo.MessageEmbed) error
}

// LiveBoard tracks the matches guilds are playing right now.
type LiveBoard interface {
	Put(ctx context.Context, guildID string, e status.Entry) error
	Clear(ctx context.Context, guildID string, gameType game.GameType) error
}

// championNamer is implemented by providers that can name the entities
// reported for live matches.
type championNamer interface {
	ChampionName(entityID string) string
}

// Announcer is the consumer of the session monitors. It records finished
// matches and tells the guild about them.
type Announcer struct {
	recorder MatchRecorder
	notifier Notifier
	board    LiveBoard
	registry *game.Registry
	log      zerolog.Logger
}

// NewAnnouncer creates an announcer. board may be nil.
func NewAnnouncer(recorder MatchRecorder, notifier Notifier, board LiveBoard, registry *game.Registry, log zerolog.Logger) *Announcer {
	return &Announcer{
		recorder: recorder,
		notifier: notifier,
		board:    board,
		registry: registry,
		log:      log,
	}
}

var _ monitor.Listener = (*Announcer)(nil)

func (a *Announcer) OnMatchStarted(ctx context.Context, guildID string, gameType game.GameType, match *game.ActiveMatch) {
	log := a.log.With().Str("guild", guildID).Str("game", string(gameType)).Str("match", match.MatchID).Logger()

	if a.board != nil {
		if err := a.board.Put(ctx, guildID, status.NewEntry(gameType, match)); err != nil {
			log.Warn().Err(err).Msg("Failed to update live board")
		}
	}

	if err := a.notifier.Notify(ctx, guildID, matchStartedEmbed(a.gameName(gameType), match, a.namer(gameType))); err != nil {
		log.Warn().Err(err).Msg("Failed to announce match start")
	}
}

// OnMatchEnded persists the match where its status asks for it. Persistence
// errors are returned so that the hand-over is retried; messages are best
// effort.
func (a *Announcer) OnMatchEnded(ctx context.Context, end monitor.MatchEnd) error {
	log := a.log.With().Str("guild", end.GuildID).Str("game", string(end.Game)).Str("match", end.MatchID).Logger()

	var embed *discordgo.MessageEmbed
	switch end.Status {
	case game.StatusOK:
		if err := a.recorder.SaveMatch(ctx, recordedMatch(end)); err != nil {
			return fmt.Errorf("failed to save match: %w", err)
		}
		embed = matchEndedEmbed(a.gameName(end.Game), end)
	case game.StatusMissingData:
		missed := &storage.MissedMatch{
			Game:    end.Game,
			MatchID: end.MatchID,
			GuildID: end.GuildID,
			Reason:  "match details unavailable",
		}
		if err := a.recorder.SaveMissedMatch(ctx, missed); err != nil {
			return fmt.Errorf("failed to save missed match: %w", err)
		}
		embed = noticeEmbed(a.gameName(end.Game), end, "The game could not be fetched from the API. It has been saved and can be added manually later.")
	case game.StatusError:
		embed = noticeEmbed(a.gameName(end.Game), end, "Something went wrong while the game was being processed. It was not counted.")
	default:
		log.Info().Str("status", end.Status.String()).Msg("Match not counted")
	}

	if embed != nil {
		if err := a.notifier.Notify(ctx, end.GuildID, embed); err != nil {
			log.Warn().Err(err).Msg("Failed to announce match end")
		}
	}
	return nil
}

// OnMatchClosed takes the match off the live board of the guild. It is
// called for every started match, also when another guild already handed
// it over.
func (a *Announcer) OnMatchClosed(ctx context.Context, guildID string, gameType game.GameType, matchID string, dispatched bool) {
	log := a.log.With().Str("guild", guildID).Str("game", string(gameType)).Str("match", matchID).Logger()
	if !dispatched {
		log.Info().Msg("Match was handed over elsewhere")
	}
	if a.board == nil {
		return
	}
	if err := a.board.Clear(ctx, guildID, gameType); err != nil {
		log.Warn().Err(err).Msg("Failed to clear live board")
	}
}

func (a *Announcer) gameName(gameType game.GameType) string {
	if p, err := a.registry.Get(gameType); err == nil {
		return p.Name()
	}
	return string(gameType)
}

func (a *Announcer) namer(gameType game.GameType) championNamer {
	p, err := a.registry.Get(gameType)
	if err != nil {
		return nil
	}
	namer, _ := p.(championNamer)
	return namer
}

func recordedMatch(end monitor.MatchEnd) *storage.RecordedMatch {
	m := &storage.RecordedMatch{
		Game:         end.Game,
		MatchID:      end.MatchID,
		GuildID:      end.GuildID,
		Status:       end.Status.String(),
		Participants: len(end.Participants),
	}
	if end.Details != nil {
		m.StartedAt = end.Details.StartedAt
		m.Duration = end.Details.Duration
	}
	return m
}

// channelNotifier posts to the channel configured with /setchannel.
type channelNotifier struct {
	session *discordgo.Session
	repo    *storage.Repository
	log     zerolog.Logger
}

func (n *channelNotifier) Notify(ctx context.Context, guildID string, embed *discordgo.MessageEmbed) error {
	settings, err := n.repo.GetGuildSettings(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		n.log.Debug().Str("guild", guildID).Msg("No notification channel set for guild")
		return nil
	}
	if err != nil {
		return err
	}

	_, err = n.session.ChannelMessageSendEmbed(settings.NotificationChannelID, embed, discordgo.WithContext(ctx))
	return err
}
