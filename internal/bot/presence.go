package bot

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.syncGuild(g.ID)
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	b.syncGuild(v.GuildID)
}

// syncGuild hands the registered players sitting in voice to every
// session monitor.
func (b *Bot) syncGuild(guildID string) {
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		b.log.Warn().Err(err).Str("guild", guildID).Msg("Guild not in state")
		return
	}

	selfID := ""
	if b.session.State.User != nil {
		selfID = b.session.State.User.ID
	}
	userIDs := voiceMembers(guild, selfID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, m := range b.managers {
		players, err := b.repo.PlayersForUsers(ctx, guildID, m.Game(), userIDs)
		if err != nil {
			b.log.Error().Err(err).Str("guild", guildID).Str("game", string(m.Game())).Msg("Failed to load registered players")
			continue
		}
		m.UpdateVoiceMembership(guildID, players)
	}
}

// voiceMembers returns the users in a voice channel of the guild, leaving
// out the AFK channel and the bot itself.
func voiceMembers(guild *discordgo.Guild, selfID string) []string {
	seen := make(map[string]bool)
	var users []string
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == "" || vs.ChannelID == guild.AfkChannelID {
			continue
		}
		if vs.UserID == selfID || seen[vs.UserID] {
			continue
		}
		if vs.Member != nil && vs.Member.User != nil && vs.Member.User.Bot {
			continue
		}
		seen[vs.UserID] = true
		users = append(users, vs.UserID)
	}
	sort.Strings(users)
	return users
}
