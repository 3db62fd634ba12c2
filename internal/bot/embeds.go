package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mhso/intfar/internal/game"
	"github.com/mhso/intfar/internal/monitor"
)

const (
	colorWin    = 0x2ECC71
	colorLoss   = 0xE74C3C
	colorLive   = 0x3498DB
	colorNotice = 0xF1C40F
)

func matchStartedEmbed(gameName string, match *game.ActiveMatch, namer championNamer) *discordgo.MessageEmbed {
	var sb strings.Builder
	for _, p := range match.Participants {
		sb.WriteString(p.Player.DisplayName)
		if namer != nil && p.EntityID != "" {
			fmt.Fprintf(&sb, " (%s)", namer.ChampionName(p.EntityID))
		}
		sb.WriteString("\n")
	}

	embed := &discordgo.MessageEmbed{
		Title:       gameName + " game started",
		Description: sb.String(),
		Color:       colorLive,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Match ID: " + match.MatchID,
		},
	}
	if match.Mode != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Mode", Value: match.Mode, Inline: true})
	}
	if match.Map != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Map", Value: match.Map, Inline: true})
	}
	if !match.StartedAt.IsZero() {
		embed.Timestamp = match.StartedAt.Format(time.RFC3339)
	}
	return embed
}

func matchEndedEmbed(gameName string, end monitor.MatchEnd) *discordgo.MessageEmbed {
	details := end.Details

	// Tracked players share a team, the first one decides the color.
	color := colorLoss
	resultText := "Defeat"
	if len(end.Participants) > 0 {
		if line := details.FindParticipant(end.Participants[0].ExternalID); line != nil && line.Win {
			color = colorWin
			resultText = "Victory"
		}
	}

	var sb strings.Builder
	for _, p := range end.Participants {
		line := details.FindParticipant(p.ExternalID)
		if line == nil {
			continue
		}
		if line.Placement > 0 {
			fmt.Fprintf(&sb, "**%s**: #%d (%d eliminations)\n", p.Player.DisplayName, line.Placement, line.Kills)
			continue
		}
		kda := float64(line.Kills+line.Assists) / float64(max(line.Deaths, 1))
		fmt.Fprintf(&sb, "**%s** (%s): %d/%d/%d, %.2f KDA\n", p.Player.DisplayName, line.Entity, line.Kills, line.Deaths, line.Assists, kda)
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s: %s", gameName, resultText),
		Description: sb.String(),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Mode", Value: details.Mode, Inline: true},
			{Name: "Duration", Value: formatDuration(details.Duration), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Match ID: " + end.MatchID,
		},
	}
	if !details.StartedAt.IsZero() {
		embed.Timestamp = details.StartedAt.Format(time.RFC3339)
	}
	return embed
}

func noticeEmbed(gameName string, end monitor.MatchEnd, message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       gameName + " game over",
		Description: message,
		Color:       colorNotice,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Match ID: " + end.MatchID,
		},
	}
}

func formatDuration(d time.Duration) string {
	seconds := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
