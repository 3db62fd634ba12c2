package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mhso/intfar/internal/game"
	"github.com/mhso/intfar/internal/storage"
)

// buildGameChoices creates the game selection choices for slash commands
func (b *Bot) buildGameChoices() []*discordgo.ApplicationCommandOptionChoice {
	games := b.registry.List()
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(games))
	for i, g := range games {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{
			Name:  g.Name,
			Value: string(g.Type),
		}
	}
	return choices
}

// Slash command definitions
func (b *Bot) getCommandDefinitions() []*discordgo.ApplicationCommand {
	guildOnly := false
	return []*discordgo.ApplicationCommand{
		{
			Name:         "register",
			Description:  "Link your game account so your games are tracked",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game",
					Description: "The game (e.g., lol)",
					Required:    true,
					Choices:     b.buildGameChoices(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "player_id",
					Description: "Player identifier (e.g., Faker#KR1)",
					Required:    true,
				},
			},
		},
		{
			Name:         "unregister",
			Description:  "Unlink all your accounts for a game",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game",
					Description: "The game (e.g., lol)",
					Required:    true,
					Choices:     b.buildGameChoices(),
				},
			},
		},
		{
			Name:         "list",
			Description:  "List all registered players in this server",
			DMPermission: &guildOnly,
		},
		{
			Name:         "setchannel",
			Description:  "Set the channel for game notifications",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "The channel to send notifications to",
					Required:    true,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildText,
					},
				},
			},
		},
		{
			Name:        "games",
			Description: "List all supported games",
		},
		{
			Name:         "status",
			Description:  "Show what the bot is watching in this server",
			DMPermission: &guildOnly,
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	b.log.Info().Msg("Registering slash commands")

	appID := b.config.DiscordApplicationID
	if appID == "" {
		appID = b.session.State.User.ID
	}

	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, "", b.getCommandDefinitions())
	if err != nil {
		return err
	}

	b.commands = registered
	b.log.Info().Int("count", len(registered)).Msg("Slash commands registered")
	return nil
}

// handleRegister handles the /register command
func (b *Bot) handleRegister(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	gameType := options[0].StringValue()
	playerID := options[1].StringValue()

	provider, err := b.registry.Get(game.GameType(gameType))
	if err != nil {
		respondWithMessage(s, i, fmt.Sprintf("Unknown game: `%s`. Use `/games` to see supported games.", gameType))
		return
	}

	if err := provider.ValidatePlayerID(playerID); err != nil {
		respondWithMessage(s, i, fmt.Sprintf("Invalid player ID format: %s", err.Error()))
		return
	}

	// Respond immediately to avoid timeout
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	playerInfo, err := provider.ResolvePlayer(ctx, playerID)
	if err != nil {
		b.log.Error().Err(err).Str("player", playerID).Msg("Failed to look up player")
		b.editResponse(s, i, fmt.Sprintf("Could not find player `%s`. Please check the ID and try again.", playerID))
		return
	}

	account := &storage.Account{
		GuildID:     i.GuildID,
		UserID:      i.Member.User.ID,
		Game:        provider.Type(),
		ExternalID:  playerInfo.ID,
		DisplayName: playerInfo.DisplayName,
	}
	if err := b.repo.RegisterAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAlreadyRegistered) {
			b.editResponse(s, i, fmt.Sprintf("`%s` is already registered in this server for %s.", playerInfo.DisplayName, provider.Name()))
			return
		}
		b.log.Error().Err(err).Msg("Failed to save account")
		b.editResponse(s, i, "Failed to register player. Please try again.")
		return
	}

	b.syncGuild(i.GuildID)
	b.editResponse(s, i, fmt.Sprintf("Linked `%s` to <@%s> for %s.", playerInfo.DisplayName, account.UserID, provider.Name()))
}

// handleUnregister handles the /unregister command
func (b *Bot) handleUnregister(s *discordgo.Session, i *discordgo.InteractionCreate) {
	gameType := i.ApplicationCommandData().Options[0].StringValue()

	provider, err := b.registry.Get(game.GameType(gameType))
	if err != nil {
		respondWithMessage(s, i, fmt.Sprintf("Unknown game: `%s`. Use `/games` to see supported games.", gameType))
		return
	}

	n, err := b.repo.UnregisterAccounts(context.Background(), i.GuildID, i.Member.User.ID, provider.Type())
	if errors.Is(err, storage.ErrNotFound) {
		respondWithMessage(s, i, fmt.Sprintf("You have no %s accounts registered in this server.", provider.Name()))
		return
	}
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to delete accounts")
		respondWithMessage(s, i, "Failed to unregister. Please try again.")
		return
	}

	b.syncGuild(i.GuildID)
	respondWithMessage(s, i, fmt.Sprintf("Removed %d %s account(s).", n, provider.Name()))
}

// handleList handles the /list command
func (b *Bot) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	accounts, err := b.repo.AccountsByGuild(context.Background(), i.GuildID)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to get accounts")
		respondWithMessage(s, i, "Failed to retrieve player list.")
		return
	}

	if len(accounts) == 0 {
		respondWithMessage(s, i, "No players are registered in this server.\nUse `/register` to add one!\nUse `/games` to see supported games.")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Registered Players:**\n\n")

	// Accounts come ordered by game.
	current := game.GameType("")
	for _, a := range accounts {
		if a.Game != current {
			current = a.Game
			gameName := string(a.Game)
			if provider, err := b.registry.Get(a.Game); err == nil {
				gameName = provider.Name()
			}
			fmt.Fprintf(&sb, "**%s:**\n", gameName)
		}
		fmt.Fprintf(&sb, "  <@%s> `%s`\n", a.UserID, a.DisplayName)
	}

	respondWithMessage(s, i, sb.String())
}

// handleSetChannel handles the /setchannel command
func (b *Bot) handleSetChannel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channel := i.ApplicationCommandData().Options[0].ChannelValue(s)

	settings := &storage.GuildSettings{
		GuildID:               i.GuildID,
		NotificationChannelID: channel.ID,
	}

	if err := b.repo.UpsertGuildSettings(context.Background(), settings); err != nil {
		b.log.Error().Err(err).Msg("Failed to save guild settings")
		respondWithMessage(s, i, "Failed to set notification channel. Please try again.")
		return
	}

	respondWithMessage(s, i, fmt.Sprintf("Game notifications will be sent to <#%s>", channel.ID))
}

// handleGames handles the /games command
func (b *Bot) handleGames(s *discordgo.Session, i *discordgo.InteractionCreate) {
	games := b.registry.List()

	if len(games) == 0 {
		respondWithMessage(s, i, "No games are currently supported.")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Supported Games:**\n\n")

	for _, g := range games {
		fmt.Fprintf(&sb, "**%s** (`%s`)\n", g.Name, g.Type)
		fmt.Fprintf(&sb, "  %s\n\n", g.Description)
	}

	sb.WriteString("Use `/register game:<game> player_id:<id>` to start tracking!")

	respondWithMessage(s, i, sb.String())
}

// handleStatus handles the /status command
func (b *Bot) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var sb strings.Builder

	for _, m := range b.managers {
		name := string(m.Game())
		if provider, err := b.registry.Get(m.Game()); err == nil {
			name = provider.Name()
		}

		snap, ok := m.Snapshot(i.GuildID)
		if !ok {
			fmt.Fprintf(&sb, "**%s:** idle\n", name)
			continue
		}
		fmt.Fprintf(&sb, "**%s:** %s, %d registered player(s) in voice\n", name, snap.State, len(snap.Players))
		if snap.ActiveMatch != nil {
			fmt.Fprintf(&sb, "  In game `%s` with %d tracked player(s)\n", snap.ActiveMatch.MatchID, len(snap.ActiveMatch.Participants))
		}
	}

	ctx := context.Background()
	if b.board != nil {
		live, err := b.board.Active(ctx, i.GuildID)
		if err != nil {
			b.log.Warn().Err(err).Msg("Failed to read live board")
		}
		for _, e := range live {
			fmt.Fprintf(&sb, "Live %s game `%s`: %s\n", e.Game, e.MatchID, strings.Join(e.Players, ", "))
		}
	}

	matches, err := b.repo.RecentMatches(ctx, i.GuildID, 5)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to get recent matches")
	}
	if len(matches) > 0 {
		sb.WriteString("\n**Recent games:**\n")
		for _, match := range matches {
			fmt.Fprintf(&sb, "  %s `%s` (%s, %d player(s))\n", match.Game, match.MatchID, formatDuration(match.Duration), match.Participants)
		}
	}

	respondWithMessage(s, i, sb.String())
}

// Helper functions

func respondWithMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func (b *Bot) editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
}
