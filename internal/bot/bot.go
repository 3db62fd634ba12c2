package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mhso/intfar/internal/config"
	"github.com/mhso/intfar/internal/game"
	"github.com/mhso/intfar/internal/games/lol"
	"github.com/mhso/intfar/internal/games/tft"
	"github.com/mhso/intfar/internal/lock"
	"github.com/mhso/intfar/internal/metrics"
	"github.com/mhso/intfar/internal/monitor"
	"github.com/mhso/intfar/internal/riot"
	"github.com/mhso/intfar/internal/status"
	"github.com/mhso/intfar/internal/storage"
)

// Bot represents the Discord bot instance
type Bot struct {
	config   *config.Config
	session  *discordgo.Session
	repo     *storage.Repository
	registry *game.Registry
	managers []*monitor.Manager
	board    *status.Board
	log      zerolog.Logger
	commands []*discordgo.ApplicationCommand
}

// Option configures a Bot.
type Option func(*options)

type options struct {
	log     zerolog.Logger
	metrics *metrics.Metrics
	redis   *redis.Client
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics reports the session monitors to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRedis shares match claims and the live board through rdb.
func WithRedis(rdb *redis.Client) Option {
	return func(o *options) { o.redis = rdb }
}

// New creates a new Bot instance
func New(cfg *config.Config, rules map[string]config.GameRules, opts ...Option) (*Bot, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	repo, err := storage.NewRepository(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client := riot.NewClient(cfg.RiotAPIKey, cfg.RiotPlatform, cfg.RiotRegion)
	registry := game.NewRegistry(
		lol.NewProvider(client, rules[string(game.GameTypeLoL)]),
		tft.NewProvider(client, rules[string(game.GameTypeTFT)]),
	)

	b := &Bot{
		config:   cfg,
		session:  session,
		repo:     repo,
		registry: registry,
		log:      o.log,
	}

	var (
		board       LiveBoard
		managerOpts = []monitor.Option{monitor.WithLogger(o.log), monitor.WithMetrics(o.metrics)}
	)
	if o.redis != nil {
		b.board = status.NewBoard(o.redis)
		board = b.board
		managerOpts = append(managerOpts, monitor.WithClaimer(lock.NewRedisClaimer(o.redis, 0)))
	}

	notifier := &channelNotifier{session: session, repo: repo, log: o.log}
	announcer := NewAnnouncer(repo, notifier, board, registry, o.log)
	for _, p := range registry.GetAll() {
		b.managers = append(b.managers, monitor.NewManager(p, repo.Ledger(p.Type()), announcer, cfg.Monitor, managerOpts...))
	}

	b.registerHandlers()

	return b, nil
}

// Start opens the Discord connection. Voice presence arrives with the
// guild create events and arms the session monitors.
func (b *Bot) Start(ctx context.Context) error {
	for _, p := range b.registry.GetAll() {
		if refresher, ok := p.(game.StaticDataRefresher); ok {
			if err := refresher.RefreshStaticData(ctx); err != nil {
				b.log.Warn().Err(err).Str("game", string(p.Type())).Msg("Failed to load static data")
			}
		}
	}

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	b.log.Info().Str("user", b.session.State.User.Username).Msg("Connected to Discord")

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	return nil
}

// Stop waits for matches in progress to be finalized, bounded by ctx, and
// closes the connections.
func (b *Bot) Stop(ctx context.Context) error {
	var errs []error
	for _, m := range b.managers {
		if err := m.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s monitor: %w", m.Game(), err))
		}
	}

	if b.session != nil {
		if err := b.session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.repo != nil {
		if err := b.repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info().Int("guilds", len(r.Guilds)).Msg("Bot is ready")
	})
}

// handleInteraction processes slash command interactions
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	b.log.Debug().Str("command", data.Name).Str("guild", i.GuildID).Msg("Received command")

	switch data.Name {
	case "register":
		b.handleRegister(s, i)
	case "unregister":
		b.handleUnregister(s, i)
	case "list":
		b.handleList(s, i)
	case "setchannel":
		b.handleSetChannel(s, i)
	case "games":
		b.handleGames(s, i)
	case "status":
		b.handleStatus(s, i)
	default:
		b.log.Warn().Str("command", data.Name).Msg("Unknown command")
	}
}
