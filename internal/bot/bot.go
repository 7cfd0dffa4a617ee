// Package bot runs the Discord gateway side of HappyBot: slash commands for
// moderation, settings and utilities, plus the member and message events
// that feed welcome, leave and message logs.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Gopher0727/HappyBot/config"
	"github.com/Gopher0727/HappyBot/internal/discord"
	"github.com/Gopher0727/HappyBot/internal/service"
	"github.com/Gopher0727/HappyBot/internal/utils"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

const (
	// Intents the bot subscribes to. MessageContent is needed to log the
	// text of deleted and edited messages.
	Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	// MessageCacheSize is how many messages per channel the state keeps
	// for delete and edit logs.
	MessageCacheSize = 500

	handlerTimeout = 15 * time.Second

	poolWorkers = 8
	poolQueue   = 64
)

// Services are the stores the bot reads and writes.
type Services struct {
	Settings  service.ISettingsService
	Warns     service.IWarnService
	Analytics service.IAnalyticsService
	Guilds    service.IGuildService
}

type Bot struct {
	api     Discord
	session *discordgo.Session
	svc     Services
	log     *logger.Logger
	pool    *utils.WorkerPool

	commands     map[string]*command
	started      time.Time
	now          func() time.Time
	eventTimeout time.Duration

	mu    sync.Mutex
	known map[string]struct{} // guilds the bot is in
}

// New creates a bot on a gateway session authenticated with the configured
// bot token. The session is not opened until Run.
func New(cfg config.DiscordConfig, svc Services, log *logger.Logger) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, discord.ErrNoBotToken
	}
	s, err := discord.NewSession("Bot "+cfg.BotToken, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.State.MaxMessageCount = MessageCacheSize
	// handlers are queued onto the worker pool from the event loop
	s.SyncEvents = true

	b := newBot(sessionAPI{Session: s}, svc, log)
	b.session = s
	b.register(s)
	return b, nil
}

func newBot(api Discord, svc Services, log *logger.Logger) *Bot {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("bot")
	return &Bot{
		api:          api,
		svc:          svc,
		log:          log,
		pool:         utils.NewWorkerPool(poolWorkers, poolQueue, log),
		commands:     commandSet(),
		started:      time.Now().UTC(),
		now:          time.Now,
		eventTimeout: handlerTimeout,
		known:        make(map[string]struct{}),
	}
}

// Run connects to the gateway and serves events until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b.session == nil {
		return fmt.Errorf("bot has no gateway session")
	}

	b.pool.Start()
	defer b.pool.Stop()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	b.log.Info("网关已连接")

	<-ctx.Done()

	b.log.Info("正在断开网关...")
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close gateway: %w", err)
	}
	return nil
}

// register wires gateway events to the bot's handlers.
func (b *Bot) register(s *discordgo.Session) {
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.Ready) {
		b.markKnown(e.Guilds)
		b.dispatch("ready", "", func(ctx context.Context) { b.onReady(ctx, e) })
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildCreate) {
		b.dispatch("guild_create", e.ID, func(ctx context.Context) { b.onGuildCreate(ctx, e) })
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildDelete) {
		b.dispatch("guild_delete", e.ID, func(ctx context.Context) { b.onGuildDelete(ctx, e) })
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
		b.dispatch("member_add", e.GuildID, func(ctx context.Context) { b.onMemberAdd(ctx, e) })
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
		b.dispatch("member_remove", e.GuildID, func(ctx context.Context) { b.onMemberRemove(ctx, e) })
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageDelete) {
		b.dispatch("message_delete", e.GuildID, func(ctx context.Context) { b.onMessageDelete(ctx, e) })
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageUpdate) {
		b.dispatch("message_update", e.GuildID, func(ctx context.Context) { b.onMessageUpdate(ctx, e) })
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.InteractionCreate) {
		b.dispatch("interaction", e.GuildID, func(ctx context.Context) { b.onInteraction(ctx, e.Interaction) })
	})
}

// dispatch queues fn on the worker pool under a fresh trace id and the
// handler timeout. Ordered events of one guild are handled in gateway order;
// interactions are not, since each must be acknowledged within three seconds.
func (b *Bot) dispatch(event, guildID string, fn func(ctx context.Context)) {
	job := func() {
		ctx, cancel := b.eventContext(guildID)
		defer cancel()
		b.log.DebugContext(ctx, "gateway event", zap.String("event", event))
		fn(ctx)
	}
	var err error
	if guildID == "" || event == "interaction" {
		err = b.pool.Submit(context.Background(), job)
	} else {
		err = b.pool.SubmitKeyed(context.Background(), guildID, job)
	}
	if err != nil {
		b.log.Warn("dropped gateway event", zap.String("event", event), zap.Error(err))
	}
}

func (b *Bot) eventContext(guildID string) (context.Context, context.CancelFunc) {
	ctx := logger.WithTraceID(context.Background(), "")
	if id := parseGuildID(guildID); id != 0 {
		ctx = logger.WithGuildID(ctx, int64(id))
	}
	return context.WithTimeout(ctx, b.eventTimeout)
}

// Uptime is how long ago the bot was created.
func (b *Bot) Uptime() time.Duration {
	return b.now().Sub(b.started)
}
