package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/HappyBot/config"
	"github.com/Gopher0727/HappyBot/internal/api"
	"github.com/Gopher0727/HappyBot/internal/bot"
	"github.com/Gopher0727/HappyBot/internal/db"
	"github.com/Gopher0727/HappyBot/internal/discord"
	"github.com/Gopher0727/HappyBot/internal/handler"
	"github.com/Gopher0727/HappyBot/internal/repository"
	"github.com/Gopher0727/HappyBot/internal/service"
	"github.com/Gopher0727/HappyBot/middleware/jwt"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
	"github.com/Gopher0727/HappyBot/utils/ratelimit"
)

// app holds what every subcommand shares: configuration, the logger, the
// store and the services built on it.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	store *db.Store

	settings  service.ISettingsService
	warns     service.IWarnService
	tickets   service.ITicketService
	analytics service.IAnalyticsService
	guilds    service.IGuildService

	closers []func() error
}

func newApp(cfg *config.Config) (*app, error) {
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("日志初始化失败: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, log.Close)
	return a, nil
}

// openStore opens and migrates the database and builds the services.
func (a *app) openStore(ctx context.Context) error {
	store, err := db.Open(a.cfg.Database, a.log)
	if err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	// 初始化仓储层
	gdb := store.DB()
	guildRepo := repository.NewGuildRepository(gdb)

	// 初始化服务层
	a.analytics = service.NewAnalyticsService(repository.NewAnalyticsRepository(gdb), a.log.Named("analytics"))
	a.settings = service.NewSettingsService(repository.NewSettingsRepository(gdb))
	a.warns = service.NewWarnService(repository.NewWarnRepository(gdb))
	a.tickets = service.NewTicketService(repository.NewTicketRepository(gdb))
	a.guilds = service.NewGuildService(guildRepo, a.analytics)
	return nil
}

func (a *app) newBot() (*bot.Bot, error) {
	return bot.New(a.cfg.Discord, bot.Services{
		Settings:  a.settings,
		Warns:     a.warns,
		Analytics: a.analytics,
		Guilds:    a.guilds,
	}, a.log)
}

func (a *app) newAPIServer(ctx context.Context) (*api.Server, error) {
	gin.SetMode(a.cfg.Server.Mode)

	tokens := jwt.NewTokenManager(a.cfg.JWT.Secret, a.cfg.JWT.TTL, jwt.WithIssuer(a.cfg.JWT.Issuer))

	var limiter ratelimit.Limiter
	if a.cfg.RateLimit.Enabled {
		l, closeLimiter, err := ratelimit.New(ctx, a.cfg.RateLimit, a.log)
		if err != nil {
			return nil, err
		}
		limiter = l
		a.closers = append(a.closers, closeLimiter)
	}

	client := discord.NewClient(a.cfg.Discord, a.log)
	if !client.HasBotToken() {
		a.log.Warn("DISCORD_BOT_TOKEN not set, guild lookups will answer 503")
	}
	httpLog := a.log.Named("http")

	mw := api.NewMiddlewareManager(tokens, limiter, httpLog)
	router := api.NewRouter(mw, api.Handlers{
		Auth: handler.NewAuthHandler(discord.NewOAuth(a.cfg.Discord), client, tokens,
			a.cfg.Dashboard.URL, a.cfg.Server.IsRelease(), httpLog),
		Config: handler.NewConfigHandler(a.settings, a.warns, a.tickets, a.analytics, httpLog),
		Guilds: handler.NewGuildHandler(client, httpLog),
		Health: handler.NewHealth(a.store),
	}, a.cfg.Dashboard.URL)

	return api.NewServer(a.cfg.Server.Addr(), router, a.cfg.Server.ShutdownTimeout, httpLog), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// checkAPI validates the API settings, logging the ephemeral key warning.
func (a *app) checkAPI() error {
	warning, err := a.cfg.ValidateAPI()
	if err != nil {
		return err
	}
	if warning != "" {
		a.log.Warn(warning)
	}
	return nil
}

func (a *app) checkBot() error {
	return a.cfg.ValidateBot()
}
