package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Gopher0727/HappyBot/config"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

// Client performs the REST calls the dashboard passes through to Discord.
// User calls authenticate with the caller's OAuth access token, guild calls
// with the bot token.
type Client struct {
	botToken string
	timeout  time.Duration
	log      *logger.Logger
}

func NewClient(cfg config.DiscordConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{botToken: cfg.BotToken, timeout: timeout, log: log.Named("discord")}
}

// HasBotToken reports whether bot-authenticated calls can be made.
func (c *Client) HasBotToken() bool {
	return c.botToken != ""
}

func (c *Client) userSession(accessToken string) (*discordgo.Session, error) {
	return NewSession("Bearer "+accessToken, c.timeout)
}

func (c *Client) botSession() (*discordgo.Session, error) {
	if c.botToken == "" {
		return nil, ErrNoBotToken
	}
	return NewSession("Bot "+c.botToken, c.timeout)
}

// call bounds ctx by the client timeout and logs the outcome.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := upstream(op, fn(ctx))
	if err != nil {
		c.log.WarnContext(ctx, "discord call failed",
			zap.String("op", op),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
	c.log.DebugContext(ctx, "discord call", zap.String("op", op), zap.Duration("latency", time.Since(start)))
	return nil
}

// CurrentUser returns the identity behind accessToken.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	s, err := c.userSession(accessToken)
	if err != nil {
		return nil, upstream("users/@me", err)
	}
	var u *discordgo.User
	err = c.call(ctx, "users/@me", func(ctx context.Context) error {
		var err error
		u, err = s.User("@me", discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, err
	}
	return projectUser(u), nil
}

// ManagedGuilds returns the guilds of the user behind accessToken where
// they hold the manage-guild permission.
func (c *Client) ManagedGuilds(ctx context.Context, accessToken string) ([]ManagedGuild, error) {
	s, err := c.userSession(accessToken)
	if err != nil {
		return nil, upstream("users/@me/guilds", err)
	}
	var guilds []*discordgo.UserGuild
	err = c.call(ctx, "users/@me/guilds", func(ctx context.Context) error {
		var err error
		guilds, err = s.UserGuilds(200, "", "", false, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, err
	}
	return FilterManaged(guilds), nil
}

func (c *Client) GuildChannels(ctx context.Context, guildID string) ([]Channel, error) {
	s, err := c.botSession()
	if err != nil {
		return nil, err
	}
	var channels []*discordgo.Channel
	err = c.call(ctx, "guilds/channels", func(ctx context.Context) error {
		var err error
		channels, err = s.GuildChannels(guildID, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, err
	}
	return FilterChannels(channels), nil
}

func (c *Client) GuildRoles(ctx context.Context, guildID string) ([]Role, error) {
	s, err := c.botSession()
	if err != nil {
		return nil, err
	}
	var roles []*discordgo.Role
	err = c.call(ctx, "guilds/roles", func(ctx context.Context) error {
		var err error
		roles, err = s.GuildRoles(guildID, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, err
	}
	return ProjectRoles(guildID, roles), nil
}

// GuildInfo returns the guild with its approximate member count.
func (c *Client) GuildInfo(ctx context.Context, guildID string) (*GuildInfo, error) {
	s, err := c.botSession()
	if err != nil {
		return nil, err
	}
	var g *discordgo.Guild
	err = c.call(ctx, "guilds", func(ctx context.Context) error {
		var err error
		g, err = s.GuildWithCounts(guildID, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, err
	}
	return projectGuild(g), nil
}
