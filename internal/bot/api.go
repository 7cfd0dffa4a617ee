package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord is the part of the gateway session the bot acts through.
type Discord interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)

	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessagesBulkDelete(channelID string, messages []string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)

	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildMemberTimeout(guildID string, userID string, until *time.Time, options ...discordgo.RequestOption) error
	GuildWithCounts(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)

	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	UpdateWatchStatus(idle int, name string) error

	// CachedGuild returns the guild from the gateway state, if tracked.
	CachedGuild(guildID string) (*discordgo.Guild, bool)
	// Latency is the last heartbeat round trip.
	Latency() time.Duration
}

// sessionAPI adapts a live discordgo session to Discord.
type sessionAPI struct {
	*discordgo.Session
}

func (s sessionAPI) CachedGuild(guildID string) (*discordgo.Guild, bool) {
	if s.State == nil {
		return nil, false
	}
	g, err := s.State.Guild(guildID)
	if err != nil {
		return nil, false
	}
	return g, true
}

func (s sessionAPI) Latency() time.Duration {
	return s.HeartbeatLatency()
}
