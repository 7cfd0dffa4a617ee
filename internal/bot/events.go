package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/utils/snowflake"
)

const (
	colorRed    = 0xe74c3c
	colorOrange = 0xe67e22
	colorYellow = 0xfee75c
	colorGold   = 0xf1c40f
	colorGreen  = 0x2ecc71
	colorBlue   = 0x3498db

	fieldValueLimit = 1024
	noContent       = "*No content*"
)

func parseGuildID(raw string) model.Snowflake {
	id, err := snowflake.Parse(raw)
	if err != nil {
		return 0
	}
	return model.Snowflake(id)
}

// markKnown records the guilds listed in Ready. It runs on the gateway event
// loop so that the GuildCreate events that follow are not taken for joins.
func (b *Bot) markKnown(guilds []*discordgo.Guild) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, g := range guilds {
		b.known[g.ID] = struct{}{}
	}
	return len(b.known)
}

func (b *Bot) onReady(ctx context.Context, r *discordgo.Ready) {
	n := b.markKnown(r.Guilds)

	b.log.InfoContext(ctx, "已登录",
		zap.String("user", r.User.String()),
		zap.String("user_id", r.User.ID),
		zap.Int("guilds", n),
	)

	b.updatePresence(ctx, n)

	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}
	defs := definitions(b.commands)
	if _, err := b.api.ApplicationCommandBulkOverwrite(appID, "", defs, discordgo.WithContext(ctx)); err != nil {
		b.log.ErrorContext(ctx, "failed to sync slash commands", zap.Error(err))
		return
	}
	b.log.InfoContext(ctx, "slash commands synced", zap.Int("commands", len(defs)))
}

func (b *Bot) updatePresence(ctx context.Context, guilds int) {
	err := b.api.UpdateWatchStatus(0, fmt.Sprintf("%d Servers.", guilds))
	b.log.BestEffort(ctx, "bot.presence", err)
}

// onGuildCreate records guilds the bot joins. Guilds announced by Ready
// becoming available again are not joins.
func (b *Bot) onGuildCreate(ctx context.Context, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	b.mu.Lock()
	_, seen := b.known[g.ID]
	b.known[g.ID] = struct{}{}
	n := len(b.known)
	b.mu.Unlock()
	if seen {
		return
	}

	id := parseGuildID(g.ID)
	if id == 0 {
		return
	}
	if err := b.svc.Guilds.Join(ctx, id, g.Name); err != nil {
		b.log.ErrorContext(ctx, "failed to record guild join", zap.Error(err))
	}
	b.log.InfoContext(ctx, "joined guild", zap.String("name", g.Name))
	b.updatePresence(ctx, n)
}

// onGuildDelete records the bot leaving a guild. An outage also arrives as
// GuildDelete, marked unavailable, and is ignored.
func (b *Bot) onGuildDelete(ctx context.Context, g *discordgo.GuildDelete) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	b.mu.Lock()
	delete(b.known, g.ID)
	n := len(b.known)
	b.mu.Unlock()

	id := parseGuildID(g.ID)
	if id == 0 {
		return
	}
	name := g.Name
	if name == "" && g.BeforeDelete != nil {
		name = g.BeforeDelete.Name
	}
	b.svc.Guilds.Leave(ctx, id, name)
	b.log.InfoContext(ctx, "left guild", zap.String("name", name))
	b.updatePresence(ctx, n)
}

// renderWelcome fills the welcome template.
func renderWelcome(template, userMention, guildName string, memberCount int) string {
	return strings.NewReplacer(
		"{user}", userMention,
		"{guild}", guildName,
		"{membercount}", strconv.Itoa(memberCount),
	).Replace(template)
}

func (b *Bot) guildNameAndCount(guildID string) (string, int) {
	g, ok := b.api.CachedGuild(guildID)
	if !ok {
		return "", 0
	}
	return g.Name, g.MemberCount
}

func (b *Bot) onMemberAdd(ctx context.Context, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil {
		return
	}
	guildID := parseGuildID(m.GuildID)
	if guildID == 0 {
		return
	}

	settings, err := b.svc.Settings.Get(ctx, guildID)
	if err != nil {
		b.log.ErrorContext(ctx, "failed to load settings", zap.Error(err))
	} else if channel, ok := settings.WelcomeTarget(); ok {
		name, count := b.guildNameAndCount(m.GuildID)
		embed := &discordgo.MessageEmbed{
			Title:       "👋 Welcome!",
			Description: renderWelcome(settings.WelcomeMessage, m.User.Mention(), name, count),
			Color:       colorGreen,
			Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: m.AvatarURL("")},
			Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Member #%d", count)},
		}
		b.send(ctx, "bot.welcome", channel, embed)
	}

	b.svc.Analytics.Record(ctx, guildID, model.EventMemberJoin, fmt.Sprintf("User %s joined", m.User.ID))
}

func (b *Bot) onMemberRemove(ctx context.Context, m *discordgo.GuildMemberRemove) {
	if m.Member == nil || m.User == nil {
		return
	}
	guildID := parseGuildID(m.GuildID)
	if guildID == 0 {
		return
	}

	settings, err := b.svc.Settings.Get(ctx, guildID)
	if err != nil {
		b.log.ErrorContext(ctx, "failed to load settings", zap.Error(err))
	} else if channel, ok := settings.LeaveTarget(); ok {
		_, count := b.guildNameAndCount(m.GuildID)
		embed := &discordgo.MessageEmbed{
			Title:       "👋 Goodbye",
			Description: m.User.Mention() + " has left the server",
			Color:       colorRed,
			Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: m.User.AvatarURL("")},
			Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Members: %d", count)},
		}
		b.send(ctx, "bot.goodbye", channel, embed)
	}

	b.svc.Analytics.Record(ctx, guildID, model.EventMemberLeave, fmt.Sprintf("User %s left", m.User.ID))
}

// loggable reports whether m is a guild message by a human, the only kind
// the message log covers.
func loggable(m *discordgo.Message) bool {
	return m != nil && m.GuildID != "" && m.Author != nil && !m.Author.Bot
}

func clip(content string) string {
	if content == "" {
		return noContent
	}
	runes := []rune(content)
	if len(runes) > fieldValueLimit {
		return string(runes[:fieldValueLimit])
	}
	return content
}

// logTarget returns the message log channel of the guild, if enabled.
func (b *Bot) logTarget(ctx context.Context, rawGuildID string) (model.Snowflake, bool) {
	guildID := parseGuildID(rawGuildID)
	if guildID == 0 {
		return 0, false
	}
	settings, err := b.svc.Settings.Get(ctx, guildID)
	if err != nil {
		b.log.ErrorContext(ctx, "failed to load settings", zap.Error(err))
		return 0, false
	}
	return settings.LogTarget()
}

// onMessageDelete logs deleted messages the state still remembers.
func (b *Bot) onMessageDelete(ctx context.Context, e *discordgo.MessageDelete) {
	before := e.BeforeDelete
	if before == nil {
		return
	}
	if before.GuildID == "" {
		before.GuildID = e.GuildID
	}
	if !loggable(before) {
		return
	}
	channel, ok := b.logTarget(ctx, before.GuildID)
	if !ok {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "🗑️ Message Deleted",
		Color: colorRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Author", Value: before.Author.Mention(), Inline: true},
			{Name: "Channel", Value: "<#" + before.ChannelID + ">", Inline: true},
			{Name: "Content", Value: clip(before.Content)},
		},
		Timestamp: b.now().UTC().Format(time.RFC3339),
	}
	b.send(ctx, "bot.message_log", channel, embed)
}

// onMessageUpdate logs content edits. Embed unfurls and other updates that
// leave the text alone are skipped.
func (b *Bot) onMessageUpdate(ctx context.Context, e *discordgo.MessageUpdate) {
	before := e.BeforeUpdate
	if before == nil || e.Message == nil {
		return
	}
	if before.GuildID == "" {
		before.GuildID = e.GuildID
	}
	if !loggable(before) || before.Content == e.Content {
		return
	}
	channel, ok := b.logTarget(ctx, before.GuildID)
	if !ok {
		return
	}

	jump := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", before.GuildID, e.ChannelID, e.ID)
	embed := &discordgo.MessageEmbed{
		Title: "✏️ Message Edited",
		Color: colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Author", Value: before.Author.Mention(), Inline: true},
			{Name: "Channel", Value: "<#" + e.ChannelID + ">", Inline: true},
			{Name: "Before", Value: clip(before.Content)},
			{Name: "After", Value: clip(e.Content)},
			{Name: "Jump to Message", Value: "[Click here](" + jump + ")"},
		},
		Timestamp: b.now().UTC().Format(time.RFC3339),
	}
	b.send(ctx, "bot.message_log", channel, embed)
}

// send posts embed to channel. Failures are logged and otherwise ignored.
func (b *Bot) send(ctx context.Context, op string, channel model.Snowflake, embed *discordgo.MessageEmbed) {
	_, err := b.api.ChannelMessageSendEmbed(channel.String(), embed, discordgo.WithContext(ctx))
	b.log.BestEffort(ctx, op, err, zap.String("channel_id", channel.String()))
}

// onInteraction routes a slash command to its handler and turns a handler
// error into an ephemeral failure reply.
func (b *Bot) onInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	cmd, ok := b.commands[name]
	if !ok {
		b.log.WarnContext(ctx, "unknown command", zap.String("command", name))
		return
	}

	inv, err := newInvocation(ctx, b.api, i)
	if err != nil {
		inv = &invocation{ctx: ctx, api: b.api, interaction: i}
		b.log.BestEffort(ctx, "bot.reply", inv.private("❌ This command can only be used in a server"))
		return
	}

	start := b.now()
	err = cmd.run(b, inv)
	fields := []zap.Field{
		zap.String("command", name),
		zap.String("user_id", inv.callerID().String()),
		zap.Duration("latency", b.now().Sub(start)),
	}
	if err == nil {
		b.log.InfoContext(ctx, "command handled", fields...)
		return
	}

	b.log.WarnContext(ctx, "command failed", append(fields, zap.Error(err))...)
	if inv.answered {
		return
	}
	b.log.BestEffort(ctx, "bot.reply", inv.private(failureText(cmd.action, err)))
}
