package bot

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/internal/service"
	"github.com/Gopher0727/HappyBot/utils/snowflake"
)

const (
	defaultReason = "No reason provided"

	// bulk delete only accepts messages younger than this
	bulkDeleteMaxAge = 14 * 24 * time.Hour

	warningsShown = 10
)

// auditReason is the reason shown in the guild audit log.
func auditReason(reason string, moderator *discordgo.User) string {
	return fmt.Sprintf("%s (by %s)", reason, moderator.String())
}

func moderationEmbed(title, description string, color int, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields:      fields,
	}
}

func field(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value}
}

func inlineField(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}

func (b *Bot) ban(inv *invocation) error {
	target := inv.user("member")
	reason := inv.str("reason", defaultReason)
	moderator := inv.caller()

	err := b.api.GuildBanCreateWithReason(inv.guildID.String(), target.ID, auditReason(reason, moderator), 0,
		discordgo.WithContext(inv.ctx))
	if err != nil {
		return err
	}
	b.svc.Analytics.Record(inv.ctx, inv.guildID, model.EventModerationBan,
		fmt.Sprintf("User %s banned by %s", target.ID, moderator.ID))

	return inv.embed(moderationEmbed("✓ Member Banned", target.Mention()+" has been banned", colorRed,
		field("Reason", reason),
		field("Moderator", moderator.Mention()),
	))
}

func (b *Bot) kick(inv *invocation) error {
	target := inv.user("member")
	reason := inv.str("reason", defaultReason)
	moderator := inv.caller()

	err := b.api.GuildMemberDeleteWithReason(inv.guildID.String(), target.ID, auditReason(reason, moderator),
		discordgo.WithContext(inv.ctx))
	if err != nil {
		return err
	}
	b.svc.Analytics.Record(inv.ctx, inv.guildID, model.EventModerationKick,
		fmt.Sprintf("User %s kicked by %s", target.ID, moderator.ID))

	return inv.embed(moderationEmbed("✓ Member Kicked", target.Mention()+" has been kicked", colorOrange,
		field("Reason", reason),
		field("Moderator", moderator.Mention()),
	))
}

func (b *Bot) timeout(inv *invocation) error {
	target := inv.user("member")
	reason := inv.str("reason", defaultReason)
	moderator := inv.caller()

	minutes, _ := inv.integer("duration")
	if minutes < minTimeoutMinutes || minutes > maxTimeoutMinutes {
		return &service.ValidationError{
			Field:  "duration",
			Reason: fmt.Sprintf("must be between %d and %d minutes", minTimeoutMinutes, maxTimeoutMinutes),
		}
	}

	until := b.now().Add(time.Duration(minutes) * time.Minute)
	err := b.api.GuildMemberTimeout(inv.guildID.String(), target.ID, &until,
		discordgo.WithContext(inv.ctx), discordgo.WithAuditLogReason(auditReason(reason, moderator)))
	if err != nil {
		return err
	}
	b.svc.Analytics.Record(inv.ctx, inv.guildID, model.EventModerationTimeout,
		fmt.Sprintf("User %s timed out for %dm by %s", target.ID, minutes, moderator.ID))

	return inv.embed(moderationEmbed("✓ Member Timed Out", target.Mention()+" has been timed out", colorYellow,
		field("Duration", fmt.Sprintf("%d minutes", minutes)),
		field("Reason", reason),
		field("Moderator", moderator.Mention()),
	))
}

// purge deletes up to amount recent messages of the channel. Messages older
// than the bulk delete window are left alone.
func (b *Bot) purge(inv *invocation) error {
	amount, _ := inv.integer("amount")
	if amount < minPurge || amount > maxPurge {
		return &service.ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("must be between %d and %d", minPurge, maxPurge),
		}
	}

	if err := inv.deferPrivate(); err != nil {
		return err
	}

	channelID := inv.interaction.ChannelID
	messages, err := b.api.ChannelMessages(channelID, int(amount), "", "", "", discordgo.WithContext(inv.ctx))
	if err != nil {
		return err
	}

	now := b.now()
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		id, err := snowflake.Parse(m.ID)
		if err != nil || snowflake.OlderThan(id, bulkDeleteMaxAge, now) {
			continue
		}
		ids = append(ids, m.ID)
	}

	if len(ids) > 0 {
		if err := b.api.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(inv.ctx)); err != nil {
			return err
		}
	}
	b.svc.Analytics.Record(inv.ctx, inv.guildID, model.EventModerationPurge,
		fmt.Sprintf("%d messages purged in %s by %s", len(ids), channelID, inv.caller().ID))

	return inv.private(fmt.Sprintf("✓ Deleted %d messages", len(ids)))
}

func (b *Bot) warn(inv *invocation) error {
	target := inv.user("member")
	moderator := inv.caller()
	reason := inv.str("reason", "")

	id, err := b.svc.Warns.Add(inv.ctx, inv.guildID, userSnowflake(target), userSnowflake(moderator), reason)
	if err != nil {
		return err
	}
	b.svc.Analytics.Record(inv.ctx, inv.guildID, model.EventModerationWarn,
		fmt.Sprintf("User %s warned by %s", target.ID, moderator.ID))

	// 警告已保存，总数只用于展示
	total := "?"
	if n, err := b.svc.Warns.Count(inv.ctx, inv.guildID, userSnowflake(target)); err == nil {
		total = strconv.FormatInt(n, 10)
	} else {
		b.log.BestEffort(inv.ctx, "bot.warn_count", err)
	}

	embed := moderationEmbed("⚠️ Member Warned", target.Mention()+" has been warned", colorGold,
		field("Reason", reason),
		field("Total Warnings", total),
		field("Moderator", moderator.Mention()),
	)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Warning ID: %d", id)}
	if err := inv.embed(embed); err != nil {
		return err
	}

	b.dmWarning(inv, target, reason, total)
	return nil
}

// dmWarning tells the warned member. Members with closed DMs are common, so
// failure is only logged.
func (b *Bot) dmWarning(inv *invocation, target *discordgo.User, reason, total string) {
	guildName, _ := b.guildNameAndCount(inv.guildID.String())
	if guildName == "" {
		guildName = "the server"
	}

	ch, err := b.api.UserChannelCreate(target.ID, discordgo.WithContext(inv.ctx))
	if err == nil {
		_, err = b.api.ChannelMessageSendEmbed(ch.ID, moderationEmbed(
			"⚠️ Warning from "+guildName, "You have been warned", colorGold,
			field("Reason", reason),
			field("Total Warnings", total),
		), discordgo.WithContext(inv.ctx))
	}
	b.log.BestEffort(inv.ctx, "bot.warn_dm", err)
}

func (b *Bot) warnings(inv *invocation) error {
	member := inv.member("member")
	userID := userSnowflake(member.User)

	warns, err := b.svc.Warns.List(inv.ctx, inv.guildID, &userID)
	if err != nil {
		return err
	}
	if len(warns) == 0 {
		return inv.private(member.User.Mention() + " has no warnings")
	}

	embed := &discordgo.MessageEmbed{
		Title:  "⚠️ Warnings for " + displayName(member),
		Color:  colorGold,
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Total warnings: %d", len(warns))},
	}
	for _, w := range warns[:min(len(warns), warningsShown)] {
		embed.Fields = append(embed.Fields, field(
			fmt.Sprintf("Warning #%d", w.ID),
			fmt.Sprintf("**Reason:** %s\n**By:** <@%s>\n**Date:** %s",
				w.Reason, w.ModeratorID, w.CreatedAt.UTC().Format("2006-01-02 15:04:05")),
		))
	}
	return inv.privateEmbed(embed)
}

func (b *Bot) clearWarn(inv *invocation) error {
	id, _ := inv.integer("warn_id")
	removed, err := b.svc.Warns.Remove(inv.ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return inv.private(fmt.Sprintf("❌ Warning #%d not found", id))
	}
	b.svc.Analytics.Record(inv.ctx, inv.guildID, model.EventModerationClearWarn,
		fmt.Sprintf("Warning %d removed by %s", id, inv.caller().ID))
	return inv.private(fmt.Sprintf("✓ Warning #%d has been removed", id))
}

func displayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	return m.User.DisplayName()
}
