package bot

import (
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/Gopher0727/HappyBot/internal/model"
)

// togglePatch builds the patch shared by the three settings commands: the
// enabled flag always, the channel only when given.
func togglePatch(inv *invocation, enabled *bool, channel *model.OptionalID) []*discordgo.MessageEmbedField {
	on := inv.boolean("enabled")
	*enabled = on

	fields := []*discordgo.MessageEmbedField{inlineField("Enabled", strconv.FormatBool(on))}
	if id, ok := inv.channel("channel"); ok {
		*channel = model.SetID(id)
		fields = append(fields, inlineField("Channel", id.Mention()))
	}
	return fields
}

func (b *Bot) applySettings(inv *invocation, title string, patch model.SettingsPatch, fields []*discordgo.MessageEmbedField) error {
	if err := b.svc.Settings.Patch(inv.ctx, inv.guildID, patch); err != nil {
		return err
	}
	return inv.embed(&discordgo.MessageEmbed{Title: title, Color: colorGreen, Fields: fields})
}

func (b *Bot) setWelcome(inv *invocation) error {
	var (
		patch   model.SettingsPatch
		enabled bool
	)
	patch.WelcomeEnabled = &enabled
	fields := togglePatch(inv, &enabled, &patch.WelcomeChannelID)

	if msg := inv.str("message", ""); msg != "" {
		patch.WelcomeMessage = &msg
		fields = append(fields, field("Message", msg))
	}
	return b.applySettings(inv, "✓ Welcome Settings Updated", patch, fields)
}

func (b *Bot) setLeaveLog(inv *invocation) error {
	var (
		patch   model.SettingsPatch
		enabled bool
	)
	patch.LeaveEnabled = &enabled
	fields := togglePatch(inv, &enabled, &patch.LeaveChannelID)
	return b.applySettings(inv, "✓ Leave Log Settings Updated", patch, fields)
}

func (b *Bot) setMessageLog(inv *invocation) error {
	var (
		patch   model.SettingsPatch
		enabled bool
	)
	patch.LogEnabled = &enabled
	fields := togglePatch(inv, &enabled, &patch.LogChannelID)
	return b.applySettings(inv, "✓ Message Log Settings Updated", patch, fields)
}

func (b *Bot) ticketsInactive(inv *invocation) error {
	return inv.private("❌ Ticket is not activated on this server")
}
