package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/internal/service"
	"github.com/Gopher0727/HappyBot/utils/snowflake"
)

// invocation is one slash command call being handled.
type invocation struct {
	ctx         context.Context
	api         Discord
	interaction *discordgo.Interaction
	data        discordgo.ApplicationCommandInteractionData
	options     map[string]*discordgo.ApplicationCommandInteractionDataOption

	guildID  model.Snowflake
	deferred bool
	answered bool
}

func newInvocation(ctx context.Context, api Discord, i *discordgo.Interaction) (*invocation, error) {
	data := i.ApplicationCommandData()
	inv := &invocation{
		ctx:         ctx,
		api:         api,
		interaction: i,
		data:        data,
		options:     make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options)),
	}
	for _, opt := range data.Options {
		inv.options[opt.Name] = opt
	}

	id, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return nil, errNotInGuild
	}
	inv.guildID = model.Snowflake(id)
	return inv, nil
}

var errNotInGuild = errors.New("command used outside a server")

// caller is the user who ran the command.
func (inv *invocation) caller() *discordgo.User {
	if inv.interaction.Member != nil && inv.interaction.Member.User != nil {
		return inv.interaction.Member.User
	}
	return inv.interaction.User
}

func (inv *invocation) callerID() model.Snowflake {
	return userSnowflake(inv.caller())
}

func (inv *invocation) str(name, fallback string) string {
	if opt, ok := inv.options[name]; ok {
		if v := strings.TrimSpace(opt.StringValue()); v != "" {
			return v
		}
	}
	return fallback
}

func (inv *invocation) integer(name string) (int64, bool) {
	opt, ok := inv.options[name]
	if !ok {
		return 0, false
	}
	return opt.IntValue(), true
}

func (inv *invocation) boolean(name string) bool {
	opt, ok := inv.options[name]
	return ok && opt.BoolValue()
}

// user resolves a user option, falling back to the caller when the option
// was not supplied.
func (inv *invocation) user(name string) *discordgo.User {
	opt, ok := inv.options[name]
	if !ok {
		return inv.caller()
	}
	id, _ := opt.Value.(string)
	if inv.data.Resolved != nil {
		if u, ok := inv.data.Resolved.Users[id]; ok {
			return u
		}
	}
	return &discordgo.User{ID: id}
}

// member resolves the guild member behind a user option, or the caller.
// The returned member carries its user.
func (inv *invocation) member(name string) *discordgo.Member {
	opt, ok := inv.options[name]
	if !ok {
		if inv.interaction.Member != nil {
			return inv.interaction.Member
		}
		return &discordgo.Member{User: inv.caller()}
	}

	id, _ := opt.Value.(string)
	u := inv.user(name)
	m := &discordgo.Member{User: u}
	if inv.data.Resolved != nil {
		if resolved, ok := inv.data.Resolved.Members[id]; ok {
			cp := *resolved
			cp.User = u
			m = &cp
		}
	}
	return m
}

// channel returns the channel option, if supplied.
func (inv *invocation) channel(name string) (model.Snowflake, bool) {
	opt, ok := inv.options[name]
	if !ok {
		return 0, false
	}
	raw, _ := opt.Value.(string)
	id, err := snowflake.Parse(raw)
	if err != nil {
		return 0, false
	}
	return model.Snowflake(id), true
}

func (inv *invocation) respond(data *discordgo.InteractionResponseData) error {
	if inv.deferred {
		_, err := inv.api.FollowupMessageCreate(inv.interaction, true, &discordgo.WebhookParams{
			Content: data.Content,
			Embeds:  data.Embeds,
			Flags:   data.Flags,
		}, discordgo.WithContext(inv.ctx))
		if err == nil {
			inv.answered = true
		}
		return err
	}

	err := inv.api.InteractionRespond(inv.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(inv.ctx))
	if err == nil {
		inv.answered = true
	}
	return err
}

// embed answers publicly with an embed.
func (inv *invocation) embed(e *discordgo.MessageEmbed) error {
	return inv.respond(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{e}})
}

// privateEmbed answers with an embed only the caller sees.
func (inv *invocation) privateEmbed(e *discordgo.MessageEmbed) error {
	return inv.respond(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{e},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
}

// private answers with text only the caller sees.
func (inv *invocation) private(content string) error {
	return inv.respond(&discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// deferPrivate acknowledges the command; the answer follows later and is
// only visible to the caller.
func (inv *invocation) deferPrivate() error {
	err := inv.api.InteractionRespond(inv.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(inv.ctx))
	if err != nil {
		return err
	}
	inv.deferred = true
	return nil
}

// failureText is the ephemeral reply for a failed command. Only validation
// reasons and Discord's own error message reach the user.
func failureText(action string, err error) string {
	if verr, ok := service.AsValidation(err); ok {
		return "❌ " + upperFirst(verr.Field) + " " + verr.Reason
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Message != "" {
		return "❌ Failed to " + action + ": " + restErr.Message.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "❌ Failed to " + action + ": Discord did not answer in time"
	}
	return "❌ Failed to " + action
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func userSnowflake(u *discordgo.User) model.Snowflake {
	if u == nil {
		return 0
	}
	id, _ := snowflake.Parse(u.ID)
	return model.Snowflake(id)
}
