package bot

import (
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	minTimeoutMinutes = 1
	maxTimeoutMinutes = 40320 // 28 天，Discord 的上限

	minPurge = 1
	maxPurge = 100

	maxWarnReason = 512
)

func perm(p int64) *int64 {
	return &p
}

func memberOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func maxLength(opt *discordgo.ApplicationCommandOption, n int) *discordgo.ApplicationCommandOption {
	opt.MaxLength = n
	return opt
}

func intOption(name, description string, lo, hi int) *discordgo.ApplicationCommandOption {
	lower := float64(lo)
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    true,
		MinValue:    &lower,
		MaxValue:    float64(hi),
	}
}

func enabledOption(what string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "enabled",
		Description: "Enable or disable " + what,
		Required:    true,
	}
}

func textChannelOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "channel",
		Description:  description,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
	}
}

// command is one slash command: its registration and its handler.
type command struct {
	def *discordgo.ApplicationCommand
	// action completes "Failed to ..." when the handler errors.
	action string
	run    func(b *Bot, inv *invocation) error
}

// commandSet lists every slash command the bot registers, by name.
func commandSet() map[string]*command {
	cmds := []*command{
		// moderation
		{
			def: &discordgo.ApplicationCommand{
				Name:                     "ban",
				Description:              "Ban a member from the server",
				DefaultMemberPermissions: perm(discordgo.PermissionBanMembers),
				Options: []*discordgo.ApplicationCommandOption{
					memberOption("member", "The member to ban", true),
					stringOption("reason", "Reason for the ban", false),
				},
			},
			action: "ban member",
			run:    (*Bot).ban,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:                     "kick",
				Description:              "Kick a member from the server",
				DefaultMemberPermissions: perm(discordgo.PermissionKickMembers),
				Options: []*discordgo.ApplicationCommandOption{
					memberOption("member", "The member to kick", true),
					stringOption("reason", "Reason for the kick", false),
				},
			},
			action: "kick member",
			run:    (*Bot).kick,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:                     "timeout",
				Description:              "Timeout a member",
				DefaultMemberPermissions: perm(discordgo.PermissionModerateMembers),
				Options: []*discordgo.ApplicationCommandOption{
					memberOption("member", "The member to timeout", true),
					intOption("duration", "Duration in minutes", minTimeoutMinutes, maxTimeoutMinutes),
					stringOption("reason", "Reason for the timeout", false),
				},
			},
			action: "timeout member",
			run:    (*Bot).timeout,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:                     "purge",
				Description:              "Delete multiple messages",
				DefaultMemberPermissions: perm(discordgo.PermissionManageMessages),
				Options: []*discordgo.ApplicationCommandOption{
					intOption("amount", "Number of messages to delete (1-100)", minPurge, maxPurge),
				},
			},
			action: "purge messages",
			run:    (*Bot).purge,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:                     "warn",
				Description:              "Warn a member",
				DefaultMemberPermissions: perm(discordgo.PermissionModerateMembers),
				Options: []*discordgo.ApplicationCommandOption{
					memberOption("member", "The member to warn", true),
					maxLength(stringOption("reason", "Reason for the warning", true), maxWarnReason),
				},
			},
			action: "warn member",
			run:    (*Bot).warn,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:                     "warnings",
				Description:              "View warnings for a member",
				DefaultMemberPermissions: perm(discordgo.PermissionModerateMembers),
				Options: []*discordgo.ApplicationCommandOption{
					memberOption("member", "The member to check warnings for", true),
				},
			},
			action: "fetch warnings",
			run:    (*Bot).warnings,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:                     "clearwarn",
				Description:              "Remove a warning",
				DefaultMemberPermissions: perm(discordgo.PermissionModerateMembers),
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "warn_id",
						Description: "The ID of the warning to remove",
						Required:    true,
					},
				},
			},
			action: "remove warning",
			run:    (*Bot).clearWarn,
		},

		// settings
		{
			def: &discordgo.ApplicationCommand{
				Name:                     "setwelcome",
				Description:              "Configure welcome messages",
				DefaultMemberPermissions: perm(discordgo.PermissionManageGuild),
				Options: []*discordgo.ApplicationCommandOption{
					enabledOption("welcome messages"),
					textChannelOption("Channel to send welcome messages"),
					stringOption("message", "Welcome message (use {user}, {guild}, {membercount})", false),
				},
			},
			action: "update settings",
			run:    (*Bot).setWelcome,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:                     "setleavelog",
				Description:              "Configure leave logging",
				DefaultMemberPermissions: perm(discordgo.PermissionManageGuild),
				Options: []*discordgo.ApplicationCommandOption{
					enabledOption("leave logging"),
					textChannelOption("Channel to send leave logs"),
				},
			},
			action: "update settings",
			run:    (*Bot).setLeaveLog,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:                     "setmessagelog",
				Description:              "Configure message logging",
				DefaultMemberPermissions: perm(discordgo.PermissionManageGuild),
				Options: []*discordgo.ApplicationCommandOption{
					enabledOption("message logging"),
					textChannelOption("Channel to send message logs"),
				},
			},
			action: "update settings",
			run:    (*Bot).setMessageLog,
		},

		// utility
		{
			def:    &discordgo.ApplicationCommand{Name: "ping", Description: "Check bot latency"},
			action: "check latency",
			run:    (*Bot).ping,
		},
		{
			def:    &discordgo.ApplicationCommand{Name: "uptime", Description: "Check how long the bot has been running"},
			action: "check uptime",
			run:    (*Bot).uptime,
		},
		{
			def:    &discordgo.ApplicationCommand{Name: "serverinfo", Description: "Get information about the server"},
			action: "fetch server info",
			run:    (*Bot).serverInfo,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:        "userinfo",
				Description: "Get information about a user",
				Options: []*discordgo.ApplicationCommandOption{
					memberOption("member", "The member to get info about (leave empty for yourself)", false),
				},
			},
			action: "fetch user info",
			run:    (*Bot).userInfo,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:        "avatar",
				Description: "Get a user's avatar",
				Options: []*discordgo.ApplicationCommandOption{
					memberOption("member", "The member to get avatar of (leave empty for yourself)", false),
				},
			},
			action: "fetch avatar",
			run:    (*Bot).avatar,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:                     "analytics",
				Description:              "View server analytics",
				DefaultMemberPermissions: perm(discordgo.PermissionManageGuild),
			},
			action: "fetch analytics",
			run:    (*Bot).analyticsSummary,
		},

		// tickets
		{
			def: &discordgo.ApplicationCommand{
				Name:        "ticket",
				Description: "Create a support ticket",
				Options: []*discordgo.ApplicationCommandOption{
					stringOption("reason", "Reason for creating the ticket", false),
				},
			},
			action: "create ticket",
			run:    (*Bot).ticketsInactive,
		},
		{
			def:    &discordgo.ApplicationCommand{Name: "closeticket", Description: "Close a support ticket"},
			action: "close ticket",
			run:    (*Bot).ticketsInactive,
		},
		{
			def:    &discordgo.ApplicationCommand{Name: "setuptickets", Description: "Configure ticket system"},
			action: "configure tickets",
			run:    (*Bot).ticketsInactive,
		},
	}

	set := make(map[string]*command, len(cmds))
	for _, c := range cmds {
		set[c.def.Name] = c
	}
	return set
}

// definitions returns the registrations of set sorted by name.
func definitions(set map[string]*command) []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(set))
	for _, c := range set {
		defs = append(defs, c.def)
	}
	slices.SortFunc(defs, func(a, b *discordgo.ApplicationCommand) int {
		return strings.Compare(a.Name, b.Name)
	})
	return defs
}
