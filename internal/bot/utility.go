package bot

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Gopher0727/HappyBot/internal/discord"
	"github.com/Gopher0727/HappyBot/internal/service"
	"github.com/Gopher0727/HappyBot/utils/snowflake"
)

const rolesShown = 10

var verificationLevels = map[discordgo.VerificationLevel]string{
	discordgo.VerificationLevelNone:     "None",
	discordgo.VerificationLevelLow:      "Low",
	discordgo.VerificationLevelMedium:   "Medium",
	discordgo.VerificationLevelHigh:     "High",
	discordgo.VerificationLevelVeryHigh: "Highest",
}

// relative renders t as a Discord relative timestamp.
func relative(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func (b *Bot) ping(inv *invocation) error {
	ms := b.api.Latency().Milliseconds()
	color := colorGreen
	if ms >= 100 {
		color = colorOrange
	}
	return inv.embed(&discordgo.MessageEmbed{
		Title:       "🏓 Pong!",
		Description: fmt.Sprintf("Latency: **%dms**", ms),
		Color:       color,
	})
}

// formatUptime renders d as "Xd Xh Xm Xs".
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

func (b *Bot) uptime(inv *invocation) error {
	return inv.embed(&discordgo.MessageEmbed{
		Title:       "⏰ Bot Uptime",
		Description: "**" + formatUptime(b.Uptime()) + "**",
		Color:       colorBlue,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Started at " + b.started.Format("2006-01-02 15:04:05") + " UTC",
		},
	})
}

// guild prefers the gateway cache and falls back to a REST lookup.
func (b *Bot) guild(inv *invocation) (*discordgo.Guild, error) {
	if g, ok := b.api.CachedGuild(inv.guildID.String()); ok {
		return g, nil
	}
	return b.api.GuildWithCounts(inv.guildID.String(), discordgo.WithContext(inv.ctx))
}

func (b *Bot) serverInfo(inv *invocation) error {
	g, err := b.guild(inv)
	if err != nil {
		return err
	}

	owner := "Unknown"
	if g.OwnerID != "" {
		owner = "<@" + g.OwnerID + ">"
	}
	members := g.MemberCount
	if members == 0 {
		members = g.ApproximateMemberCount
	}
	created := snowflake.Time(int64(inv.guildID))

	embed := &discordgo.MessageEmbed{
		Title: "📊 " + g.Name,
		Color: colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			inlineField("Owner", owner),
			inlineField("Server ID", inv.guildID.String()),
			inlineField("Created", relative(created)),
			inlineField("Members", strconv.Itoa(members)),
			inlineField("Roles", strconv.Itoa(len(g.Roles))),
			inlineField("Channels", strconv.Itoa(len(g.Channels))),
			inlineField("Boost Level", fmt.Sprintf("Level %d", g.PremiumTier)),
			inlineField("Boosts", strconv.Itoa(g.PremiumSubscriptionCount)),
			inlineField("Verification", verificationLevels[g.VerificationLevel]),
		},
	}
	if g.Icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.IconURL("")}
	}
	return inv.embed(embed)
}

func roleList(roles []string) string {
	mentions := make([]string, 0, min(len(roles), rolesShown))
	for _, id := range roles[:min(len(roles), rolesShown)] {
		mentions = append(mentions, "<@&"+id+">")
	}
	out := strings.Join(mentions, " ")
	if len(roles) > rolesShown {
		out += fmt.Sprintf(" (+%d more)", len(roles)-rolesShown)
	}
	return out
}

func (b *Bot) userInfo(inv *invocation) error {
	m := inv.member("member")
	u := m.User
	if m.GuildID == "" {
		m.GuildID = inv.guildID.String()
	}

	nick := m.Nick
	if nick == "" {
		nick = "None"
	}
	isBot := "No"
	if u.Bot {
		isBot = "Yes"
	}
	joined := "Unknown"
	if !m.JoinedAt.IsZero() {
		joined = relative(m.JoinedAt)
	}
	createdAt := "Unknown"
	if id, err := snowflake.Parse(u.ID); err == nil {
		createdAt = relative(snowflake.Time(id))
	}

	embed := &discordgo.MessageEmbed{
		Title:     "👤 " + u.String(),
		Color:     colorBlue,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: m.AvatarURL("")},
		Fields: []*discordgo.MessageEmbedField{
			inlineField("ID", u.ID),
			inlineField("Nickname", nick),
			inlineField("Bot", isBot),
			inlineField("Account Created", createdAt),
			inlineField("Joined Server", joined),
		},
	}
	if len(m.Roles) > 0 {
		embed.Fields = append(embed.Fields, field(fmt.Sprintf("Roles [%d]", len(m.Roles)), roleList(m.Roles)))
	}
	return inv.embed(embed)
}

// avatarLinks lists the avatar in each static format Discord serves.
func avatarLinks(u *discordgo.User) string {
	base := fmt.Sprintf("%s/avatars/%s/%s", discord.CDNBase, u.ID, u.Avatar)
	links := make([]string, 0, 3)
	for _, format := range []string{"png", "jpg", "webp"} {
		links = append(links, fmt.Sprintf("[%s](%s.%s?size=1024)", strings.ToUpper(format), base, format))
	}
	return strings.Join(links, " | ")
}

func (b *Bot) avatar(inv *invocation) error {
	u := inv.user("member")
	embed := &discordgo.MessageEmbed{
		Title: "🖼️ " + u.String() + "'s Avatar",
		Color: colorBlue,
		Image: &discordgo.MessageEmbedImage{URL: u.AvatarURL("1024")},
	}
	if u.Avatar != "" {
		embed.Fields = []*discordgo.MessageEmbedField{field("Links", avatarLinks(u))}
	}
	return inv.embed(embed)
}

// eventTitle turns "moderation_ban" into "Moderation Ban".
func eventTitle(eventType string) string {
	words := strings.Split(eventType, "_")
	for i, w := range words {
		words[i] = upperFirst(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

type eventCount struct {
	eventType string
	count     int
}

// countEvents tallies event types, most frequent first and ties by name.
func countEvents(types []string) []eventCount {
	tally := make(map[string]int)
	for _, t := range types {
		tally[t]++
	}
	out := make([]eventCount, 0, len(tally))
	for t, n := range tally {
		out = append(out, eventCount{eventType: t, count: n})
	}
	slices.SortFunc(out, func(a, b eventCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return strings.Compare(a.eventType, b.eventType)
	})
	return out
}

func (b *Bot) analyticsSummary(inv *invocation) error {
	events, err := b.svc.Analytics.Recent(inv.ctx, inv.guildID, service.AnalyticsPageSize)
	if err != nil {
		return err
	}

	name, _ := b.guildNameAndCount(inv.guildID.String())
	if name == "" {
		name = inv.guildID.String()
	}
	embed := &discordgo.MessageEmbed{
		Title:  "📊 Analytics for " + name,
		Color:  colorBlue,
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Showing last %d events", len(events))},
	}

	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType
	}
	counts := countEvents(types)
	if len(counts) == 0 {
		embed.Description = "No analytics data available yet"
	}
	for _, c := range counts {
		embed.Fields = append(embed.Fields, inlineField(eventTitle(c.eventType), strconv.Itoa(c.count)))
	}
	return inv.embed(embed)
}
