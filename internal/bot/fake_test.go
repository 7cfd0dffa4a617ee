package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/HappyBot/internal/db/dbtest"
	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/internal/repository"
	"github.com/Gopher0727/HappyBot/internal/service"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

const (
	testGuild      = "175928847299117063"
	testChannel    = "222197033908436994"
	testLogChannel = "333197033908436994"
	testAppID      = "111111111111111111"
)

var (
	moderator = &discordgo.User{ID: "80351110224678912", Username: "mod", Discriminator: "0"}
	target    = &discordgo.User{ID: "41771983423143937", Username: "nelly", Discriminator: "0", Avatar: "abc123"}
)

// fakeDiscord records what the bot asks Discord to do.
type fakeDiscord struct {
	mu sync.Mutex

	responses []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
	sent      map[string][]*discordgo.MessageEmbed

	bans        []string
	kicks       []string
	timeouts    map[string]time.Time
	history     []*discordgo.Message
	bulkDeleted []string
	commands    []*discordgo.ApplicationCommand
	commandApp  string
	status      string
	guilds      map[string]*discordgo.Guild
	latency     time.Duration

	banErr error
	dmErr  error
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{
		sent:     make(map[string][]*discordgo.MessageEmbed),
		timeouts: make(map[string]time.Time),
		guilds:   make(map[string]*discordgo.Guild),
	}
}

func (f *fakeDiscord) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeDiscord) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, data)
	return &discordgo.Message{Content: data.Content}, nil
}

func (f *fakeDiscord) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if channelID == "dm-"+target.ID && f.dmErr != nil {
		return nil, f.dmErr
	}
	f.sent[channelID] = append(f.sent[channelID], embed)
	return &discordgo.Message{ChannelID: channelID}, nil
}

func (f *fakeDiscord) ChannelMessages(_ string, limit int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[:min(limit, len(f.history))], nil
}

func (f *fakeDiscord) ChannelMessagesBulkDelete(_ string, messages []string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkDeleted = append(f.bulkDeleted, messages...)
	return nil
}

func (f *fakeDiscord) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeDiscord) GuildBanCreateWithReason(guildID, userID, reason string, _ int, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.banErr != nil {
		return f.banErr
	}
	f.bans = append(f.bans, guildID+"/"+userID+"/"+reason)
	return nil
}

func (f *fakeDiscord) GuildMemberDeleteWithReason(guildID, userID, reason string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicks = append(f.kicks, guildID+"/"+userID+"/"+reason)
	return nil
}

func (f *fakeDiscord) GuildMemberTimeout(_ string, userID string, until *time.Time, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts[userID] = *until
	return nil
}

func (f *fakeDiscord) GuildWithCounts(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.guilds[guildID]; ok {
		return g, nil
	}
	return nil, errors.New("unknown guild")
}

func (f *fakeDiscord) ApplicationCommandBulkOverwrite(appID string, _ string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commandApp = appID
	f.commands = commands
	return commands, nil
}

func (f *fakeDiscord) UpdateWatchStatus(_ int, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = name
	return nil
}

func (f *fakeDiscord) CachedGuild(guildID string) (*discordgo.Guild, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	return g, ok
}

func (f *fakeDiscord) Latency() time.Duration {
	return f.latency
}

// reply is the last thing the bot answered an interaction with, whether a
// direct response or a followup.
type reply struct {
	content   string
	embeds    []*discordgo.MessageEmbed
	ephemeral bool
}

func (f *fakeDiscord) lastReply(t *testing.T) reply {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	if n := len(f.followups); n > 0 {
		p := f.followups[n-1]
		return reply{content: p.Content, embeds: p.Embeds, ephemeral: p.Flags&discordgo.MessageFlagsEphemeral != 0}
	}
	require.NotEmpty(t, f.responses, "no reply sent")
	r := f.responses[len(f.responses)-1]
	return reply{content: r.Data.Content, embeds: r.Data.Embeds, ephemeral: r.Data.Flags&discordgo.MessageFlagsEphemeral != 0}
}

type testEnv struct {
	bot     *Bot
	discord *fakeDiscord
	svc     Services
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Open(t).DB()

	analytics := service.NewAnalyticsService(repository.NewAnalyticsRepository(db), logger.NewNop())
	svc := Services{
		Settings:  service.NewSettingsService(repository.NewSettingsRepository(db)),
		Warns:     service.NewWarnService(repository.NewWarnRepository(db)),
		Analytics: analytics,
		Guilds:    service.NewGuildService(repository.NewGuildRepository(db), analytics),
	}

	fake := newFakeDiscord()
	b := newBot(fake, svc, logger.NewNop())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return &testEnv{bot: b, discord: fake, svc: svc, now: now}
}

func (e *testEnv) guildID() model.Snowflake {
	return parseGuildID(testGuild)
}

func (e *testEnv) events(t *testing.T) []model.AnalyticsEvent {
	t.Helper()
	events, err := e.svc.Analytics.Recent(context.Background(), e.guildID(), 50)
	require.NoError(t, err)
	return events
}

// run invokes a slash command as the moderator in the test guild.
func (e *testEnv) run(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) {
	e.bot.onInteraction(context.Background(), slash(name, opts...))
}

func slash(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "900000000000000001",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   testGuild,
		ChannelID: testChannel,
		Member:    &discordgo.Member{User: moderator},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    name,
			Options: opts,
			Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
				Users: map[string]*discordgo.User{target.ID: target},
				Members: map[string]*discordgo.Member{
					target.ID: {Nick: "Nel", Roles: []string{"501", "502"}},
				},
			},
		},
	}
}

func userOpt(name string, u *discordgo.User) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: u.ID}
}

func strOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func intOpt(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	// JSON numbers decode to float64
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func boolOpt(name string, v bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: v}
}

func channelOpt(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionChannel, Value: id}
}

func fieldValue(embed *discordgo.MessageEmbed, name string) (string, bool) {
	for _, f := range embed.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}
