package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/internal/service"
	"github.com/Gopher0727/HappyBot/utils/snowflake"
)

func TestBan(t *testing.T) {
	env := newTestEnv(t)

	env.run("ban", userOpt("member", target), strOpt("reason", "Spamming"))

	require.Equal(t, []string{testGuild + "/" + target.ID + "/Spamming (by mod)"}, env.discord.bans)

	r := env.discord.lastReply(t)
	assert.False(t, r.ephemeral)
	require.Len(t, r.embeds, 1)
	assert.Equal(t, "✓ Member Banned", r.embeds[0].Title)
	assert.Equal(t, "<@"+target.ID+"> has been banned", r.embeds[0].Description)
	reason, _ := fieldValue(r.embeds[0], "Reason")
	assert.Equal(t, "Spamming", reason)
	mod, _ := fieldValue(r.embeds[0], "Moderator")
	assert.Equal(t, "<@"+moderator.ID+">", mod)

	events := env.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventModerationBan, events[0].EventType)
	assert.Equal(t, fmt.Sprintf("User %s banned by %s", target.ID, moderator.ID), events[0].EventData)
}

func TestBan_DefaultReason(t *testing.T) {
	env := newTestEnv(t)

	env.run("ban", userOpt("member", target))

	require.Len(t, env.discord.bans, 1)
	assert.Contains(t, env.discord.bans[0], "No reason provided (by mod)")
}

func TestBan_DiscordFailure(t *testing.T) {
	env := newTestEnv(t)
	env.discord.banErr = &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: 50013, Message: "Missing Permissions"},
	}

	env.run("ban", userOpt("member", target), strOpt("reason", "Spamming"))

	r := env.discord.lastReply(t)
	assert.True(t, r.ephemeral)
	assert.Equal(t, "❌ Failed to ban member: Missing Permissions", r.content)
	assert.Empty(t, env.events(t), "a failed ban is not recorded")
}

func TestKick(t *testing.T) {
	env := newTestEnv(t)

	env.run("kick", userOpt("member", target))

	require.Equal(t, []string{testGuild + "/" + target.ID + "/No reason provided (by mod)"}, env.discord.kicks)
	r := env.discord.lastReply(t)
	assert.Equal(t, "✓ Member Kicked", r.embeds[0].Title)

	events := env.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventModerationKick, events[0].EventType)
}

func TestTimeout(t *testing.T) {
	env := newTestEnv(t)

	env.run("timeout", userOpt("member", target), intOpt("duration", 10), strOpt("reason", "Cool off"))

	assert.Equal(t, env.now.Add(10*time.Minute), env.discord.timeouts[target.ID])
	r := env.discord.lastReply(t)
	assert.Equal(t, "✓ Member Timed Out", r.embeds[0].Title)
	d, _ := fieldValue(r.embeds[0], "Duration")
	assert.Equal(t, "10 minutes", d)

	events := env.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, fmt.Sprintf("User %s timed out for 10m by %s", target.ID, moderator.ID), events[0].EventData)
}

func TestTimeout_OutOfRange(t *testing.T) {
	for _, minutes := range []int{0, -5, 40321} {
		env := newTestEnv(t)

		env.run("timeout", userOpt("member", target), intOpt("duration", minutes))

		assert.Empty(t, env.discord.timeouts, "duration %d", minutes)
		r := env.discord.lastReply(t)
		assert.True(t, r.ephemeral)
		assert.Equal(t, "❌ Duration must be between 1 and 40320 minutes", r.content)
	}
}

func TestPurge(t *testing.T) {
	env := newTestEnv(t)
	fresh1 := snowflake.Format(snowflake.FromTime(env.now.Add(-time.Hour)))
	fresh2 := snowflake.Format(snowflake.FromTime(env.now.Add(-13 * 24 * time.Hour)))
	stale := snowflake.Format(snowflake.FromTime(env.now.Add(-15 * 24 * time.Hour)))
	env.discord.history = []*discordgo.Message{{ID: fresh1}, {ID: fresh2}, {ID: stale}}

	env.run("purge", intOpt("amount", 5))

	require.Len(t, env.discord.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, env.discord.responses[0].Type)
	assert.Equal(t, []string{fresh1, fresh2}, env.discord.bulkDeleted)

	r := env.discord.lastReply(t)
	assert.True(t, r.ephemeral)
	assert.Equal(t, "✓ Deleted 2 messages", r.content)

	events := env.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventModerationPurge, events[0].EventType)
	assert.Equal(t, fmt.Sprintf("2 messages purged in %s by %s", testChannel, moderator.ID), events[0].EventData)
}

func TestPurge_OutOfRange(t *testing.T) {
	for _, amount := range []int{0, 101} {
		env := newTestEnv(t)

		env.run("purge", intOpt("amount", amount))

		require.Len(t, env.discord.responses, 1, "no deferral for rejected input")
		assert.Empty(t, env.discord.followups)
		r := env.discord.lastReply(t)
		assert.Equal(t, "❌ Amount must be between 1 and 100", r.content)
		assert.Empty(t, env.discord.bulkDeleted)
	}
}

func TestWarn(t *testing.T) {
	env := newTestEnv(t)

	env.run("warn", userOpt("member", target), strOpt("reason", "Be nice"))

	r := env.discord.lastReply(t)
	require.Len(t, r.embeds, 1)
	assert.Equal(t, "⚠️ Member Warned", r.embeds[0].Title)
	assert.Equal(t, "Warning ID: 1", r.embeds[0].Footer.Text)
	total, _ := fieldValue(r.embeds[0], "Total Warnings")
	assert.Equal(t, "1", total)

	dms := env.discord.sent["dm-"+target.ID]
	require.Len(t, dms, 1)
	assert.Equal(t, "⚠️ Warning from the server", dms[0].Title)

	userID := parseGuildID(target.ID)
	warns, err := env.svc.Warns.List(context.Background(), env.guildID(), &userID)
	require.NoError(t, err)
	require.Len(t, warns, 1)
	assert.Equal(t, "Be nice", warns[0].Reason)
	assert.Equal(t, parseGuildID(moderator.ID), warns[0].ModeratorID)

	events := env.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventModerationWarn, events[0].EventType)
}

func TestWarn_DMFailureIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.discord.dmErr = errors.New("cannot send messages to this user")
	env.discord.guilds[testGuild] = &discordgo.Guild{ID: testGuild, Name: "Cafe"}

	env.run("warn", userOpt("member", target), strOpt("reason", "Be nice"))

	require.Len(t, env.discord.responses, 1, "only the success reply")
	r := env.discord.lastReply(t)
	assert.Equal(t, "⚠️ Member Warned", r.embeds[0].Title)
}

// failingCount saves warns but cannot count them.
type failingCount struct {
	service.IWarnService
}

func (failingCount) Count(context.Context, model.Snowflake, model.Snowflake) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestWarn_CountFailureStillReportsSavedWarn(t *testing.T) {
	env := newTestEnv(t)
	env.bot.svc.Warns = failingCount{env.svc.Warns}

	env.run("warn", userOpt("member", target), strOpt("reason", "Be nice"))

	r := env.discord.lastReply(t)
	assert.False(t, r.ephemeral)
	require.Len(t, r.embeds, 1)
	assert.Equal(t, "⚠️ Member Warned", r.embeds[0].Title)
	assert.Equal(t, "Warning ID: 1", r.embeds[0].Footer.Text)
	total, _ := fieldValue(r.embeds[0], "Total Warnings")
	assert.Equal(t, "?", total)

	events := env.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventModerationWarn, events[0].EventType)
}

func TestWarn_BlankReason(t *testing.T) {
	env := newTestEnv(t)

	env.run("warn", userOpt("member", target), strOpt("reason", "   "))

	r := env.discord.lastReply(t)
	assert.True(t, r.ephemeral)
	assert.Equal(t, "❌ Reason must not be empty", r.content)
	assert.Empty(t, env.events(t))
}

func TestWarnings(t *testing.T) {
	env := newTestEnv(t)

	env.run("warnings", userOpt("member", target))
	r := env.discord.lastReply(t)
	assert.True(t, r.ephemeral)
	assert.Equal(t, "<@"+target.ID+"> has no warnings", r.content)

	userID := parseGuildID(target.ID)
	for i := range 12 {
		_, err := env.svc.Warns.Add(context.Background(), env.guildID(), userID, parseGuildID(moderator.ID), fmt.Sprintf("reason %d", i))
		require.NoError(t, err)
	}

	env.run("warnings", userOpt("member", target))
	r = env.discord.lastReply(t)
	assert.True(t, r.ephemeral)
	require.Len(t, r.embeds, 1)
	assert.Equal(t, "⚠️ Warnings for Nel", r.embeds[0].Title)
	assert.Len(t, r.embeds[0].Fields, 10)
	assert.Equal(t, "Total warnings: 12", r.embeds[0].Footer.Text)
	assert.Contains(t, r.embeds[0].Fields[0].Value, "**By:** <@"+moderator.ID+">")
}

func TestClearWarn(t *testing.T) {
	env := newTestEnv(t)

	env.run("clearwarn", intOpt("warn_id", 99))
	assert.Equal(t, "❌ Warning #99 not found", env.discord.lastReply(t).content)

	id, err := env.svc.Warns.Add(context.Background(), env.guildID(), parseGuildID(target.ID), parseGuildID(moderator.ID), "spam")
	require.NoError(t, err)

	env.run("clearwarn", intOpt("warn_id", int(id)))
	r := env.discord.lastReply(t)
	assert.True(t, r.ephemeral)
	assert.Equal(t, fmt.Sprintf("✓ Warning #%d has been removed", id), r.content)

	events := env.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventModerationClearWarn, events[0].EventType)
}

func TestFailureText(t *testing.T) {
	assert.Equal(t, "❌ Failed to kick member", failureText("kick member", errors.New("db is on fire")))
	assert.Equal(t, "❌ Failed to kick member: Discord did not answer in time",
		failureText("kick member", fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.Equal(t, "❌ Failed to kick member",
		failureText("kick member", &discordgo.RESTError{}), "no message, no detail")
}
