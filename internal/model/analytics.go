package model

import "time"

// Event types written by the bot.
const (
	EventGuildJoin           = "guild_join"
	EventGuildLeave          = "guild_leave"
	EventMemberJoin          = "member_join"
	EventMemberLeave         = "member_leave"
	EventModerationBan       = "moderation_ban"
	EventModerationKick      = "moderation_kick"
	EventModerationTimeout   = "moderation_timeout"
	EventModerationPurge     = "moderation_purge"
	EventModerationWarn      = "moderation_warn"
	EventModerationClearWarn = "moderation_clearwarn"
	EventSettingsUpdate      = "settings_update"
)

// AnalyticsEvent is one entry of a guild's append-only activity log.
type AnalyticsEvent struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID   Snowflake `gorm:"not null;index:idx_analytics_guild_created,priority:1" json:"guild_id"`
	EventType string    `gorm:"type:varchar(64);not null;index" json:"event_type"`
	EventData string    `gorm:"type:text" json:"event_data"`
	CreatedAt time.Time `gorm:"not null;index:idx_analytics_guild_created,priority:2" json:"created_at"`
}

func (AnalyticsEvent) TableName() string {
	return "analytics"
}

// AnalyticsReport is what the dashboard shows for a guild: the latest page
// of events and counts over the whole log.
type AnalyticsReport struct {
	Events  []AnalyticsEvent `json:"events"`
	Summary map[string]int64 `json:"summary"`
}

// TypeCount is one row of a grouped count.
type TypeCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}
