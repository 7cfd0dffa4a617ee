package model

import "time"

// Warn is a moderator warning. Ids come from one global sequence and are
// never reused.
type Warn struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID     Snowflake `gorm:"not null;index:idx_warns_guild_created,priority:1;index:idx_warns_guild_user,priority:1" json:"guild_id"`
	UserID      Snowflake `gorm:"not null;index:idx_warns_guild_user,priority:2" json:"user_id"`
	ModeratorID Snowflake `gorm:"not null" json:"moderator_id"`
	Reason      string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt   time.Time `gorm:"not null;index:idx_warns_guild_created,priority:2" json:"created_at"`
}

func (Warn) TableName() string {
	return "warns"
}
