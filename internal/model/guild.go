package model

import "time"

// Guild is a Discord server the bot has been seen in. Rows are never deleted.
type Guild struct {
	GuildID  Snowflake `gorm:"primaryKey;autoIncrement:false" json:"guild_id"`
	Name     string    `gorm:"type:varchar(100);not null" json:"name"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

func (Guild) TableName() string {
	return "guilds"
}
