package model

import "time"

type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// Ticket is a support ticket. Its only transition is open -> closed.
type Ticket struct {
	ID        int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID   Snowflake    `gorm:"not null;index:idx_tickets_guild_created,priority:1" json:"guild_id"`
	ChannelID Snowflake    `gorm:"not null" json:"channel_id"`
	UserID    Snowflake    `gorm:"not null" json:"user_id"`
	Status    TicketStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt time.Time    `gorm:"not null;index:idx_tickets_guild_created,priority:2" json:"created_at"`
	ClosedAt  *time.Time   `json:"closed_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}

func (t *Ticket) IsOpen() bool {
	return t.Status == TicketOpen
}
