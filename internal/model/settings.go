package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// DefaultWelcomeMessage is used until a guild configures its own template.
const DefaultWelcomeMessage = "Welcome {user} to {guild}!"

// MaxWelcomeMessageLength matches the Discord embed description limit we
// render the template into.
const MaxWelcomeMessageLength = 2000

// Settings column names. These are the only fields a patch may touch.
const (
	FieldWelcomeEnabled   = "welcome_enabled"
	FieldWelcomeChannelID = "welcome_channel_id"
	FieldWelcomeMessage   = "welcome_message"
	FieldLeaveEnabled     = "leave_enabled"
	FieldLeaveChannelID   = "leave_channel_id"
	FieldLogEnabled       = "log_enabled"
	FieldLogChannelID     = "log_channel_id"
	FieldTicketEnabled    = "ticket_enabled"
	FieldTicketCategoryID = "ticket_category_id"
)

// Flag is a boolean kept as 0/1 in the database.
type Flag bool

func (f Flag) Value() (driver.Value, error) {
	if f {
		return int64(1), nil
	}
	return int64(0), nil
}

func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = false
	case int64:
		*f = v != 0
	case bool:
		*f = Flag(v)
	case []byte:
		return f.Scan(string(v))
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			b, berr := strconv.ParseBool(v)
			if berr != nil {
				return fmt.Errorf("cannot scan %q into Flag", v)
			}
			*f = Flag(b)
			return nil
		}
		*f = n != 0
	default:
		return fmt.Errorf("cannot scan %T into Flag", src)
	}
	return nil
}

// GuildSettings is the per-guild configuration row.
type GuildSettings struct {
	GuildID          Snowflake  `gorm:"primaryKey;autoIncrement:false" json:"guild_id"`
	WelcomeEnabled   Flag       `gorm:"type:smallint;not null" json:"welcome_enabled"`
	WelcomeChannelID *Snowflake `json:"welcome_channel_id"`
	WelcomeMessage   string     `gorm:"type:text;not null" json:"welcome_message"`
	LeaveEnabled     Flag       `gorm:"type:smallint;not null" json:"leave_enabled"`
	LeaveChannelID   *Snowflake `json:"leave_channel_id"`
	LogEnabled       Flag       `gorm:"type:smallint;not null" json:"log_enabled"`
	LogChannelID     *Snowflake `json:"log_channel_id"`
	TicketEnabled    Flag       `gorm:"type:smallint;not null" json:"ticket_enabled"`
	TicketCategoryID *Snowflake `json:"ticket_category_id"`
}

func (GuildSettings) TableName() string {
	return "guild_settings"
}

// DefaultSettings returns the configuration of a guild that never saved any.
func DefaultSettings(guildID Snowflake) *GuildSettings {
	return &GuildSettings{
		GuildID:        guildID,
		WelcomeMessage: DefaultWelcomeMessage,
	}
}

// WelcomeTarget returns the channel welcome messages go to, if enabled.
func (s *GuildSettings) WelcomeTarget() (Snowflake, bool) {
	return target(s.WelcomeEnabled, s.WelcomeChannelID)
}

// LeaveTarget returns the channel leave messages go to, if enabled.
func (s *GuildSettings) LeaveTarget() (Snowflake, bool) {
	return target(s.LeaveEnabled, s.LeaveChannelID)
}

// LogTarget returns the channel message logs go to, if enabled.
func (s *GuildSettings) LogTarget() (Snowflake, bool) {
	return target(s.LogEnabled, s.LogChannelID)
}

func target(enabled Flag, channel *Snowflake) (Snowflake, bool) {
	if !enabled || channel == nil || *channel == 0 {
		return 0, false
	}
	return *channel, true
}

// OptionalID is a patch value for a nullable id column. Set marks the field
// as supplied; a nil ID then clears the column.
type OptionalID struct {
	Set bool
	ID  *Snowflake
}

// SetID supplies id.
func SetID(id Snowflake) OptionalID {
	return OptionalID{Set: true, ID: &id}
}

// ClearID supplies NULL.
func ClearID() OptionalID {
	return OptionalID{Set: true}
}

// SettingsPatch is a partial update of GuildSettings. Nil pointers and unset
// OptionalIDs leave the column unchanged.
type SettingsPatch struct {
	WelcomeEnabled   *bool
	WelcomeChannelID OptionalID
	WelcomeMessage   *string
	LeaveEnabled     *bool
	LeaveChannelID   OptionalID
	LogEnabled       *bool
	LogChannelID     OptionalID
	TicketEnabled    *bool
	TicketCategoryID OptionalID
}

// Columns returns the supplied fields keyed by column name, with values in
// their storage representation.
func (p SettingsPatch) Columns() map[string]any {
	cols := make(map[string]any)
	putFlag := func(name string, v *bool) {
		if v != nil {
			cols[name] = Flag(*v)
		}
	}
	putID := func(name string, v OptionalID) {
		if v.Set {
			cols[name] = v.ID
		}
	}

	putFlag(FieldWelcomeEnabled, p.WelcomeEnabled)
	putID(FieldWelcomeChannelID, p.WelcomeChannelID)
	if p.WelcomeMessage != nil {
		cols[FieldWelcomeMessage] = *p.WelcomeMessage
	}
	putFlag(FieldLeaveEnabled, p.LeaveEnabled)
	putID(FieldLeaveChannelID, p.LeaveChannelID)
	putFlag(FieldLogEnabled, p.LogEnabled)
	putID(FieldLogChannelID, p.LogChannelID)
	putFlag(FieldTicketEnabled, p.TicketEnabled)
	putID(FieldTicketCategoryID, p.TicketCategoryID)
	return cols
}

// IsEmpty reports whether the patch supplies no field.
func (p SettingsPatch) IsEmpty() bool {
	return len(p.Columns()) == 0
}

// Apply writes the supplied fields onto s.
func (p SettingsPatch) Apply(s *GuildSettings) {
	if p.WelcomeEnabled != nil {
		s.WelcomeEnabled = Flag(*p.WelcomeEnabled)
	}
	if p.WelcomeChannelID.Set {
		s.WelcomeChannelID = p.WelcomeChannelID.ID
	}
	if p.WelcomeMessage != nil {
		s.WelcomeMessage = *p.WelcomeMessage
	}
	if p.LeaveEnabled != nil {
		s.LeaveEnabled = Flag(*p.LeaveEnabled)
	}
	if p.LeaveChannelID.Set {
		s.LeaveChannelID = p.LeaveChannelID.ID
	}
	if p.LogEnabled != nil {
		s.LogEnabled = Flag(*p.LogEnabled)
	}
	if p.LogChannelID.Set {
		s.LogChannelID = p.LogChannelID.ID
	}
	if p.TicketEnabled != nil {
		s.TicketEnabled = Flag(*p.TicketEnabled)
	}
	if p.TicketCategoryID.Set {
		s.TicketCategoryID = p.TicketCategoryID.ID
	}
}
