package discord

import (
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Gopher0727/HappyBot/utils/snowflake"
)

// User is the signed-in dashboard user.
type User struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	Avatar        *string `json:"avatar"`
	GlobalName    *string `json:"global_name"`
}

// ManagedGuild is a guild the user can manage.
type ManagedGuild struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Icon        *string `json:"icon"`
	Owner       bool    `json:"owner"`
	Permissions string  `json:"permissions"`
}

type Channel struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     int     `json:"type"`
	Position int     `json:"position"`
	ParentID *string `json:"parent_id"`
}

type Role struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    int    `json:"color"`
	Position int    `json:"position"`
}

type GuildInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Icon        *string   `json:"icon"`
	MemberCount int       `json:"member_count"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// 仪表盘可选的频道类型：文字、分类、公告
var listedChannelTypes = map[discordgo.ChannelType]bool{
	discordgo.ChannelTypeGuildText:     true,
	discordgo.ChannelTypeGuildCategory: true,
	discordgo.ChannelTypeGuildNews:     true,
}

// AvatarURL returns the CDN url of a user avatar, or nil without one.
func AvatarURL(userID, hash string) *string {
	if hash == "" {
		return nil
	}
	u := CDNBase + "/avatars/" + userID + "/" + hash + ".png"
	return &u
}

// IconURL returns the CDN url of a guild icon, or nil without one.
func IconURL(guildID, hash string) *string {
	if hash == "" {
		return nil
	}
	u := CDNBase + "/icons/" + guildID + "/" + hash + ".png"
	return &u
}

func projectUser(u *discordgo.User) *User {
	disc := u.Discriminator
	if disc == "" {
		disc = "0"
	}
	var global *string
	if u.GlobalName != "" {
		name := u.GlobalName
		global = &name
	}
	return &User{
		ID:            u.ID,
		Username:      u.Username,
		Discriminator: disc,
		Avatar:        AvatarURL(u.ID, u.Avatar),
		GlobalName:    global,
	}
}

// FilterManaged keeps the guilds whose permission bitmask has the
// manage-guild bit.
func FilterManaged(guilds []*discordgo.UserGuild) []ManagedGuild {
	out := make([]ManagedGuild, 0, len(guilds))
	for _, g := range guilds {
		if g == nil || g.Permissions&PermissionManageGuild == 0 {
			continue
		}
		out = append(out, ManagedGuild{
			ID:          g.ID,
			Name:        g.Name,
			Icon:        IconURL(g.ID, g.Icon),
			Owner:       g.Owner,
			Permissions: strconv.FormatInt(g.Permissions, 10),
		})
	}
	return out
}

// FilterChannels keeps text, category and announcement channels.
func FilterChannels(channels []*discordgo.Channel) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch == nil || !listedChannelTypes[ch.Type] {
			continue
		}
		var parent *string
		if ch.ParentID != "" {
			p := ch.ParentID
			parent = &p
		}
		out = append(out, Channel{
			ID:       ch.ID,
			Name:     ch.Name,
			Type:     int(ch.Type),
			Position: ch.Position,
			ParentID: parent,
		})
	}
	return out
}

// ProjectRoles drops @everyone, whose id equals the guild id.
func ProjectRoles(guildID string, roles []*discordgo.Role) []Role {
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if r == nil || r.ID == guildID {
			continue
		}
		out = append(out, Role{ID: r.ID, Name: r.Name, Color: r.Color, Position: r.Position})
	}
	return out
}

func projectGuild(g *discordgo.Guild) *GuildInfo {
	info := &GuildInfo{
		ID:          g.ID,
		Name:        g.Name,
		Icon:        IconURL(g.ID, g.Icon),
		MemberCount: g.ApproximateMemberCount,
		OwnerID:     g.OwnerID,
	}
	if id, err := snowflake.Parse(g.ID); err == nil {
		info.CreatedAt = snowflake.Time(id).UTC()
	}
	return info
}
