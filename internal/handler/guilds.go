package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/HappyBot/internal/discord"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

// GuildHandler passes guild lookups through to Discord with the bot token.
type GuildHandler struct {
	guilds GuildAPI
	log    *logger.Logger
}

func NewGuildHandler(guilds GuildAPI, log *logger.Logger) *GuildHandler {
	return &GuildHandler{guilds: guilds, log: log}
}

// Channels lists the text, category and announcement channels of a guild.
func (h *GuildHandler) Channels(c *gin.Context) {
	guildID, ctx, err := guildParam(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	channels, err := h.guilds.GuildChannels(ctx, guildID.String())
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, channels)
}

// Roles lists the roles of a guild without @everyone.
func (h *GuildHandler) Roles(c *gin.Context) {
	guildID, ctx, err := guildParam(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	roles, err := h.guilds.GuildRoles(ctx, guildID.String())
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

func (h *GuildHandler) Info(c *gin.Context) {
	guildID, ctx, err := guildParam(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	var info *discord.GuildInfo
	info, err = h.guilds.GuildInfo(ctx, guildID.String())
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
