package handler

import (
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/internal/service"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
	"github.com/Gopher0727/HappyBot/utils/snowflake"
)

// maxPatchBody bounds a settings update body.
const maxPatchBody = 64 << 10

// ConfigHandler serves per-guild settings and the moderation, ticket and
// analytics ledgers. Any authenticated caller may use any guild id.
type ConfigHandler struct {
	settings  service.ISettingsService
	warns     service.IWarnService
	tickets   service.ITicketService
	analytics service.IAnalyticsService
	log       *logger.Logger
}

func NewConfigHandler(
	settings service.ISettingsService,
	warns service.IWarnService,
	tickets service.ITicketService,
	analytics service.IAnalyticsService,
	log *logger.Logger,
) *ConfigHandler {
	return &ConfigHandler{
		settings:  settings,
		warns:     warns,
		tickets:   tickets,
		analytics: analytics,
		log:       log,
	}
}

// GetConfig returns the settings of a guild, or the defaults.
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	guildID, ctx, err := guildParam(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	settings, err := h.settings.Get(ctx, guildID)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateConfig applies a partial settings update.
func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	guildID, ctx, err := guildParam(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPatchBody))
	if err != nil {
		RespondError(c, h.log, &service.ValidationError{Field: "body", Reason: "unreadable or too large"})
		return
	}
	patch, err := service.ParseSettingsPatch(body)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	if err := h.settings.Patch(ctx, guildID, patch); err != nil {
		RespondError(c, h.log, err)
		return
	}

	if !patch.IsEmpty() {
		fields := make([]string, 0)
		for col := range patch.Columns() {
			fields = append(fields, col)
		}
		sort.Strings(fields)

		data := strings.Join(fields, ",")
		if id, ok := CurrentIdentity(c); ok {
			data += " by " + id.UserID
		}
		h.analytics.Record(ctx, guildID, model.EventSettingsUpdate, data)
		h.log.InfoContext(ctx, "settings updated", zap.Strings("fields", fields))
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Configuration updated"})
}

// ListWarns returns the warns of a guild, or of one member with ?user_id=.
func (h *ConfigHandler) ListWarns(c *gin.Context) {
	guildID, ctx, err := guildParam(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	var userID *model.Snowflake
	if raw := c.Query("user_id"); raw != "" {
		id, err := snowflake.Parse(raw)
		if err != nil {
			RespondError(c, h.log, &service.ValidationError{Field: "user_id", Reason: "must be a positive snowflake id"})
			return
		}
		userID = model.SnowflakePtr(model.Snowflake(id))
	}

	warns, err := h.warns.List(ctx, guildID, userID)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, warns)
}

func (h *ConfigHandler) ListTickets(c *gin.Context) {
	guildID, ctx, err := guildParam(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	tickets, err := h.tickets.List(ctx, guildID)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// Analytics returns the latest events with a summary over the whole log.
func (h *ConfigHandler) Analytics(c *gin.Context) {
	guildID, ctx, err := guildParam(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	report, err := h.analytics.Report(ctx, guildID)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
