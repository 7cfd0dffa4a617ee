// Package handler implements the dashboard HTTP endpoints.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/HappyBot/config"
	"github.com/Gopher0727/HappyBot/internal/discord"
	"github.com/Gopher0727/HappyBot/internal/model"
	"github.com/Gopher0727/HappyBot/internal/service"
	"github.com/Gopher0727/HappyBot/middleware/jwt"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
	"github.com/Gopher0727/HappyBot/utils/snowflake"
)

// IdentityKey is the gin context key the auth middleware stores the
// verified jwt.Identity under.
const IdentityKey = "identity"

// OAuthProvider runs the Discord authorization-code flow.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// UserAPI reads Discord data as the signed-in user.
type UserAPI interface {
	CurrentUser(ctx context.Context, accessToken string) (*discord.User, error)
	ManagedGuilds(ctx context.Context, accessToken string) ([]discord.ManagedGuild, error)
}

// GuildAPI reads guild data with the bot token.
type GuildAPI interface {
	GuildChannels(ctx context.Context, guildID string) ([]discord.Channel, error)
	GuildRoles(ctx context.Context, guildID string) ([]discord.Role, error)
	GuildInfo(ctx context.Context, guildID string) (*discord.GuildInfo, error)
}

// SetIdentity stores id on c for the handlers behind the auth middleware.
func SetIdentity(c *gin.Context, id jwt.Identity) {
	c.Set(IdentityKey, id)
}

// CurrentIdentity returns the identity the request was authenticated as.
func CurrentIdentity(c *gin.Context) (jwt.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return jwt.Identity{}, false
	}
	id, ok := v.(jwt.Identity)
	return id, ok
}

// AuthMessage is the client-facing text of an authentication failure.
func AuthMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, jwt.ErrInvalidToken):
		return "Invalid token"
	default:
		return "Not authenticated"
	}
}

// RespondError writes the response for err and aborts the chain. Store and
// other unexpected failures are logged and reported without detail.
func RespondError(c *gin.Context, log *logger.Logger, err error) {
	ctx := c.Request.Context()

	if errors.Is(err, jwt.ErrMissingToken) || errors.Is(err, jwt.ErrInvalidToken) || errors.Is(err, jwt.ErrExpiredToken) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": AuthMessage(err)})
		return
	}
	if verr, ok := service.AsValidation(err); ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
		return
	}
	var cerr *config.ConfigError
	if errors.As(err, &cerr) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": cerr.Error()})
		return
	}
	if uerr, ok := discord.AsUpstream(err); ok {
		log.WarnContext(ctx, "upstream request failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":  "Discord request failed: " + uerr.Op,
			"status": uerr.Status,
		})
		return
	}

	log.ErrorContext(ctx, "request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// guildParam parses the :guild_id path parameter and tags the request
// context with it.
func guildParam(c *gin.Context) (model.Snowflake, context.Context, error) {
	id, err := snowflake.Parse(c.Param("guild_id"))
	if err != nil {
		return 0, nil, &service.ValidationError{Field: "guild_id", Reason: "must be a positive snowflake id"}
	}
	return model.Snowflake(id), logger.WithGuildID(c.Request.Context(), id), nil
}
