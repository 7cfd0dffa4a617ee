package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/HappyBot/internal/discord"
	"github.com/Gopher0727/HappyBot/internal/service"
	"github.com/Gopher0727/HappyBot/middleware/jwt"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

const (
	stateCookie = "oauth_state"
	stateMaxAge = 10 * time.Minute
)

type AuthHandler struct {
	oauth        OAuthProvider
	users        UserAPI
	tokens       *jwt.TokenManager
	dashboardURL string
	secure       bool
	log          *logger.Logger
}

// NewAuthHandler creates the login flow handlers. secure marks the state
// cookie Secure, for deployments behind https.
func NewAuthHandler(oauth OAuthProvider, users UserAPI, tokens *jwt.TokenManager, dashboardURL string, secure bool, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		oauth:        oauth,
		users:        users,
		tokens:       tokens,
		dashboardURL: dashboardURL,
		secure:       secure,
		log:          log,
	}
}

// Login redirects to the Discord authorize page.
func (h *AuthHandler) Login(c *gin.Context) {
	state := logger.NewTraceID()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, int(stateMaxAge.Seconds()), "/api/auth", "", h.secure, true)
	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// Callback completes the login: it exchanges the code, looks up the user and
// sends the browser back to the dashboard with a session token.
func (h *AuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	want, err := c.Cookie(stateCookie)
	if err != nil || want == "" || c.Query("state") != want {
		RespondError(c, h.log, &service.ValidationError{Field: "state", Reason: "does not match the login request"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/api/auth", "", h.secure, true)

	code := c.Query("code")
	if code == "" {
		RespondError(c, h.log, &service.ValidationError{Field: "code", Reason: "is required"})
		return
	}

	accessToken, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	user, err := h.users.CurrentUser(ctx, accessToken)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	token, err := h.tokens.Issue(jwt.Identity{
		UserID:       user.ID,
		Username:     user.Username,
		DiscordToken: accessToken,
	})
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	h.log.InfoContext(ctx, "dashboard login", zap.String("user_id", user.ID))
	c.Redirect(http.StatusFound, h.dashboardURL+"?token="+url.QueryEscape(token))
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := CurrentIdentity(c)
	if !ok {
		RespondError(c, h.log, jwt.ErrMissingToken)
		return
	}

	user, err := h.users.CurrentUser(c.Request.Context(), id.DiscordToken)
	if err != nil {
		h.respondUserAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Guilds lists the guilds the user can manage.
func (h *AuthHandler) Guilds(c *gin.Context) {
	id, ok := CurrentIdentity(c)
	if !ok {
		RespondError(c, h.log, jwt.ErrMissingToken)
		return
	}

	guilds, err := h.users.ManagedGuilds(c.Request.Context(), id.DiscordToken)
	if err != nil {
		h.respondUserAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, guilds)
}

// respondUserAPIError treats a rejected Discord access token as an invalid
// session, so the dashboard signs the user in again.
func (h *AuthHandler) respondUserAPIError(c *gin.Context, err error) {
	if uerr, ok := discord.AsUpstream(err); ok && uerr.Status == http.StatusUnauthorized {
		RespondError(c, h.log, errors.Join(jwt.ErrInvalidToken, err))
		return
	}
	RespondError(c, h.log, err)
}
