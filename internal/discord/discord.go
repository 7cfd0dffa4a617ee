// Package discord talks to the Discord REST API on behalf of the dashboard:
// OAuth code exchange, the signed-in user's identity and guilds, and
// bot-authenticated guild lookups. Every call is bounded by the configured
// timeout and never retried.
package discord

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"

	"github.com/Gopher0727/HappyBot/config"
)

const (
	APIBase      = "https://discord.com/api"
	AuthorizeURL = APIBase + "/oauth2/authorize"
	TokenURL     = APIBase + "/oauth2/token"
	CDNBase      = "https://cdn.discordapp.com"

	// PermissionManageGuild is the bit a user needs for a guild to show up
	// on the dashboard.
	PermissionManageGuild int64 = 0x20

	DefaultTimeout = 10 * time.Second
)

// Scopes requested at login: the user's identity and guild list.
var Scopes = []string{"identify", "guilds"}

// ErrNoBotToken is returned by bot-authenticated calls when no bot token is
// configured.
var ErrNoBotToken = &config.ConfigError{Key: "DISCORD_BOT_TOKEN", Reason: "bot token not configured"}

// UpstreamError reports a failed or timed out Discord call. Status is the
// HTTP status Discord answered with, or 0 when there was no response.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("discord %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("discord %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AsUpstream returns the UpstreamError in err's chain, if any.
func AsUpstream(err error) (*UpstreamError, bool) {
	var uerr *UpstreamError
	if errors.As(err, &uerr) {
		return uerr, true
	}
	return nil, false
}

// upstream wraps err from a Discord call, lifting the HTTP status out of
// discordgo and oauth2 errors.
func upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	uerr := &UpstreamError{Op: op, Err: err}

	var restErr *discordgo.RESTError
	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.As(err, &restErr) && restErr.Response != nil:
		uerr.Status = restErr.Response.StatusCode
	case errors.As(err, &retrieveErr) && retrieveErr.Response != nil:
		uerr.Status = retrieveErr.Response.StatusCode
	}
	return uerr
}

// NewSession returns a REST-only discordgo session authenticated with auth
// ("Bot <token>" or "Bearer <token>"). Requests time out after timeout and
// rate limits surface as errors instead of being waited out.
func NewSession(auth string, timeout time.Duration) (*discordgo.Session, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s, err := discordgo.New(auth)
	if err != nil {
		return nil, err
	}
	s.Client = &http.Client{Timeout: timeout}
	s.ShouldRetryOnRateLimit = false
	s.MaxRestRetries = 0
	return s, nil
}
