package discord

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/Gopher0727/HappyBot/config"
)

// OAuth runs the authorization-code flow against Discord.
type OAuth struct {
	cfg        *oauth2.Config
	httpClient *http.Client
}

func NewOAuth(cfg config.DiscordConfig) *OAuth {
	return newOAuth(cfg, oauth2.Endpoint{
		AuthURL:   AuthorizeURL,
		TokenURL:  TokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	})
}

func newOAuth(cfg config.DiscordConfig, endpoint oauth2.Endpoint) *OAuth {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OAuth{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint:     endpoint,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AuthCodeURL returns the authorize url carrying state.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for the user's access token.
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	ctx, cancel := context.WithTimeout(ctx, o.httpClient.Timeout+time.Second)
	defer cancel()

	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return "", upstream("oauth2/token", err)
	}
	if tok.AccessToken == "" {
		return "", upstream("oauth2/token", errors.New("empty access token"))
	}
	return tok.AccessToken, nil
}
