package oauth

import (
	"bigfootds/auth-api/config"
	"bigfootds/auth-api/internal/model"
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

type Discord struct {
	conf *oauth2.Config
}

func NewDiscord(c config.OAuthProviderConfig) *Discord {
	return &Discord{conf: oauthConfig(c, discordEndpoint, "identify")}
}

func (d *Discord) Name() string {
	return model.ProviderDiscord
}

func (d *Discord) AuthCodeURL(state string) string {
	return d.conf.AuthCodeURL(state)
}

// Exchange trades code for an access token and returns the Discord user ID of
// its owner
func (d *Discord) Exchange(ctx context.Context, code string) (string, error) {
	tok, err := d.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("discord code exchange failed, %w", err)
	}

	s, err := discordgo.New("Bearer " + tok.AccessToken)
	if err != nil {
		return "", err
	}

	u, err := s.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to fetch discord profile, %w", err)
	}

	if u == nil || u.ID == "" {
		return "", ErrNoProfile
	}

	return u.ID, nil
}
