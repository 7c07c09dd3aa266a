package oauth

import (
	"bigfootds/auth-api/config"
	"bigfootds/auth-api/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

const twitchUsersURL = "https://api.twitch.tv/helix/users"

type Twitch struct {
	conf *oauth2.Config

	// UsersURL is the Helix users endpoint, replaced in tests
	UsersURL string
}

func NewTwitch(c config.OAuthProviderConfig) *Twitch {
	return &Twitch{
		conf:     oauthConfig(c, twitch.Endpoint),
		UsersURL: twitchUsersURL,
	}
}

func (t *Twitch) Name() string {
	return model.ProviderTwitch
}

func (t *Twitch) AuthCodeURL(state string) string {
	return t.conf.AuthCodeURL(state)
}

type helixUsers struct {
	Data []struct {
		ID    string `json:"id"`
		Login string `json:"login"`
	} `json:"data"`
}

// Exchange trades code for an access token and returns the Twitch user ID of
// its owner
func (t *Twitch) Exchange(ctx context.Context, code string) (string, error) {
	tok, err := t.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("twitch code exchange failed, %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.UsersURL, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("Client-Id", t.conf.ClientID)
	req.Header.Set("Accept", "application/json")

	resp, err := t.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch twitch profile, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("twitch answered with status %d", resp.StatusCode)
	}

	var users helixUsers
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return "", fmt.Errorf("failed to parse twitch profile, %w", err)
	}

	if len(users.Data) == 0 || users.Data[0].ID == "" {
		return "", ErrNoProfile
	}

	return users.Data[0].ID, nil
}
