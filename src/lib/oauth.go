package lib

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var oauthConfig *oauth2.Config

// GetGoogleOauthConfig builds the Google OAuth2 config once from env.
func GetGoogleOauthConfig() *oauth2.Config {
	if oauthConfig != nil {
		return oauthConfig
	}
	oauthConfig = &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
	return oauthConfig
}

// NewGoogleOauthConfig replaces the config instance, used by the test suite.
func NewGoogleOauthConfig(c *oauth2.Config) {
	oauthConfig = c
}

type GoogleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// FetchGoogleUserInfo exchanges the authorization code and retrieves the
// user's profile from the userinfo endpoint.
func FetchGoogleUserInfo(ctx context.Context, code string) (*GoogleUserInfo, error) {
	conf := GetGoogleOauthConfig()
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	client := conf.Client(ctx, token)
	res, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, &oauth2.RetrieveError{Response: res, Body: body}
	}
	var info GoogleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
