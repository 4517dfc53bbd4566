// Package auth runs the browser OAuth2 authorization-code flow for providers
// that need it (Strava, Fitbit) and wraps their tokens in a persisting
// token source.
package auth

import (
	"golang.org/x/oauth2"

	"tracklog/internal/config"
)

// CallbackPort is the port the local callback server listens on. Provider
// apps must register http://localhost:8091/callback as a redirect URL.
const CallbackPort = 8091

// Provider OAuth endpoints.
var (
	StravaEndpoint = oauth2.Endpoint{
		AuthURL:  "https://www.strava.com/oauth/authorize",
		TokenURL: "https://www.strava.com/oauth/token",
	}
	FitbitEndpoint = oauth2.Endpoint{
		AuthURL:  "https://www.fitbit.com/oauth2/authorize",
		TokenURL: "https://api.fitbit.com/oauth2/token",
	}
)

// StravaConfig builds the oauth2.Config for Strava. Strava wants its scopes
// comma-separated in a single value.
func StravaConfig(creds config.OAuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     StravaEndpoint,
		RedirectURL:  redirectURL(),
		Scopes:       []string{"read,activity:read_all"},
	}
}

// FitbitConfig builds the oauth2.Config for Fitbit.
func FitbitConfig(creds config.OAuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     FitbitEndpoint,
		RedirectURL:  redirectURL(),
		Scopes:       []string{"activity", "weight"},
	}
}

func redirectURL() string {
	return "http://localhost:8091/callback"
}
