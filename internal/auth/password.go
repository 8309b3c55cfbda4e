// Package auth obtains the bearer token that authorizes MDR requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Defaults of the MDR's identity provider.
const (
	DefaultClientID = "dehub-dev"
	DefaultScope    = "openid"
)

// ErrMissingCredentials is returned when a username or password is empty.
var ErrMissingCredentials = errors.New("username and password are required")

// Credentials are resource-owner credentials.
type Credentials struct {
	Username string
	Password string
}

// Complete reports whether both fields are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// PasswordGrant exchanges resource-owner credentials for an access token
// (OAuth2 resource owner password credentials grant).
type PasswordGrant struct {
	TokenURL string
	ClientID string
	Scopes   []string
	// HTTPClient overrides the client used for the token request.
	HTTPClient *http.Client
}

func (g PasswordGrant) config() *oauth2.Config {
	clientID := g.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	scopes := g.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}
	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  g.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Token performs the exchange.
func (g PasswordGrant) Token(ctx context.Context, creds Credentials) (*oauth2.Token, error) {
	if g.TokenURL == "" {
		return nil, errors.New("token URL is required")
	}
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}
	if g.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.HTTPClient)
	}

	tok, err := g.config().PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("failed to obtain access token: empty access_token")
	}
	return tok, nil
}

// Header performs the exchange and returns the request headers carrying the
// bearer token.
func (g PasswordGrant) Header(ctx context.Context, creds Credentials) (http.Header, error) {
	tok, err := g.Token(ctx, creds)
	if err != nil {
		return nil, err
	}
	return BearerHeader(tok.AccessToken), nil
}

// BearerHeader builds an Authorization header for token.
func BearerHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
