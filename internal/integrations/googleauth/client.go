package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenEndpoint = "https://oauth2.googleapis.com/token"
	jwksEndpoint  = "https://www.googleapis.com/oauth2/v3/certs"
)

// Client implements the Google OAuth authorization-code exchange and token
// refresh, and verifies returned ID tokens against Google's JWKS.
type Client struct {
	clientID     string
	clientSecret string
	tokenURL     string
	http         *http.Client
	jwks         *keyfunc.JWKS
}

// TokenSet is the relevant subset of Google's token endpoint response.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	IDToken      string `json:"id_token"`
}

func NewClient(clientID, clientSecret string) (*Client, error) {
	jwks, err := keyfunc.Get(jwksEndpoint, keyfunc.Options{
		RefreshInterval:  time.Hour,
		RefreshRateLimit: time.Minute,
		RefreshErrorHandler: func(err error) {
			// Keep serving with the cached key set.
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load Google JWKS: %w", err)
	}

	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenEndpoint,
		http:         &http.Client{Timeout: 30 * time.Second},
		jwks:         jwks,
	}, nil
}

// ExchangeCode trades a single-use authorization code for a token set.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenSet, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	return c.postForm(ctx, form)
}

// RefreshAccessToken obtains a fresh access token from a stored refresh
// token. Google does not rotate the refresh token on this path.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	return c.postForm(ctx, form)
}

// VerifyIDToken checks the ID token signature against Google's published
// keys and returns the mailbox email address from its claims.
func (c *Client) VerifyIDToken(idToken string) (string, error) {
	token, err := jwt.Parse(idToken, c.jwks.Keyfunc)
	if err != nil {
		return "", fmt.Errorf("id token verification failed: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("id token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected id token claims")
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("id token has no email claim")
	}

	return email, nil
}

func (c *Client) postForm(ctx context.Context, form url.Values) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d - %s", resp.StatusCode, string(body))
	}

	var tokens TokenSet
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, err
	}

	return &tokens, nil
}
