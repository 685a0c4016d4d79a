package osuapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/onnwee/aswo/telemetry"
)

// DefaultTokenURL is the osu! OAuth token endpoint.
const DefaultTokenURL = "https://osu.ppy.sh/oauth/token"

// TokenCache fetches and caches an osu! client-credentials bearer token.
// A cached token is reused until it expires, exceeds MaxAge, or is invalidated after a 401.
type TokenCache struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
	HTTPClient   *http.Client
	// MaxAge caps how long a token is reused even when upstream reports a longer lifetime.
	// Zero disables the cap.
	MaxAge time.Duration

	mu        sync.RWMutex
	token     *oauth2.Token
	fetchedAt time.Time
}

// Get returns a valid (fresh or cached) bearer token.
func (tc *TokenCache) Get(ctx context.Context) (string, error) {
	tc.mu.RLock()
	if tc.usable() {
		tok := tc.token.AccessToken
		tc.mu.RUnlock()
		return tok, nil
	}
	tc.mu.RUnlock()
	return tc.refresh(ctx)
}

// Invalidate drops the cached token if it is still the one the caller saw rejected.
func (tc *TokenCache) Invalidate(stale string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.token != nil && tc.token.AccessToken == stale {
		tc.token = nil
	}
}

// usable must be called with mu held.
func (tc *TokenCache) usable() bool {
	if tc.token == nil || !tc.token.Valid() {
		return false
	}
	return tc.MaxAge <= 0 || time.Since(tc.fetchedAt) < tc.MaxAge
}

func (tc *TokenCache) refresh(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.usable() {
		return tc.token.AccessToken, nil
	}
	if tc.ClientID == "" || tc.ClientSecret == "" {
		return "", &AuthError{Cause: errors.New("missing client id/secret for osu! token")}
	}
	tokenURL := tc.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	scopes := tc.Scopes
	if len(scopes) == 0 {
		scopes = []string{"public"}
	}
	cfg := clientcredentials.Config{
		ClientID:     tc.ClientID,
		ClientSecret: tc.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if tc.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, tc.HTTPClient)
	}
	tok, err := cfg.Token(ctx)
	if err != nil {
		telemetry.CountTokenExchange("error")
		return "", &AuthError{Cause: err}
	}
	if tok.AccessToken == "" {
		telemetry.CountTokenExchange("error")
		return "", &AuthError{Cause: errors.New("empty access_token in osu! response")}
	}
	telemetry.CountTokenExchange("ok")
	tc.token = tok
	tc.fetchedAt = time.Now()
	slog.Debug("osu! token refreshed", slog.String("tail", maskToken(tok.AccessToken)), slog.String("component", "osuapi"))
	return tok.AccessToken, nil
}

func maskToken(tok string) string {
	if len(tok) <= 6 {
		return "***"
	}
	return "***" + tok[len(tok)-6:]
}
