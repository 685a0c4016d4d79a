// Package osuapi is a thin client for the osu! v2 REST API: client-credentials token
// caching, user/beatmap/score lookups, and the value objects built from their responses.
package osuapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/onnwee/aswo/telemetry"
)

// DefaultBaseURL is the osu! v2 API root.
const DefaultBaseURL = "https://osu.ppy.sh/api/v2"

const maxBodyBytes = 4 << 20

var (
	// BeatmapsetCategories are the accepted categories for FetchUserBeatmapsets.
	BeatmapsetCategories = []string{"favourite", "graveyard", "loved", "most_played", "pending", "ranked"}
	// ScoreCategories are the accepted categories for FetchUserScores.
	ScoreCategories = []string{"best", "firsts", "recent"}
)

// Client issues authenticated requests against the osu! API.
type Client struct {
	BaseURL    string
	Tokens     *TokenCache
	HTTPClient *http.Client
	// Limiter paces outbound requests; nil means unlimited.
	Limiter *rate.Limiter
}

// NewClient returns a Client with a limiter allowing perMinute requests (burst of the same size).
// perMinute <= 0 disables pacing.
func NewClient(baseURL string, tokens *TokenCache, perMinute int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{BaseURL: strings.TrimRight(baseURL, "/"), Tokens: tokens, HTTPClient: &http.Client{Timeout: 15 * time.Second}}
	if perMinute > 0 {
		c.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return c
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// get performs one GET with a bearer token. A 401 invalidates the token and retries once
// with a freshly exchanged one; a second 401 is an auth failure.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, int, error) {
	ctx, span := telemetry.StartClientSpan(ctx, "osu", http.MethodGet, endpoint)
	defer span.End()

	body, status, err := c.getOnce(ctx, endpoint, path, query)
	if err == nil && status == http.StatusUnauthorized {
		slog.Debug("osu! api rejected token, refreshing", slog.String("endpoint", endpoint), slog.String("component", "osuapi"))
		body, status, err = c.getOnce(ctx, endpoint, path, query)
		if err == nil && status == http.StatusUnauthorized {
			err = &AuthError{Cause: &StatusError{Endpoint: endpoint, Status: status, Body: snippet(body)}}
		}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, status, err
	}
	telemetry.SetSpanHTTPStatus(span, status)
	return body, status, nil
}

func (c *Client) getOnce(ctx context.Context, endpoint, path string, query url.Values) ([]byte, int, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}
	tok, err := c.Tokens.Get(ctx)
	if err != nil {
		return nil, 0, err
	}
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http().Do(req)
	if err != nil {
		telemetry.ObserveAPIRequest("osu", endpoint, 0, time.Since(start))
		return nil, 0, fmt.Errorf("osu! api %s: %w", endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	telemetry.ObserveAPIRequest("osu", endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("osu! api %s: read body: %w", endpoint, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.Tokens.Invalidate(tok)
	}
	return body, resp.StatusCode, nil
}

// FetchUser looks up a user by numeric id or username.
func (c *Client) FetchUser(ctx context.Context, identifier string) (User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return User{}, ErrUserNotFound
	}
	var q url.Values
	if !isDigits(identifier) {
		q = url.Values{"key": {"username"}}
	}
	body, status, err := c.get(ctx, "users", "/users/"+url.PathEscape(identifier), q)
	if err != nil {
		return User{}, err
	}
	if status == http.StatusNotFound || hasErrorKey(body) {
		slog.Info("osu! user lookup returned no match", slog.String("identifier", identifier), slog.Int("status", status), slog.String("body", snippet(body)))
		return User{}, ErrUserNotFound
	}
	if status/100 != 2 {
		return User{}, &StatusError{Endpoint: "users", Status: status, Body: snippet(body)}
	}
	u, err := NewUser(body)
	if err != nil {
		slog.Warn("osu! user payload could not be built", slog.String("identifier", identifier), slog.Any("err", err), slog.String("body", snippet(body)))
		return User{}, fmt.Errorf("%w: %w", ErrUserNotFound, err)
	}
	return u, nil
}

// FetchBeatmap looks up a single beatmap difficulty by id.
func (c *Client) FetchBeatmap(ctx context.Context, identifier string) (Beatmap, error) {
	identifier = strings.TrimSpace(identifier)
	if !isDigits(identifier) {
		return Beatmap{}, ErrBeatmapNotFound
	}
	body, status, err := c.get(ctx, "beatmaps", "/beatmaps/"+identifier, nil)
	if err != nil {
		return Beatmap{}, err
	}
	if status == http.StatusNotFound || hasErrorKey(body) {
		return Beatmap{}, ErrBeatmapNotFound
	}
	if status/100 != 2 {
		return Beatmap{}, &StatusError{Endpoint: "beatmaps", Status: status, Body: snippet(body)}
	}
	return NewBeatmap(body)
}

// FetchUserBeatmapsets lists a user's beatmapsets in category. The most_played category
// nests each set one level deeper; it is unwrapped so every category yields the same shape.
func (c *Client) FetchUserBeatmapsets(ctx context.Context, userID int64, category string, limit int) ([]Beatmapset, error) {
	if !slices.Contains(BeatmapsetCategories, category) {
		return nil, &InvalidCategoryError{Kind: "Beatmap", Given: category, Allowed: BeatmapsetCategories}
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := fmt.Sprintf("/users/%d/beatmapsets/%s", userID, category)
	body, status, err := c.get(ctx, "user_beatmapsets", path, q)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, &StatusError{Endpoint: "user_beatmapsets", Status: status, Body: snippet(body)}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode beatmapsets: %w", err)
	}
	out := make([]Beatmapset, 0, len(items))
	for _, it := range items {
		var set Beatmapset
		if category == "most_played" {
			var wrapped struct {
				Beatmapset *Beatmapset `json:"beatmapset"`
			}
			if err := json.Unmarshal(it, &wrapped); err != nil {
				return nil, fmt.Errorf("decode most_played entry: %w", err)
			}
			if wrapped.Beatmapset == nil {
				return nil, &constructionError{Entity: "beatmapset", Field: "beatmapset"}
			}
			set = *wrapped.Beatmapset
		} else if err := json.Unmarshal(it, &set); err != nil {
			return nil, fmt.Errorf("decode beatmapset: %w", err)
		}
		out = append(out, set)
	}
	return out, nil
}

// FetchUserScores lists a user's scores in category (best, firsts or recent).
func (c *Client) FetchUserScores(ctx context.Context, userID int64, category string, limit int, includeFails bool) ([]Score, error) {
	if !slices.Contains(ScoreCategories, category) {
		return nil, &InvalidCategoryError{Kind: "Score", Given: category, Allowed: ScoreCategories}
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if includeFails {
		q.Set("include_fails", "1")
	} else {
		q.Set("include_fails", "0")
	}
	path := fmt.Sprintf("/users/%d/scores/%s", userID, category)
	body, status, err := c.get(ctx, "user_scores", path, q)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, &StatusError{Endpoint: "user_scores", Status: status, Body: snippet(body)}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	out := make([]Score, 0, len(items))
	for _, it := range items {
		s, err := NewScore(it)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Ping exchanges a token without calling the API; used by readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Tokens.Get(ctx)
	return err
}

// IsNotFound reports whether err is a user or beatmap miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrBeatmapNotFound)
}

func hasErrorKey(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return false
	}
	_, ok := probe["error"]
	return ok
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func snippet(b []byte) string {
	const n = 256
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
