package osuapi

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/aswo/testutil"
)

func newTestClient(t *testing.T) (*Client, *testutil.MockOsuServer) {
	t.Helper()
	srv := testutil.NewMockOsuServer(t)
	srv.MockOAuthTokenResponse("tok", 3600)
	tc := &TokenCache{ClientID: "id", ClientSecret: "secret", TokenURL: srv.TokenURL()}
	return NewClient(srv.APIURL(), tc, 0), srv
}

func TestFetchUser(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Handlers["/api/v2/users/peppy"] = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "username", r.URL.Query().Get("key"))
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"id": 2, "username": "peppy", "country_code": "AU"})
	}

	u, err := c.FetchUser(context.Background(), "peppy")
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.ID)
	assert.Equal(t, ":flag_au:", u.CountryEmoji())
}

func TestFetchUser_NumericIdentifierHasNoKey(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Handlers["/api/v2/users/2"] = func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("key"))
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"id": 2, "username": "peppy"})
	}
	_, err := c.FetchUser(context.Background(), "2")
	require.NoError(t, err)
}

func TestFetchUser_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{name: "error key", status: http.StatusOK, body: map[string]any{"error": nil}},
		{name: "404", status: http.StatusNotFound, body: map[string]any{"authentication": "basic"}},
		{name: "missing username", status: http.StatusOK, body: map[string]any{"id": 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newTestClient(t)
			srv.MockJSON("/users/nobody", tt.status, tt.body)
			_, err := c.FetchUser(context.Background(), "nobody")
			assert.ErrorIs(t, err, ErrUserNotFound)
		})
	}
}

func TestFetchUser_RetriesOnceAfter401(t *testing.T) {
	srv := testutil.NewMockOsuServer(t)
	issued := 0
	srv.Handlers["/oauth/token"] = func(w http.ResponseWriter, r *http.Request) {
		issued++
		tok := "stale"
		if issued > 1 {
			tok = "fresh"
		}
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"access_token": tok, "token_type": "Bearer", "expires_in": 3600})
	}
	srv.Handlers["/api/v2/users/2"] = func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"id": 2, "username": "peppy"})
	}
	c := NewClient(srv.APIURL(), &TokenCache{ClientID: "id", ClientSecret: "secret", TokenURL: srv.TokenURL()}, 0)

	u, err := c.FetchUser(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "peppy", u.Username)
	assert.Equal(t, 2, issued)
	assert.Equal(t, 2, srv.Hits("/api/v2/users/2"))
}

func TestFetchUser_Persistent401IsAuthError(t *testing.T) {
	c, srv := newTestClient(t)
	srv.MockJSON("/users/2", http.StatusUnauthorized, map[string]any{"authentication": "basic"})

	_, err := c.FetchUser(context.Background(), "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 2, srv.Hits("/api/v2/users/2"), "exactly one retry")
}

func TestFetchBeatmap(t *testing.T) {
	c, srv := newTestClient(t)
	srv.MockJSON("/beatmaps/75", http.StatusOK, map[string]any{
		"id": 75, "beatmapset_id": 1, "version": "Normal", "mode": "osu", "status": "ranked",
		"difficulty_rating": 2.55, "bpm": 160, "ar": 6, "cs": 4, "drain": 6,
		"last_updated": "2014-05-18T17:16:38Z",
		"beatmapset": map[string]any{
			"artist": "Kenji Ninuma", "title": "DISCO PRINCE", "creator": "peppy",
			"covers": map[string]string{"card@2x": "https://assets.ppy.sh/card@2x.jpg"},
		},
	})

	b, err := c.FetchBeatmap(context.Background(), "75")
	require.NoError(t, err)
	assert.Equal(t, "DISCO PRINCE", b.Title)
	assert.Equal(t, int64(1), b.BeatmapsetID)
	require.NotNil(t, b.LastUpdated)
	assert.Nil(t, b.RankedDate)
	cover, err := b.Cover("card@2x")
	require.NoError(t, err)
	assert.Contains(t, cover, "card@2x")
}

func TestFetchBeatmap_ErrorKey(t *testing.T) {
	c, srv := newTestClient(t)
	srv.MockJSON("/beatmaps/1", http.StatusOK, map[string]any{"error": "Specified beatmap difficulty couldn't be found."})

	_, err := c.FetchBeatmap(context.Background(), "1")
	assert.ErrorIs(t, err, ErrBeatmapNotFound)
}

func TestFetchBeatmap_NonNumericSkipsRequest(t *testing.T) {
	c, srv := newTestClient(t)
	_, err := c.FetchBeatmap(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrBeatmapNotFound)
	assert.Zero(t, srv.TotalHits())
}

func TestFetchUserBeatmapsets_UniformAcrossCategories(t *testing.T) {
	flat := []map[string]any{{"id": 10, "title": "Flat", "artist": "A", "creator": "c", "status": "ranked", "unknown_field": true}}
	nested := []map[string]any{{"beatmap_id": 99, "count": 3, "beatmapset": map[string]any{"id": 10, "title": "Flat", "artist": "A", "creator": "c", "status": "ranked"}}}

	for _, cat := range BeatmapsetCategories {
		t.Run(cat, func(t *testing.T) {
			c, srv := newTestClient(t)
			body := any(flat)
			if cat == "most_played" {
				body = nested
			}
			srv.Handlers["/api/v2/users/7/beatmapsets/"+cat] = func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "5", r.URL.Query().Get("limit"))
				testutil.WriteJSON(w, http.StatusOK, body)
			}

			sets, err := c.FetchUserBeatmapsets(context.Background(), 7, cat, 5)
			require.NoError(t, err)
			require.Len(t, sets, 1)
			assert.Equal(t, int64(10), sets[0].ID)
			assert.Equal(t, "Flat", sets[0].Title)
		})
	}
}

func TestInvalidCategoryMakesNoRequest(t *testing.T) {
	c, srv := newTestClient(t)

	_, err := c.FetchUserBeatmapsets(context.Background(), 7, "hot", 5)
	var catErr *InvalidCategoryError
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, "Beatmap type must be in favourite, graveyard, loved, most_played, pending, ranked", err.Error())

	_, err = c.FetchUserScores(context.Background(), 7, "worst", 5, false)
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, "Score", catErr.Kind)

	assert.Zero(t, srv.TotalHits(), "no token exchange or API call expected")
}

func TestFetchUserScores(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Handlers["/api/v2/users/7/scores/recent"] = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("include_fails"))
		testutil.WriteJSON(w, http.StatusOK, []map[string]any{{
			"id": 1, "accuracy": 0.9876, "rank": "S", "pp": nil, "mods": []string{"HD"},
			"created_at": "2024-01-02T03:04:05Z", "weight": map[string]any{"percentage": 100},
			"beatmap":    map[string]any{"id": 75, "beatmapset_id": 1, "version": "Normal", "difficulty_rating": 2.5},
			"beatmapset": map[string]any{"id": 1, "title": "DISCO PRINCE", "artist": "Kenji Ninuma"},
		}})
	}

	scores, err := c.FetchUserScores(context.Background(), 7, "recent", 1, true)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	s := scores[0]
	assert.Equal(t, "S", s.Rank)
	assert.Equal(t, "None", s.PPString())
	assert.Equal(t, "Normal", s.Beatmap.Version)
	assert.Equal(t, "DISCO PRINCE", s.Beatmapset.Title)

	var weight struct {
		Percentage float64 `json:"percentage"`
	}
	ok, err := s.Field("weight", &weight)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 100.0, weight.Percentage)
}
