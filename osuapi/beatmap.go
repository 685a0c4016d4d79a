package osuapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CoverVariants is the fixed set of cover image names the API publishes, in display order.
var CoverVariants = []string{
	"cover", "cover@2x",
	"card", "card@2x",
	"list", "list@2x",
	"slimcover", "slimcover@2x",
}

// Covers maps cover variant names to image URLs.
type Covers map[string]string

// CoverNotAvailableError lists the variants that can be requested instead.
type CoverNotAvailableError struct {
	Requested string
	Available []string
}

func (e *CoverNotAvailableError) Error() string {
	return "Cover not in covers!\nChoose from " + strings.Join(e.Available, ", ")
}

// Lookup returns the URL for variant, or a *CoverNotAvailableError naming the choices.
func (c Covers) Lookup(variant string) (string, error) {
	if u, ok := c[variant]; ok && u != "" {
		return u, nil
	}
	avail := make([]string, 0, len(c))
	for _, v := range CoverVariants {
		if c[v] != "" {
			avail = append(avail, v)
		}
	}
	return "", &CoverNotAvailableError{Requested: variant, Available: avail}
}

// Hype is the nomination hype counter on pending beatmapsets.
type Hype struct {
	Current  int `json:"current"`
	Required int `json:"required"`
}

// Beatmapset carries set-wide metadata. Decoding keeps only the known fields below;
// anything else in the payload is dropped.
type Beatmapset struct {
	ID             int64   `json:"id"`
	Artist         string  `json:"artist"`
	ArtistUnicode  string  `json:"artist_unicode"`
	Title          string  `json:"title"`
	TitleUnicode   string  `json:"title_unicode"`
	Creator        string  `json:"creator"`
	FavouriteCount int64   `json:"favourite_count"`
	Hype           *Hype   `json:"hype"`
	NSFW           bool    `json:"nsfw"`
	Offset         int     `json:"offset"`
	PlayCount      int64   `json:"play_count"`
	PreviewURL     string  `json:"preview_url"`
	Source         string  `json:"source"`
	Spotlight      bool    `json:"spotlight"`
	Status         string  `json:"status"`
	TrackID        *int64  `json:"track_id"`
	UserID         int64   `json:"user_id"`
	Video          bool    `json:"video"`
	Covers         Covers  `json:"covers"`
	RankedDate     *string `json:"ranked_date"`
	SubmittedDate  *string `json:"submitted_date"`
}

// Cover looks up a cover variant on this set.
func (s Beatmapset) Cover(variant string) (string, error) { return s.Covers.Lookup(variant) }

// BeatmapCompact is the trimmed beatmap reference embedded in scores.
type BeatmapCompact struct {
	ID               int64   `json:"id"`
	BeatmapsetID     int64   `json:"beatmapset_id"`
	DifficultyRating float64 `json:"difficulty_rating"`
	Mode             string  `json:"mode"`
	Status           string  `json:"status"`
	TotalLength      int64   `json:"total_length"`
	UserID           int64   `json:"user_id"`
	Version          string  `json:"version"`
}

// Beatmap is a single playable difficulty with its parent set metadata flattened in.
type Beatmap struct {
	ID               int64
	BeatmapsetID     int64
	Title            string
	Artist           string
	Creator          string
	Version          string
	DifficultyRating float64
	Mode             string
	Status           string
	AR               float64
	CS               float64
	Drain            float64
	BPM              float64
	MaxCombo         int64
	PassCount        int64
	PlayCount        int64
	FavouriteCount   int64
	NSFW             bool
	URL              string
	RankedDate       *time.Time
	SubmittedDate    *time.Time
	LastUpdated      *time.Time
	Beatmapset       Beatmapset
}

type rawBeatmap struct {
	ID               *int64      `json:"id"`
	BeatmapsetID     *int64      `json:"beatmapset_id"`
	Version          *string     `json:"version"`
	Mode             *string     `json:"mode"`
	Status           *string     `json:"status"`
	DifficultyRating float64     `json:"difficulty_rating"`
	AR               float64     `json:"ar"`
	CS               float64     `json:"cs"`
	Drain            float64     `json:"drain"`
	BPM              float64     `json:"bpm"`
	MaxCombo         int64       `json:"max_combo"`
	PassCount        int64       `json:"passcount"`
	PlayCount        int64       `json:"playcount"`
	URL              string      `json:"url"`
	LastUpdated      *string     `json:"last_updated"`
	Beatmapset       *Beatmapset `json:"beatmapset"`
}

// NewBeatmap builds a Beatmap from a raw /beatmaps/{id} response body.
func NewBeatmap(body []byte) (Beatmap, error) {
	var raw rawBeatmap
	if err := json.Unmarshal(body, &raw); err != nil {
		return Beatmap{}, fmt.Errorf("decode beatmap: %w", err)
	}
	return raw.build()
}

func (raw rawBeatmap) build() (Beatmap, error) {
	switch {
	case raw.ID == nil:
		return Beatmap{}, &constructionError{Entity: "beatmap", Field: "id"}
	case raw.BeatmapsetID == nil:
		return Beatmap{}, &constructionError{Entity: "beatmap", Field: "beatmapset_id"}
	case raw.Version == nil:
		return Beatmap{}, &constructionError{Entity: "beatmap", Field: "version"}
	case raw.Mode == nil:
		return Beatmap{}, &constructionError{Entity: "beatmap", Field: "mode"}
	case raw.Status == nil:
		return Beatmap{}, &constructionError{Entity: "beatmap", Field: "status"}
	case raw.Beatmapset == nil:
		return Beatmap{}, &constructionError{Entity: "beatmap", Field: "beatmapset"}
	case raw.Beatmapset.Title == "":
		return Beatmap{}, &constructionError{Entity: "beatmap", Field: "beatmapset.title"}
	case raw.Beatmapset.Artist == "":
		return Beatmap{}, &constructionError{Entity: "beatmap", Field: "beatmapset.artist"}
	}
	set := *raw.Beatmapset
	return Beatmap{
		ID:               *raw.ID,
		BeatmapsetID:     *raw.BeatmapsetID,
		Title:            set.Title,
		Artist:           set.Artist,
		Creator:          set.Creator,
		Version:          *raw.Version,
		DifficultyRating: raw.DifficultyRating,
		Mode:             *raw.Mode,
		Status:           *raw.Status,
		AR:               raw.AR,
		CS:               raw.CS,
		Drain:            raw.Drain,
		BPM:              raw.BPM,
		MaxCombo:         raw.MaxCombo,
		PassCount:        raw.PassCount,
		PlayCount:        raw.PlayCount,
		FavouriteCount:   set.FavouriteCount,
		NSFW:             set.NSFW,
		URL:              raw.URL,
		RankedDate:       optionalTime(set.RankedDate),
		SubmittedDate:    optionalTime(set.SubmittedDate),
		LastUpdated:      optionalTime(raw.LastUpdated),
		Beatmapset:       set,
	}, nil
}

// Cover looks up a cover variant on the parent beatmapset.
func (b Beatmap) Cover(variant string) (string, error) { return b.Beatmapset.Covers.Lookup(variant) }

// MirrorURL links to the kitsu.moe download mirror for the parent set.
func (b Beatmap) MirrorURL() string { return fmt.Sprintf("https://kitsu.moe/d/%d", b.BeatmapsetID) }
