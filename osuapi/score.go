package osuapi

import (
	"encoding/json"
	"fmt"
	"time"
)

// Score is one play result. The common fields are typed; every top-level field of the
// upstream object is also kept verbatim in Raw.
type Score struct {
	ID         int64
	UserID     int64
	Accuracy   float64
	MaxCombo   int64
	Mods       []string
	PP         *float64
	Rank       string
	Score      int64
	Passed     bool
	Mode       string
	CreatedAt  *time.Time
	Beatmap    BeatmapCompact
	Beatmapset Beatmapset

	Raw map[string]json.RawMessage
}

type rawScore struct {
	ID         *int64          `json:"id"`
	UserID     int64           `json:"user_id"`
	Accuracy   float64         `json:"accuracy"`
	MaxCombo   int64           `json:"max_combo"`
	Mods       []string        `json:"mods"`
	PP         *float64        `json:"pp"`
	Rank       string          `json:"rank"`
	Score      int64           `json:"score"`
	Passed     bool            `json:"passed"`
	Mode       string          `json:"mode"`
	CreatedAt  *string         `json:"created_at"`
	Beatmap    *BeatmapCompact `json:"beatmap"`
	Beatmapset *Beatmapset     `json:"beatmapset"`
}

// NewScore builds a Score from one element of a /scores/{category} response.
func NewScore(obj json.RawMessage) (Score, error) {
	var raw rawScore
	if err := json.Unmarshal(obj, &raw); err != nil {
		return Score{}, fmt.Errorf("decode score: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return Score{}, fmt.Errorf("decode score: %w", err)
	}
	switch {
	case raw.ID == nil:
		return Score{}, &constructionError{Entity: "score", Field: "id"}
	case raw.Beatmap == nil:
		return Score{}, &constructionError{Entity: "score", Field: "beatmap"}
	case raw.Beatmapset == nil:
		return Score{}, &constructionError{Entity: "score", Field: "beatmapset"}
	}
	return Score{
		ID:         *raw.ID,
		UserID:     raw.UserID,
		Accuracy:   raw.Accuracy,
		MaxCombo:   raw.MaxCombo,
		Mods:       raw.Mods,
		PP:         raw.PP,
		Rank:       raw.Rank,
		Score:      raw.Score,
		Passed:     raw.Passed,
		Mode:       raw.Mode,
		CreatedAt:  optionalTime(raw.CreatedAt),
		Beatmap:    *raw.Beatmap,
		Beatmapset: *raw.Beatmapset,
		Raw:        fields,
	}, nil
}

// Field decodes the verbatim top-level field name into v. It reports false when absent.
func (s Score) Field(name string, v any) (bool, error) {
	b, ok := s.Raw[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, v)
}

// PPString renders pp to two decimals, or "None" for unranked plays.
func (s Score) PPString() string {
	if s.PP == nil {
		return "None"
	}
	return ThousandsFloat(*s.PP, 2)
}
