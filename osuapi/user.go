package osuapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProfileOrderIndent is the zero-width-space indented bullet used for profile sections.
const ProfileOrderIndent = " ​ ​ ​ ​ ​ ​ ​ ​  - "

const profileOrderSeparator = "\n" + ProfileOrderIndent

// RankCounts is the per-grade play count breakdown.
type RankCounts struct {
	SS  int64 `json:"ss"`
	SSH int64 `json:"ssh"`
	S   int64 `json:"s"`
	SH  int64 `json:"sh"`
	A   int64 `json:"a"`
}

// String renders "SS n | SSH n | S n | SH n | A n" in that fixed order.
func (r RankCounts) String() string {
	return fmt.Sprintf("SS %s | SSH %s | S %s | SH %s | A %s",
		Thousands(r.SS), Thousands(r.SSH), Thousands(r.S), Thousands(r.SH), Thousands(r.A))
}

// Level is the user's level with progress towards the next one.
type Level struct {
	Current  int64 `json:"current"`
	Progress int64 `json:"progress"`
}

// Country is the user's country as reported by the API.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Statistics is the ranked statistics snapshot. Zero values mean absent.
type Statistics struct {
	GlobalRank  int64
	CountryRank int64
	PP          *float64
	Accuracy    *float64
	TotalHits   int64
	TotalScore  int64
	PlayCount   int64
	MaxCombo    int64
	Level       Level
	Ranks       *RankCounts
}

// User is an immutable snapshot of an osu! user built from one API response.
type User struct {
	ID            int64
	Username      string
	CountryCode   string
	Country       *Country
	AvatarURL     string
	Playstyle     []string
	Playmode      string
	FollowerCount int64
	JoinDate      *time.Time
	ProfileOrder  []string
	IsBot         bool

	// HasStatistics is false when the payload carried no statistics object.
	HasStatistics bool
	Statistics    Statistics
}

type rawUser struct {
	ID            *int64         `json:"id"`
	Username      *string        `json:"username"`
	CountryCode   string         `json:"country_code"`
	Country       *Country       `json:"country"`
	AvatarURL     string         `json:"avatar_url"`
	Playstyle     []string       `json:"playstyle"`
	Playmode      string         `json:"playmode"`
	FollowerCount int64          `json:"follower_count"`
	JoinDate      *string        `json:"join_date"`
	ProfileOrder  []string       `json:"profile_order"`
	IsBot         bool           `json:"is_bot"`
	Statistics    *rawStatistics `json:"statistics"`
}

type rawStatistics struct {
	GlobalRank  *int64      `json:"global_rank"`
	CountryRank *int64      `json:"country_rank"`
	PP          *float64    `json:"pp"`
	HitAccuracy *float64    `json:"hit_accuracy"`
	TotalHits   int64       `json:"total_hits"`
	TotalScore  int64       `json:"total_score"`
	PlayCount   int64       `json:"play_count"`
	MaxCombo    int64       `json:"maximum_combo"`
	Level       Level       `json:"level"`
	GradeCounts *RankCounts `json:"grade_counts"`
}

// NewUser builds a User from a raw /users response body. Identity fields (id, username)
// are strict; everything else falls back to a defined sentinel.
func NewUser(body []byte) (User, error) {
	var raw rawUser
	if err := json.Unmarshal(body, &raw); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}
	return raw.build()
}

func (raw rawUser) build() (User, error) {
	if raw.ID == nil {
		return User{}, &constructionError{Entity: "user", Field: "id"}
	}
	if raw.Username == nil || *raw.Username == "" {
		return User{}, &constructionError{Entity: "user", Field: "username"}
	}
	u := User{
		ID:            *raw.ID,
		Username:      *raw.Username,
		CountryCode:   raw.CountryCode,
		Country:       raw.Country,
		AvatarURL:     raw.AvatarURL,
		Playstyle:     raw.Playstyle,
		Playmode:      raw.Playmode,
		FollowerCount: raw.FollowerCount,
		JoinDate:      optionalTime(raw.JoinDate),
		ProfileOrder:  raw.ProfileOrder,
		IsBot:         raw.IsBot,
	}
	if s := raw.Statistics; s != nil {
		u.HasStatistics = true
		u.Statistics = Statistics{
			PP:         s.PP,
			Accuracy:   s.HitAccuracy,
			TotalHits:  s.TotalHits,
			TotalScore: s.TotalScore,
			PlayCount:  s.PlayCount,
			MaxCombo:   s.MaxCombo,
			Level:      s.Level,
			Ranks:      s.GradeCounts,
		}
		if s.GlobalRank != nil {
			u.Statistics.GlobalRank = *s.GlobalRank
		}
		if s.CountryRank != nil {
			u.Statistics.CountryRank = *s.CountryRank
		}
	}
	return u, nil
}

func (u User) String() string { return u.Username }

// ProfileURL links to the user's osu! profile page.
func (u User) ProfileURL() string { return fmt.Sprintf("https://osu.ppy.sh/users/%d", u.ID) }

// CountryCodeOrNone returns the country code, or "None" when absent.
func (u User) CountryCodeOrNone() string {
	if u.CountryCode == "" {
		return "None"
	}
	return u.CountryCode
}

// CountryEmoji returns the chat flag shortcode (":flag_us:"), or "None" when absent.
func (u User) CountryEmoji() string {
	if u.CountryCode == "" {
		return "None"
	}
	return ":flag_" + strings.ToLower(u.CountryCode) + ":"
}

// PP renders performance points with thousands separators, or "None" without statistics.
func (u User) PP() string {
	if u.Statistics.PP == nil {
		return "None"
	}
	return Thousands(int64(*u.Statistics.PP))
}

// Accuracy renders hit accuracy with two decimals, or "None" without statistics.
func (u User) Accuracy() string {
	if u.Statistics.Accuracy == nil {
		return "None"
	}
	return ThousandsFloat(*u.Statistics.Accuracy, 2)
}

// Ranks renders the grade breakdown, or "None" when the API sent no grade counts.
func (u User) Ranks() string {
	if u.Statistics.Ranks == nil {
		return "None"
	}
	return u.Statistics.Ranks.String()
}

// FormattedProfileOrder joins profile sections as an indented list with underscores as spaces.
func (u User) FormattedProfileOrder() string {
	if len(u.ProfileOrder) == 0 {
		return "Cant Get Profile Order!"
	}
	return strings.ReplaceAll(strings.Join(u.ProfileOrder, profileOrderSeparator), "_", " ")
}

// JoinedAgo renders the join date relative to now, or "Unknown".
func (u User) JoinedAgo(now time.Time) string {
	if u.JoinDate == nil {
		return "Unknown"
	}
	return Ago(*u.JoinDate, now)
}

// PlaystyleString renders selected playstyles or a hint that none are set.
func (u User) PlaystyleString() string {
	if len(u.Playstyle) == 0 {
		return u.Username + " has no playstyles selected"
	}
	return strings.Join(u.Playstyle, ", ")
}
