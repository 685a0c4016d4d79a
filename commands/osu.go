package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/aswo/osuapi"
	"github.com/onnwee/aswo/telemetry"
)

const (
	defaultListLimit = 5
	maxListLimit     = 10
)

var userViews = []string{"info", "avatar", "stats"}

func (r *Router) osuUser(ctx context.Context, req Request, args []string) (Reply, error) {
	view := "info"
	if n := len(args); n > 0 && slices.Contains(userViews, strings.ToLower(args[n-1])) {
		view = strings.ToLower(args[n-1])
		args = args[:n-1]
	}
	name, err := r.resolveOsuName(ctx, req, strings.Join(args, " "))
	if err != nil {
		return Reply{}, err
	}
	u, err := r.Osu.FetchUser(ctx, name)
	if err != nil {
		return Reply{}, err
	}
	switch view {
	case "avatar":
		return Reply{Embed: userAvatarEmbed(u)}, nil
	case "stats":
		return Reply{Embed: userStatsEmbed(u)}, nil
	default:
		return Reply{Embed: userInfoEmbed(u, r.Now())}, nil
	}
}

// resolveOsuName falls back to the invoker's linked osu! account, then their display name.
func (r *Router) resolveOsuName(ctx context.Context, req Request, name string) (string, error) {
	if name = strings.TrimSpace(name); name != "" {
		return name, nil
	}
	linked, ok, err := r.Settings.OsuUsername(ctx, req.UserID)
	if err != nil {
		return "", fmt.Errorf("load linked osu! username: %w", err)
	}
	if ok {
		return linked, nil
	}
	return req.DisplayName, nil
}

func userInfoEmbed(u osuapi.User, now time.Time) *Embed {
	s := u.Statistics
	var b strings.Builder
	fmt.Fprintf(&b, "**%s | Profile for [%s](%s)**\n\n", u.CountryEmoji(), u.Username, u.ProfileURL())
	fmt.Fprintf(&b, "▹ **Bancho Rank**: #%s (%s#%s)\n", rankString(s.GlobalRank), u.CountryCodeOrNone(), rankString(s.CountryRank))
	fmt.Fprintf(&b, "▹ **Join Date**: %s\n", u.JoinedAgo(now))
	fmt.Fprintf(&b, "▹ **PP**: %s **Acc**: %s%%\n", u.PP(), u.Accuracy())
	fmt.Fprintf(&b, "▹ **Ranks**: %s\n", u.Ranks())
	fmt.Fprintf(&b, "▹ **Profile Order**: \n**%s%s**", osuapi.ProfileOrderIndent, u.FormattedProfileOrder())
	return &Embed{Description: b.String(), Color: EmbedColor, Thumbnail: u.AvatarURL}
}

func rankString(rank int64) string {
	if rank == 0 {
		return "None"
	}
	return osuapi.Thousands(rank)
}

func userAvatarEmbed(u osuapi.User) *Embed {
	return &Embed{Title: u.Username + "'s Osu avatar", Image: u.AvatarURL, Color: EmbedColor}
}

func userStatsEmbed(u osuapi.User) *Embed {
	s := u.Statistics
	return &Embed{
		Title: u.Username + "'s Statistics",
		Color: EmbedColor,
		Fields: []Field{
			{
				Name: "Total Statistics",
				Value: fmt.Sprintf("Total Hits: %s\nTotal Score: %s\nMaximum Combo: %s\nPlay Count: %s",
					osuapi.Thousands(s.TotalHits), osuapi.Thousands(s.TotalScore), osuapi.Thousands(s.MaxCombo), osuapi.Thousands(s.PlayCount)),
				Inline: true,
			},
			{
				Name:   "Play Styles",
				Value:  fmt.Sprintf("Play Styles: %s\nFavorite Play Mode: %s", u.PlaystyleString(), u.Playmode),
				Inline: true,
			},
		},
	}
}

func (r *Router) osuBeatmap(ctx context.Context, _ Request, args []string) (Reply, error) {
	if len(args) == 0 {
		return Reply{}, usage("Usage: osu beatmap <beatmap url or id>")
	}
	id, ok := ExtractBeatmapID(strings.Join(args, " "))
	if !ok {
		return Reply{}, usage("Could not find a beatmap with that url/id!\n%s", beatmapIDHint)
	}
	b, err := r.Osu.FetchBeatmap(ctx, id)
	if err != nil {
		return Reply{}, err
	}
	creator := b.Creator
	if u, err := r.Osu.FetchUser(ctx, b.Creator); err == nil {
		creator = fmt.Sprintf("[%s](%s)", u.Username, u.ProfileURL())
	} else {
		telemetry.LoggerWithCorr(ctx).Debug("beatmap creator lookup failed", slog.String("creator", b.Creator), slog.Any("err", err))
	}
	return Reply{Embed: beatmapEmbed(b, creator, r.Now())}, nil
}

func (r *Router) osuBeatmapsets(ctx context.Context, _ Request, args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, usage("Usage: osu beatmapsets <name> <%s> [limit]", strings.Join(osuapi.BeatmapsetCategories, "|"))
	}
	category := strings.ToLower(args[1])
	if !slices.Contains(osuapi.BeatmapsetCategories, category) {
		return Reply{}, &osuapi.InvalidCategoryError{Kind: "Beatmap", Given: category, Allowed: osuapi.BeatmapsetCategories}
	}
	limit, err := parseLimit(args[2:])
	if err != nil {
		return Reply{}, err
	}
	u, err := r.Osu.FetchUser(ctx, args[0])
	if err != nil {
		return Reply{}, err
	}
	sets, err := r.Osu.FetchUserBeatmapsets(ctx, u.ID, category, limit)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Embed: beatmapsetsEmbed(u, category, sets)}, nil
}

func (r *Router) osuScores(ctx context.Context, _ Request, args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, usage("Usage: osu scores <name> <%s> [limit] [fails]", strings.Join(osuapi.ScoreCategories, "|"))
	}
	category := strings.ToLower(args[1])
	if !slices.Contains(osuapi.ScoreCategories, category) {
		return Reply{}, &osuapi.InvalidCategoryError{Kind: "Score", Given: category, Allowed: osuapi.ScoreCategories}
	}
	rest := args[2:]
	includeFails := false
	if n := len(rest); n > 0 && (strings.EqualFold(rest[n-1], "fails") || strings.EqualFold(rest[n-1], "true")) {
		includeFails = true
		rest = rest[:n-1]
	}
	limit, err := parseLimit(rest)
	if err != nil {
		return Reply{}, err
	}
	u, err := r.Osu.FetchUser(ctx, args[0])
	if err != nil {
		return Reply{}, err
	}
	scores, err := r.Osu.FetchUserScores(ctx, u.ID, category, limit, includeFails)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Embed: scoresEmbed(u, category, scores)}, nil
}

func (r *Router) osuSet(ctx context.Context, req Request, args []string) (Reply, error) {
	if len(args) < 2 || !strings.EqualFold(args[0], "user") {
		return Reply{}, usage("Usage: osu set user <osu! username>")
	}
	name := strings.Join(args[1:], " ")
	if err := r.Settings.SetOsuUsername(ctx, req.UserID, name); err != nil {
		return Reply{}, err
	}
	return Reply{Content: "Sucessfullly set your osu username to: " + name}, nil
}

func (r *Router) osuReplay(ctx context.Context, req Request, args []string) (Reply, error) {
	if len(args) != 2 || !strings.EqualFold(args[0], "config") {
		return Reply{}, usage("Usage: osu replay config <skin id> | https://ordr.issou.best/skins")
	}
	skinID, err := strconv.Atoi(args[1])
	if err != nil || skinID <= 0 {
		return Reply{}, usage("The skin id must be a number! | https://ordr.issou.best/skins")
	}
	if r.Skins == nil {
		return Reply{}, usage("Replay rendering is not configured on this bot.")
	}
	skin, ok, err := r.Skins.Lookup(ctx, skinID)
	if err != nil {
		return Reply{}, err
	}
	if !ok {
		return Reply{}, usage("That skin is not accessable or for some reason the ordr api did not give us it, Sorry!")
	}
	if err := r.Settings.SetSkin(ctx, req.UserID, skinID); err != nil {
		return Reply{}, err
	}
	return Reply{Embed: &Embed{
		Title: "Succesfully made replay skin to " + skin.Name + "!",
		Color: EmbedColor,
		Image: skin.HighResPreview,
		Fields: []Field{
			{Name: "Download link", Value: "[Click here to download](" + skin.DownloadURL + ")", Inline: true},
			{Name: "Author", Value: skin.Author, Inline: true},
		},
	}}, nil
}

func parseLimit(args []string) (int, error) {
	if len(args) == 0 {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, usage("The limit must be a number between 1 and %d!", maxListLimit)
	}
	return min(n, maxListLimit), nil
}

func beatmapEmbed(b osuapi.Beatmap, creator string, now time.Time) *Embed {
	e := &Embed{
		Title: "Info on " + b.Title,
		URL:   b.URL,
		Color: EmbedColor,
		Fields: []Field{
			{
				Name: "Info",
				Value: fmt.Sprintf("Artist: %s\nCreator: %s\nDifficulty: %s (%s stars)\nMode: %s\nStatus: %s",
					b.Artist, creator, b.Version, osuapi.ThousandsFloat(b.DifficultyRating, 2), b.Mode, b.Status),
				Inline: true,
			},
			{
				Name: "Gameplay",
				Value: fmt.Sprintf("AR: %g | CS: %g | HP: %g\nBPM: %g\nMax Combo: %s\nPlays: %s | Passes: %s\nFavourites: %s",
					b.AR, b.CS, b.Drain, b.BPM, osuapi.Thousands(b.MaxCombo), osuapi.Thousands(b.PlayCount),
					osuapi.Thousands(b.PassCount), osuapi.Thousands(b.FavouriteCount)),
				Inline: true,
			},
			{
				Name: "Dates",
				Value: fmt.Sprintf("Submitted: %s\nRanked: %s\nLast Updated: %s",
					agoOrUnknown(b.SubmittedDate, now), agoOrUnknown(b.RankedDate, now), agoOrUnknown(b.LastUpdated, now)),
			},
			{
				Name:  "Links",
				Value: fmt.Sprintf("[osu!](%s) | [Mirror](%s)", b.URL, b.MirrorURL()),
			},
		},
	}
	if cover, err := b.Cover("card@2x"); err == nil {
		e.Image = cover
	}
	return e
}

func agoOrUnknown(t *time.Time, now time.Time) string {
	if t == nil {
		return "Unknown"
	}
	return osuapi.Ago(*t, now)
}

func beatmapsetsEmbed(u osuapi.User, category string, sets []osuapi.Beatmapset) *Embed {
	e := &Embed{
		Title: fmt.Sprintf("%s's %s beatmapsets", u.Username, strings.ReplaceAll(category, "_", " ")),
		URL:   u.ProfileURL(),
		Color: EmbedColor,
	}
	if len(sets) == 0 {
		e.Description = "No beatmapsets found!"
		return e
	}
	for i, s := range sets {
		e.Fields = append(e.Fields, Field{
			Name: fmt.Sprintf("%d. %s - %s", i+1, s.Artist, s.Title),
			Value: fmt.Sprintf("Mapped by %s | %s\nPlays: %s | Favourites: %s\n[Link](https://osu.ppy.sh/beatmapsets/%d)",
				s.Creator, s.Status, osuapi.Thousands(s.PlayCount), osuapi.Thousands(s.FavouriteCount), s.ID),
		})
	}
	return e
}

func scoresEmbed(u osuapi.User, category string, scores []osuapi.Score) *Embed {
	e := &Embed{
		Title:     fmt.Sprintf("%s's %s scores", u.Username, category),
		URL:       u.ProfileURL(),
		Color:     EmbedColor,
		Thumbnail: u.AvatarURL,
	}
	if len(scores) == 0 {
		e.Description = "No scores found!"
		return e
	}
	for i, s := range scores {
		mods := "NM"
		if len(s.Mods) > 0 {
			mods = strings.Join(s.Mods, "")
		}
		e.Fields = append(e.Fields, Field{
			Name: fmt.Sprintf("%d. %s [%s] +%s", i+1, s.Beatmapset.Title, s.Beatmap.Version, mods),
			Value: fmt.Sprintf("Rank: %s | PP: %s | Acc: %s%%\nScore: %s | Combo: %sx\n[Link](https://osu.ppy.sh/b/%d)",
				s.Rank, s.PPString(), osuapi.ThousandsFloat(s.Accuracy*100, 2), osuapi.Thousands(s.Score),
				osuapi.Thousands(s.MaxCombo), s.Beatmap.ID),
		})
	}
	return e
}
