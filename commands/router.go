// Package commands implements the bot's chat commands independent of any chat platform.
// Front-ends normalise messages into a Request and render Replies through a Responder.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/aswo/ordr"
	"github.com/onnwee/aswo/osuapi"
	"github.com/onnwee/aswo/settings"
	"github.com/onnwee/aswo/telemetry"
)

// OsuClient is the osu! API surface the commands use.
type OsuClient interface {
	FetchUser(ctx context.Context, identifier string) (osuapi.User, error)
	FetchBeatmap(ctx context.Context, identifier string) (osuapi.Beatmap, error)
	FetchUserBeatmapsets(ctx context.Context, userID int64, category string, limit int) ([]osuapi.Beatmapset, error)
	FetchUserScores(ctx context.Context, userID int64, category string, limit int, includeFails bool) ([]osuapi.Score, error)
}

// RenderFarm submits replays for rendering.
type RenderFarm interface {
	SubmitRender(ctx context.Context, replayURL string, skinID int) (ordr.Submission, error)
}

// SkinCatalog resolves skin ids.
type SkinCatalog interface {
	Lookup(ctx context.Context, id int) (ordr.Skin, bool, error)
}

// RenderTracker waits for a submitted render to finish.
type RenderTracker interface {
	Track(ctx context.Context, sub ordr.Submission, origin ordr.Origin) ordr.Job
}

// Settings is the per-guild and per-user settings accessor.
type Settings interface {
	Prefix(ctx context.Context, guildID string) string
	DefaultPrefix() string
	SetPrefix(ctx context.Context, guildID, prefix string) error
	OsuUsername(ctx context.Context, userID string) (string, bool, error)
	SetOsuUsername(ctx context.Context, userID, username string) error
	Skin(ctx context.Context, userID string) (int, error)
	SetSkin(ctx context.Context, userID string, skinID int) error
}

type handlerFunc func(ctx context.Context, req Request, args []string) (Reply, error)

// Router dispatches parsed commands and replay uploads.
type Router struct {
	Osu      OsuClient
	Renders  RenderFarm
	Skins    SkinCatalog
	Tracker  RenderTracker
	Settings Settings
	Now      func() time.Time

	handlers map[string]handlerFunc
	osu      map[string]handlerFunc
}

// NewRouter wires the command table.
func NewRouter(osu OsuClient, renders RenderFarm, skins SkinCatalog, tracker RenderTracker, prefs Settings) *Router {
	r := &Router{Osu: osu, Renders: renders, Skins: skins, Tracker: tracker, Settings: prefs, Now: time.Now}
	r.handlers = map[string]handlerFunc{
		"help":      r.help,
		"setprefix": r.setPrefix,
	}
	r.osu = map[string]handlerFunc{
		"user":        r.osuUser,
		"beatmap":     r.osuBeatmap,
		"beatmapsets": r.osuBeatmapsets,
		"scores":      r.osuScores,
		"set":         r.osuSet,
		"replay":      r.osuReplay,
	}
	return r
}

// HandleMessage processes one incoming message: replay uploads are submitted for rendering,
// prefixed messages are dispatched as commands. It blocks until any render is tracked to
// completion, so callers run it on its own goroutine. It reports whether the message was
// acted on.
func (r *Router) HandleMessage(ctx context.Context, req Request, resp Responder) bool {
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	if url, ok := DetectReplay(req.Content, req.Attachments); ok && r.Renders != nil {
		r.HandleReplay(ctx, req, url, resp)
		return true
	}
	prefixes := append([]string{r.Settings.Prefix(ctx, req.GuildID), r.Settings.DefaultPrefix()}, req.ExtraPrefixes...)
	line, ok := StripPrefix(req.Content, prefixes)
	if !ok {
		return false
	}
	args := Parse(line)
	if len(args) == 0 {
		return false
	}
	reply, name, found := r.Dispatch(ctx, req, args)
	if !found {
		return false
	}
	if _, err := resp.Send(ctx, reply); err != nil {
		telemetry.LoggerWithCorr(ctx).Warn("failed to send reply", slog.String("command", name), slog.Any("err", err))
	}
	return true
}

// Dispatch runs the command named by args and converts any failure into a reply through
// ErrorMessage. found is false for unknown commands.
func (r *Router) Dispatch(ctx context.Context, req Request, args []string) (reply Reply, name string, found bool) {
	name = strings.ToLower(args[0])
	h, ok := r.handlers[name]
	rest := args[1:]
	if name == "osu" {
		if len(rest) == 0 {
			return Reply{Content: osuUsage, Ephemeral: true}, name, true
		}
		sub := strings.ToLower(rest[0])
		h, ok = r.osu[sub]
		name = "osu " + sub
		rest = rest[1:]
		if !ok {
			return Reply{Content: osuUsage, Ephemeral: true}, name, true
		}
	}
	if !ok {
		return Reply{}, name, false
	}

	log := telemetry.LoggerWithCorr(ctx).With(slog.String("command", name), slog.String("platform", req.Platform), slog.String("user_id", req.UserID))
	start := time.Now()
	reply, err := h(ctx, req, rest)
	if err != nil {
		result := "error"
		var ue *UsageError
		if errors.As(err, &ue) || osuapi.IsNotFound(err) {
			result = "user_error"
			log.Info("command rejected", slog.Any("err", err))
		} else {
			log.Error("command failed", slog.Any("err", err))
		}
		telemetry.CountCommand(req.Platform, name, result)
		return Reply{Content: ErrorMessage(err), Ephemeral: true}, name, true
	}
	telemetry.CountCommand(req.Platform, name, "ok")
	log.Debug("command handled", slog.Duration("took", time.Since(start)))
	return reply, name, true
}

const osuUsage = "Usage: osu <user|beatmap|beatmapsets|scores|set user|replay config> ..."

func (r *Router) help(ctx context.Context, req Request, _ []string) (Reply, error) {
	p := r.Settings.Prefix(ctx, req.GuildID)
	lines := []string{
		p + "osu user [name] [info|avatar|stats] - osu! profile",
		p + "osu beatmap <url or id> - beatmap info",
		p + "osu beatmapsets <name> <" + strings.Join(osuapi.BeatmapsetCategories, "|") + "> [limit]",
		p + "osu scores <name> <" + strings.Join(osuapi.ScoreCategories, "|") + "> [limit] [fails]",
		p + "osu set user <name> - link your osu! account",
		p + "osu replay config <skin id> - choose your replay skin",
		p + "setprefix <prefix> - change this server's prefix",
		"Upload an .osr replay to get it rendered!",
	}
	return Reply{Embed: &Embed{Title: "Aswo commands", Description: strings.Join(lines, "\n"), Color: EmbedColor}}, nil
}

func (r *Router) setPrefix(ctx context.Context, req Request, args []string) (Reply, error) {
	if req.GuildID == "" {
		return Reply{}, usage("Prefixes can only be set in a server!")
	}
	if len(args) != 1 {
		return Reply{}, usage("Usage: setprefix <prefix>")
	}
	if err := r.Settings.SetPrefix(ctx, req.GuildID, args[0]); err != nil {
		if errors.Is(err, settings.ErrInvalidPrefix) {
			return Reply{}, usage("The prefix must be 1-%d characters without spaces!", settings.MaxPrefixLen)
		}
		return Reply{}, err
	}
	return Reply{Content: "Succesfully made the guild prefix: ``" + args[0] + "``"}, nil
}
