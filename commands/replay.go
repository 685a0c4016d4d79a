package commands

import (
	"context"
	"log/slog"

	"github.com/onnwee/aswo/ordr"
	"github.com/onnwee/aswo/telemetry"
)

const replayAck = "Osu replay file detected, a rendered replay will be sent shortly! May take up to a minute while its uploading so sit back and relax :D!\nIll ping you when its finished!"

// HandleReplay submits a replay for rendering with the author's skin, acknowledges it, then
// waits for the push notification and edits the acknowledgement with the video or the
// failure. Every outcome, including a lost channel or a timeout, is reported to the user.
func (r *Router) HandleReplay(ctx context.Context, req Request, replayURL string, resp Responder) {
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("platform", req.Platform), slog.String("user_id", req.UserID))

	skinID, err := r.Settings.Skin(ctx, req.UserID)
	if err != nil {
		log.Warn("skin lookup failed, using default", slog.Any("err", err))
		skinID = ordr.DefaultSkinID
	}

	sub, err := r.Renders.SubmitRender(ctx, replayURL, skinID)
	if err != nil {
		log.Info("render submission refused", slog.String("replay_url", replayURL), slog.Any("err", err))
		telemetry.CountCommand(req.Platform, "replay", "error")
		r.send(ctx, log, resp, Reply{Content: ErrorMessage(err)})
		return
	}
	log = log.With(slog.Int64("render_id", sub.RenderID))
	telemetry.CountCommand(req.Platform, "replay", "ok")

	ackID := r.send(ctx, log, resp, Reply{Content: replayAck})
	if r.Tracker == nil {
		return
	}

	job := r.Tracker.Track(ctx, sub, ordr.Origin{
		Platform:  req.Platform,
		ChannelID: req.ChannelID,
		MessageID: ackID,
		UserID:    req.UserID,
	})

	var final Reply
	if job.State == ordr.StateDone {
		final = Reply{Content: "Here's your rendered video " + req.Mention + "!\n" + job.VideoURL}
	} else {
		final = Reply{Content: req.Mention + " " + ErrorMessage(job.Err())}
	}
	if ackID != "" {
		err := resp.Edit(ctx, ackID, final)
		if err == nil {
			return
		}
		log.Warn("failed to edit render message, sending new one", slog.Any("err", err))
	}
	r.send(ctx, log, resp, final)
}

func (r *Router) send(ctx context.Context, log *slog.Logger, resp Responder, reply Reply) string {
	id, err := resp.Send(ctx, reply)
	if err != nil {
		log.Warn("failed to send reply", slog.Any("err", err))
	}
	return id
}
