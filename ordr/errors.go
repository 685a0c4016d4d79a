package ordr

import (
	"errors"
	"fmt"
)

// ErrConnectionLost means the push channel closed before the job's notification arrived.
var ErrConnectionLost = errors.New("render status unknown: connection to the render farm was lost")

// ErrUnreachable means the push channel could not be opened.
var ErrUnreachable = errors.New("render farm unreachable")

// ErrTimeout means no notification arrived within the tracker's deadline.
var ErrTimeout = errors.New("render timed out")

// errorMessages is the render farm's error code table.
var errorMessages = map[int]string{
	1:  "emergency stop (triggered manually)",
	2:  "replay download error (bad upload from the sender) or replay parsing error (bad upload from the sender)",
	3:  "replay download error (bad download from the server), can happen because of invalid characters",
	4:  "all beatmap mirrors are unavailable",
	5:  "replay file corrupted",
	6:  "invalid osu! gamemode (not 0 = std)",
	7:  "the replay has no input data",
	8:  "This beatmap does not exist on osu!. Custom difficulties or non-submitted maps are not supported.",
	9:  "audio for the map is unavailable (because of copyright claim)",
	10: "cannot connect to osu! api",
	11: "the replay has the autoplay mod",
	12: "the replay username has invalid characters",
	13: "the beatmap is longer than 15 minutes",
	14: "this player is banned from o!rdr",
	15: "beatmap not found on all the beatmap mirrors",
	16: "this IP is banned from o!rdr",
	17: "this username is banned from o!rdr",
	18: "unknown error from the renderer",
	19: "the renderer cannot download the map",
	20: "beatmap version on the mirror is not the same as the replay",
	21: "the replay is corrupted (danser cannot process it)",
	22: "server-side problem while finalizing the generated video",
	23: "server-side problem while preparing the render",
	24: "the beatmap has no name",
	25: "the replay is missing input data",
	26: "the replay has incompatible mods",
	27: "something with the renderer went wrong: it probably has an unstable internet connection (multiple renders at the same time)",
	28: "the renderer cannot download the replay",
	29: "the replay is already rendering or in queue",
	30: "the star rating is greater than 20",
	31: "the mapper is blacklisted",
	32: "the beatmapset is blacklisted",
	33: "the replay has already errored less than an hour ago",
}

// ErrorMessage returns the render farm's description of code.
func ErrorMessage(code int) (string, bool) {
	msg, ok := errorMessages[code]
	return msg, ok
}

// RenderRejectedError is a nonzero render farm error code, either at submission or
// pushed later for an accepted job.
type RenderRejectedError struct {
	Code    int
	Message string
}

// NewRenderRejected resolves code against the error table.
func NewRenderRejected(code int) *RenderRejectedError {
	msg, ok := ErrorMessage(code)
	if !ok {
		msg = fmt.Sprintf("unknown render farm error code %d", code)
	}
	return &RenderRejectedError{Code: code, Message: msg}
}

func (e *RenderRejectedError) Error() string { return e.Message }
