package commands

import (
	"errors"
	"fmt"

	"github.com/onnwee/aswo/ordr"
	"github.com/onnwee/aswo/osuapi"
)

const beatmapIDHint = "Make sure to use the second id in the beatmap url (thats the beatmap id) and not the first one (thats the beatmapset id)"

// UsageError is a malformed invocation; its message is shown as-is.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usage(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// ErrorMessage renders any command error as the text shown to the user. Known failures get
// a friendly message; anything else gets the generic diagnostic with the error type.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		usageErr  *UsageError
		catErr    *osuapi.InvalidCategoryError
		coverErr  *osuapi.CoverNotAvailableError
		rejectErr *ordr.RenderRejectedError
	)
	switch {
	case errors.As(err, &usageErr):
		return usageErr.Msg
	case errors.Is(err, osuapi.ErrUserNotFound):
		return "No user was found by that name!"
	case errors.Is(err, osuapi.ErrBeatmapNotFound):
		return "No beatmap was found by that ID!\n" + beatmapIDHint
	case errors.As(err, &catErr):
		return catErr.Error()
	case errors.As(err, &coverErr):
		return coverErr.Error()
	case errors.As(err, &rejectErr):
		return rejectErr.Message
	case errors.Is(err, ordr.ErrTimeout):
		return "The render farm did not report back in time, so the rendering status is unknown. Check https://ordr.issou.best/renders for your video!"
	case errors.Is(err, ordr.ErrConnectionLost):
		return "Lost connection to the render farm before your video was ready, so the rendering status is unknown. Check https://ordr.issou.best/renders for your video!"
	case errors.Is(err, ordr.ErrUnreachable):
		return "Could not reach the render farm, so the rendering status is unknown. Try again in a bit!"
	case errors.Is(err, osuapi.ErrAuth):
		return "Could not log in to the osu! API right now, try again later!"
	}
	return fmt.Sprintf("Oh No! an error occured!\n\nError Class: **%T**\n%s", rootCause(err), err.Error())
}

// rootCause follows single-error Unwrap chains to the innermost error.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
