// Package chat contains the chat platform front-ends.
//
// Each front-end normalises incoming messages into a commands.Request with
// platform-qualified ids and renders commands.Reply values back onto the platform:
//   - Discord: discordgo gateway session. Accepts the guild prefix, the default
//     prefix and a bot mention; embeds are rendered natively and render results
//     edit the acknowledgement message in place.
//   - Twitch: IRC via go-twitch-irc. Accepts "!" besides the default prefix;
//     replies are flattened to a single line and posted as threaded replies.
//     Twitch cannot edit messages, so render results arrive as new replies.
//
// Every message is handled on its own goroutine because replay handling blocks
// until the render finishes.
package chat

import (
	"context"

	"github.com/onnwee/aswo/commands"
)

// Handler processes one normalised message.
type Handler interface {
	HandleMessage(ctx context.Context, req commands.Request, resp commands.Responder) bool
}
