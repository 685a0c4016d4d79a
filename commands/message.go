package commands

import (
	"context"
	"strings"
)

// EmbedColor is the dark embed accent used on every reply.
const EmbedColor = 0x2F3136

// Field is one titled block inside an Embed.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a platform-neutral rich message. Discord renders it natively; text-only
// platforms use Text.
type Embed struct {
	Title       string
	URL         string
	Description string
	Color       int
	Thumbnail   string
	Image       string
	Footer      string
	Fields      []Field
}

// Text flattens the embed into plain lines.
func (e *Embed) Text() string {
	var parts []string
	if e.Title != "" {
		parts = append(parts, e.Title)
	}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	for _, f := range e.Fields {
		parts = append(parts, f.Name+": "+f.Value)
	}
	if e.Image != "" {
		parts = append(parts, e.Image)
	}
	if e.Footer != "" {
		parts = append(parts, e.Footer)
	}
	return strings.Join(parts, "\n")
}

// Reply is what a command sends back.
type Reply struct {
	Content string
	Embed   *Embed
	// Ephemeral asks the platform to show the reply only to the invoker where supported.
	Ephemeral bool
}

// Text renders content and embed as plain text.
func (r Reply) Text() string {
	switch {
	case r.Embed == nil:
		return r.Content
	case r.Content == "":
		return r.Embed.Text()
	default:
		return r.Content + "\n" + r.Embed.Text()
	}
}

// Request is one incoming chat message, normalised across platforms. Ids are
// platform-qualified ("discord:123") so settings never collide between platforms.
type Request struct {
	Platform    string
	GuildID     string
	ChannelID   string
	MessageID   string
	UserID      string
	DisplayName string
	// Mention is how to ping the author in a reply.
	Mention string
	Content string
	// Attachments are attachment URLs in message order.
	Attachments []string
	// ExtraPrefixes are accepted besides the guild and default prefix (e.g. a bot mention).
	ExtraPrefixes []string
}

// Responder posts and edits replies on the originating channel.
type Responder interface {
	Send(ctx context.Context, r Reply) (messageID string, err error)
	Edit(ctx context.Context, messageID string, r Reply) error
}
