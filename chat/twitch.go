package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/aswo/commands"
)

// TwitchPrefix is accepted in every Twitch channel besides the default prefix.
const TwitchPrefix = "!"

const maxTwitchMessage = 500

// ErrEditUnsupported is returned by Twitch responders; IRC messages cannot be edited.
var ErrEditUnsupported = errors.New("twitch: messages cannot be edited")

// twitchAPI is the part of *twitch.Client used for replies.
type twitchAPI interface {
	Reply(channel, parentMsgID, text string)
}

// Twitch is the Twitch IRC front-end.
type Twitch struct {
	Client   *twitch.Client
	Channels []string
	Handler  Handler

	wg sync.WaitGroup
}

// NewTwitch creates an IRC client for username/oauth that joins channels.
func NewTwitch(username, oauth string, channels []string, h Handler) *Twitch {
	return &Twitch{Client: twitch.NewClient(username, oauth), Channels: channels, Handler: h}
}

// Run connects and blocks until ctx is cancelled and in-flight messages are done.
func (t *Twitch) Run(ctx context.Context) error {
	t.Client.OnConnect(func() {
		slog.Info("twitch connected", slog.Any("channels", t.Channels), slog.String("component", "twitch"))
	})
	t.Client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		if ctx.Err() != nil {
			return
		}
		// callbacks run on the reader goroutine; renders block for minutes
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.Handler.HandleMessage(ctx, twitchRequest(msg), &twitchResponder{api: t.Client, channel: msg.Channel, replyTo: msg.ID})
		}()
	})
	t.Client.Join(t.Channels...)

	go func() {
		<-ctx.Done()
		if err := t.Client.Disconnect(); err != nil {
			slog.Warn("twitch disconnect failed", slog.Any("err", err), slog.String("component", "twitch"))
		}
	}()

	err := t.Client.Connect()
	t.wg.Wait()
	if err != nil && !errors.Is(err, twitch.ErrClientDisconnected) {
		return fmt.Errorf("twitch connection: %w", err)
	}
	return nil
}

// twitchRequest normalises an IRC message. Channels play the role of guilds so each
// channel can set its own prefix.
func twitchRequest(msg twitch.PrivateMessage) commands.Request {
	name := msg.User.DisplayName
	if name == "" {
		name = msg.User.Name
	}
	return commands.Request{
		Platform:      "twitch",
		GuildID:       "twitch:" + msg.RoomID,
		ChannelID:     "twitch:" + msg.Channel,
		MessageID:     "twitch:" + msg.ID,
		UserID:        "twitch:" + msg.User.ID,
		DisplayName:   name,
		Mention:       "@" + name,
		Content:       msg.Message,
		ExtraPrefixes: []string{TwitchPrefix},
	}
}

// flatten renders a reply as one IRC line within the message limit.
func flatten(r commands.Reply) string {
	var parts []string
	for _, line := range strings.Split(r.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	s := strings.Join(parts, " | ")
	if utf8.RuneCountInString(s) <= maxTwitchMessage {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxTwitchMessage-1]) + "…"
}

type twitchResponder struct {
	api     twitchAPI
	channel string
	replyTo string
}

// Send posts a threaded reply. IRC gives no id for sent messages, so the id is empty.
func (r *twitchResponder) Send(_ context.Context, reply commands.Reply) (string, error) {
	text := flatten(reply)
	if text == "" {
		return "", nil
	}
	r.api.Reply(r.channel, r.replyTo, text)
	return "", nil
}

func (r *twitchResponder) Edit(context.Context, string, commands.Reply) error {
	return ErrEditUnsupported
}
