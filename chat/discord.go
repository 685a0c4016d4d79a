package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/aswo/commands"
)

// discordAPI is the part of *discordgo.Session used for replies.
type discordAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord is the Discord gateway front-end.
type Discord struct {
	Session *discordgo.Session
	Handler Handler

	ctx    context.Context
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDiscord creates a bot session for token. Run connects it.
func NewDiscord(token string, h Handler) (*Discord, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
	return &Discord{Session: s, Handler: h}, nil
}

// Run opens the gateway connection and blocks until ctx is cancelled and in-flight
// messages are done.
func (d *Discord) Run(ctx context.Context) error {
	d.ctx = ctx
	removeHandler := d.Session.AddHandler(d.onMessage)
	d.Session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info("discord connected", slog.String("user", r.User.Username), slog.Int("guilds", len(r.Guilds)), slog.String("component", "discord"))
	})
	if err := d.Session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	<-ctx.Done()
	removeHandler()
	d.drain()
	if err := d.Session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (d *Discord) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if d.ctx.Err() != nil || !d.begin() {
		return
	}
	defer d.wg.Done()
	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	resp := &discordResponder{api: s, channelID: m.ChannelID, replyTo: m.ID, guildID: m.GuildID}
	d.Handler.HandleMessage(d.ctx, discordRequest(m.Message, botID), resp)
}

// begin registers an in-flight message; it fails once drain has started.
func (d *Discord) begin() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.wg.Add(1)
	return true
}

// drain refuses new messages and waits for in-flight ones.
func (d *Discord) drain() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

// discordRequest normalises a gateway message. A mention of the bot counts as a prefix.
func discordRequest(m *discordgo.Message, botID string) commands.Request {
	req := commands.Request{
		Platform:    "discord",
		ChannelID:   "discord:" + m.ChannelID,
		MessageID:   "discord:" + m.ID,
		UserID:      "discord:" + m.Author.ID,
		DisplayName: m.Author.Username,
		Mention:     m.Author.Mention(),
		Content:     m.Content,
	}
	if m.GuildID != "" {
		req.GuildID = "discord:" + m.GuildID
	}
	if m.Member != nil && m.Member.Nick != "" {
		req.DisplayName = m.Member.Nick
	}
	for _, a := range m.Attachments {
		req.Attachments = append(req.Attachments, a.URL)
	}
	if botID != "" {
		req.ExtraPrefixes = []string{"<@" + botID + ">", "<@!" + botID + ">"}
	}
	return req
}

func discordEmbed(e *commands.Embed) *discordgo.MessageEmbed {
	if e == nil {
		return nil
	}
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		URL:         e.URL,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Thumbnail != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail}
	}
	if e.Image != "" {
		out.Image = &discordgo.MessageEmbedImage{URL: e.Image}
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return out
}

type discordResponder struct {
	api       discordAPI
	channelID string
	guildID   string
	replyTo   string
}

func (r *discordResponder) Send(ctx context.Context, reply commands.Reply) (string, error) {
	msg := &discordgo.MessageSend{
		Content:         reply.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers}},
	}
	if e := discordEmbed(reply.Embed); e != nil {
		msg.Embeds = []*discordgo.MessageEmbed{e}
	}
	if r.replyTo != "" {
		msg.Reference = &discordgo.MessageReference{MessageID: r.replyTo, ChannelID: r.channelID, GuildID: r.guildID}
	}
	sent, err := r.api.ChannelMessageSendComplex(r.channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send discord message: %w", err)
	}
	return sent.ID, nil
}

func (r *discordResponder) Edit(ctx context.Context, messageID string, reply commands.Reply) error {
	edit := discordgo.NewMessageEdit(r.channelID, messageID).SetContent(reply.Content)
	embeds := []*discordgo.MessageEmbed{}
	if e := discordEmbed(reply.Embed); e != nil {
		embeds = append(embeds, e)
	}
	edit.SetEmbeds(embeds)
	if _, err := r.api.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit discord message: %w", err)
	}
	return nil
}
