package ordr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWSURL is the render farm's socket.io endpoint.
const DefaultWSURL = "https://ordr-ws.issou.best"

// Engine.IO v4 packet types, and the socket.io packet types carried inside "4" messages.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = "3"
	eioMessage = '4'

	sioConnect    = '0'
	sioDisconnect = '1'
	sioEvent      = '2'
	sioError      = '4'
)

// EventKind distinguishes the push notifications the tracker acts on.
type EventKind int

const (
	EventRenderDone EventKind = iota + 1
	EventRenderFailed
)

// Event is one push notification from the render farm.
type Event struct {
	Kind      EventKind
	RenderID  int64
	VideoURL  string
	ErrorCode int
}

// Stream yields render events until it is closed or the connection drops.
type Stream interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// DialFunc opens a new Stream; the tracker dials one per submitted job.
type DialFunc func(ctx context.Context) (Stream, error)

type openPacket struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// SocketIOStream is a minimal socket.io v4 client over a gorilla websocket. It joins the
// default namespace, answers pings and surfaces render_done_json and render_failed_json.
type SocketIOStream struct {
	conn     *websocket.Conn
	deadline time.Duration
}

// SocketIODialer returns a DialFunc connecting to baseURL.
func SocketIODialer(baseURL string) DialFunc {
	return func(ctx context.Context) (Stream, error) {
		return DialSocketIO(ctx, baseURL, nil)
	}
}

// DialSocketIO connects to the socket.io endpoint at baseURL (http(s) or ws(s)) and
// completes the namespace handshake.
func DialSocketIO(ctx context.Context, baseURL string, dialer *websocket.Dialer) (*SocketIOStream, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	u, err := socketIOURL(baseURL)
	if err != nil {
		return nil, err
	}
	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	s := &SocketIOStream{conn: conn, deadline: time.Minute}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	open, err := s.read()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("socket.io open: %w", err)
	}
	if len(open) == 0 || open[0] != eioOpen {
		_ = conn.Close()
		return nil, fmt.Errorf("socket.io open: unexpected packet %q", open)
	}
	var op openPacket
	if err := json.Unmarshal([]byte(open[1:]), &op); err == nil && op.PingInterval > 0 {
		s.deadline = time.Duration(op.PingInterval+op.PingTimeout) * time.Millisecond
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte{eioMessage, sioConnect}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("socket.io connect: %w", err)
	}
	for {
		msg, err := s.read()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("socket.io connect: %w", err)
		}
		if len(msg) == 1 && msg[0] == eioPing {
			if err := s.pong(); err != nil {
				_ = conn.Close()
				return nil, err
			}
			continue
		}
		if len(msg) >= 2 && msg[0] == eioMessage && msg[1] == sioConnect {
			break
		}
		if len(msg) >= 2 && msg[0] == eioMessage && msg[1] == sioError {
			_ = conn.Close()
			return nil, fmt.Errorf("socket.io connect refused: %s", msg[2:])
		}
	}
	slog.Debug("socket.io connected", slog.String("sid", op.SID), slog.String("component", "ordr"))
	return s, nil
}

// Next blocks until the next render event. Cancelling ctx closes the connection.
func (s *SocketIOStream) Next(ctx context.Context) (Event, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()
	for {
		msg, err := s.read()
		if err != nil {
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			return Event{}, fmt.Errorf("%w: %w", ErrConnectionLost, err)
		}
		if len(msg) == 0 {
			continue
		}
		switch msg[0] {
		case eioPing:
			if err := s.pong(); err != nil {
				return Event{}, fmt.Errorf("%w: %w", ErrConnectionLost, err)
			}
		case eioClose:
			return Event{}, ErrConnectionLost
		case eioMessage:
			if len(msg) < 2 {
				continue
			}
			switch msg[1] {
			case sioDisconnect:
				return Event{}, ErrConnectionLost
			case sioEvent:
				if ev, ok := parseEvent(msg[2:]); ok {
					return ev, nil
				}
			}
		}
	}
}

// Close closes the underlying websocket.
func (s *SocketIOStream) Close() error {
	return s.conn.Close()
}

func (s *SocketIOStream) read() (string, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.deadline)); err != nil {
		return "", err
	}
	_, b, err := s.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *SocketIOStream) pong() error {
	return s.conn.WriteMessage(websocket.TextMessage, []byte(eioPong))
}

type renderPayload struct {
	RenderID  int64  `json:"renderID"`
	VideoURL  string `json:"videoUrl"`
	ErrorCode int    `json:"errorCode"`
}

// parseEvent decodes a socket.io event body `["name", {...}]`. Unknown events report false.
func parseEvent(body string) (Event, bool) {
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(body), &parts); err != nil || len(parts) < 2 {
		return Event{}, false
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return Event{}, false
	}
	var kind EventKind
	switch name {
	case "render_done_json":
		kind = EventRenderDone
	case "render_failed_json":
		kind = EventRenderFailed
	default:
		return Event{}, false
	}
	var p renderPayload
	if err := json.Unmarshal(parts[1], &p); err != nil {
		slog.Debug("malformed render event", slog.String("event", name), slog.Any("err", err), slog.String("component", "ordr"))
		return Event{}, false
	}
	return Event{Kind: kind, RenderID: p.RenderID, VideoURL: p.VideoURL, ErrorCode: p.ErrorCode}, true
}

func socketIOURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse socket.io url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", errors.New("socket.io url must be http(s) or ws(s)")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	u.RawQuery = "EIO=4&transport=websocket"
	return u.String(), nil
}
