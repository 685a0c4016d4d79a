package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/aswo/ordr"
	"github.com/onnwee/aswo/telemetry"
)

// Pinger is anything with a cheap reachability check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RenderStatus reports the render jobs being watched.
type RenderStatus interface {
	Active() []ordr.Job
	Capacity() (inUse, limit int)
}

// PrefixCache reports the size of the guild prefix cache.
type PrefixCache interface {
	CachedPrefixes() int
}

// Handlers holds the dependencies of the ops endpoints. Everything except DB may be nil.
type Handlers struct {
	DB       Pinger
	Osu      Pinger
	Cache    Pinger
	Renders  RenderStatus
	Prefixes PrefixCache

	// CheckTimeout bounds each readiness check.
	CheckTimeout time.Duration
}

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.Ping(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz checks the database, the osu! token exchange and the shared cache in order
// and reports the first failure.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		p    Pinger
	}{
		{"database", h.DB},
		{"osu_api", h.Osu},
		{"cache", h.Cache},
	}

	timeout := h.CheckTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	for _, check := range checks {
		if check.p == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		err := check.p.Ping(ctx)
		cancel()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type renderJSON struct {
	RenderID    int64     `json:"render_id"`
	Platform    string    `json:"platform"`
	ChannelID   string    `json:"channel_id"`
	UserID      string    `json:"user_id"`
	State       string    `json:"state"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type statusJSON struct {
	Renders struct {
		Active []renderJSON `json:"active"`
		InUse  int          `json:"in_use"`
		Limit  int          `json:"limit"`
	} `json:"renders"`
	PrefixCache int  `json:"prefix_cache"`
	Tracing     bool `json:"tracing"`
}

// HandleStatus reports active render jobs, the prefix cache size and whether spans are exported.
func (h *Handlers) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	var out statusJSON
	out.Renders.Active = []renderJSON{}
	if h.Renders != nil {
		for _, j := range h.Renders.Active() {
			out.Renders.Active = append(out.Renders.Active, renderJSON{
				RenderID:    j.RenderID,
				Platform:    j.Origin.Platform,
				ChannelID:   j.Origin.ChannelID,
				UserID:      j.Origin.UserID,
				State:       j.State.String(),
				SubmittedAt: j.SubmittedAt,
			})
		}
		out.Renders.InUse, out.Renders.Limit = h.Renders.Capacity()
	}
	if h.Prefixes != nil {
		out.PrefixCache = h.Prefixes.CachedPrefixes()
	}
	out.Tracing = telemetry.IsTracingEnabled()
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
