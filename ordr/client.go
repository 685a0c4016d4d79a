// Package ordr talks to the o!rdr replay render farm: render submission, the skin catalog,
// and the socket.io push channel used to track a submitted job to completion.
package ordr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/aswo/telemetry"
)

// DefaultAPIURL is the render farm REST root.
const DefaultAPIURL = "https://apis.issou.best/ordr"

// Client submits renders and reads the skin catalog.
type Client struct {
	BaseURL         string
	HTTPClient      *http.Client
	Username        string
	Resolution      string
	VerificationKey string
}

// NewClient returns a Client with the bot's render defaults.
func NewClient(baseURL, verificationKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		HTTPClient:      &http.Client{Timeout: 30 * time.Second},
		Username:        "Aswo",
		Resolution:      "1280x720",
		VerificationKey: verificationKey,
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Submission is an accepted render job.
type Submission struct {
	RenderID int64
	Message  string
}

type submitResponse struct {
	Message   string `json:"message"`
	RenderID  *int64 `json:"renderID"`
	ErrorCode int    `json:"errorCode"`
	Reason    string `json:"reason"`
}

// SubmitRender queues replayURL for rendering with skinID. A nonzero error code from the farm
// is returned as a *RenderRejectedError carrying the table message.
func (c *Client) SubmitRender(ctx context.Context, replayURL string, skinID int) (Submission, error) {
	if replayURL == "" {
		return Submission{}, fmt.Errorf("replay url empty")
	}
	ctx, span := telemetry.StartClientSpan(ctx, "ordr", http.MethodPost, "renders")
	defer span.End()

	form := url.Values{}
	form.Set("replayURL", replayURL)
	form.Set("username", c.Username)
	form.Set("resolution", c.Resolution)
	form.Set("skin", strconv.Itoa(skinID))
	if c.VerificationKey != "" {
		form.Set("verificationKey", c.VerificationKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/renders", strings.NewReader(form.Encode()))
	if err != nil {
		return Submission{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var body submitResponse
	status, err := c.do(req, "renders", &body)
	if err != nil {
		telemetry.CountRenderSubmission("error")
		telemetry.RecordError(span, err)
		return Submission{}, err
	}
	telemetry.SetSpanHTTPStatus(span, status)
	if body.ErrorCode != 0 {
		telemetry.CountRenderSubmission("rejected")
		slog.Info("render rejected", slog.Int("code", body.ErrorCode), slog.String("reason", body.Reason), slog.String("component", "ordr"))
		return Submission{}, NewRenderRejected(body.ErrorCode)
	}
	if body.RenderID == nil {
		telemetry.CountRenderSubmission("error")
		return Submission{}, fmt.Errorf("render farm returned status %d without renderID: %s", status, body.Message)
	}
	telemetry.CountRenderSubmission("ok")
	return Submission{RenderID: *body.RenderID, Message: body.Message}, nil
}

// Skin is one entry of the render farm's skin catalog.
type Skin struct {
	ID             int    `json:"id"`
	Name           string `json:"skin"`
	Author         string `json:"author"`
	HighResPreview string `json:"highResPreview"`
	DownloadURL    string `json:"url"`
}

// SkinPage is one page of the catalog.
type SkinPage struct {
	Skins    []Skin `json:"skins"`
	MaxSkins int    `json:"maxSkins"`
}

// ListSkins fetches one catalog page.
func (c *Client) ListSkins(ctx context.Context, page, pageSize int) (SkinPage, error) {
	ctx, span := telemetry.StartClientSpan(ctx, "ordr", http.MethodGet, "skins")
	defer span.End()

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/skins?"+q.Encode(), nil)
	if err != nil {
		return SkinPage{}, err
	}
	req.Header.Set("Accept", "application/json")

	var out SkinPage
	status, err := c.do(req, "skins", &out)
	if err != nil {
		telemetry.RecordError(span, err)
		return SkinPage{}, err
	}
	telemetry.SetSpanHTTPStatus(span, status)
	if status/100 != 2 {
		return SkinPage{}, fmt.Errorf("list skins: unexpected status %d", status)
	}
	return out, nil
}

// do sends req and decodes the JSON body into v regardless of status; the farm reports
// rejections as JSON on 4xx responses.
func (c *Client) do(req *http.Request, endpoint string, v any) (int, error) {
	start := time.Now()
	resp, err := c.http().Do(req)
	if err != nil {
		telemetry.ObserveAPIRequest("ordr", endpoint, 0, time.Since(start))
		return 0, fmt.Errorf("ordr %s: %w", endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	telemetry.ObserveAPIRequest("ordr", endpoint, resp.StatusCode, time.Since(start))
	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("ordr %s: read body: %w", endpoint, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return resp.StatusCode, fmt.Errorf("ordr %s: status %d: decode: %w", endpoint, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}
