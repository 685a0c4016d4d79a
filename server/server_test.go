package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/aswo/ordr"
)

type fakeRenders struct{ jobs []ordr.Job }

func (f fakeRenders) Active() []ordr.Job           { return f.jobs }
func (f fakeRenders) Capacity() (inUse, limit int) { return len(f.jobs), 4 }

type fakePrefixes int

func (f fakePrefixes) CachedPrefixes() int { return int(f) }

func ok(context.Context) error { return nil }

func serve(h *Handlers, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	rr := serve(&Handlers{DB: PingFunc(ok)}, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))

	down := serve(&Handlers{DB: PingFunc(func(context.Context) error { return errors.New("db down") })}, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, down.Code)
}

func TestHealthz_ReusesCorrelationID(t *testing.T) {
	rr := serve(&Handlers{DB: PingFunc(ok)}, "/healthz", http.Header{"X-Correlation-Id": {"abc"}})
	assert.Equal(t, "abc", rr.Header().Get("X-Correlation-ID"))
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		db, osu    PingFunc
		wantStatus int
		wantCheck  string
	}{
		{name: "ready", db: ok, osu: ok, wantStatus: http.StatusOK},
		{name: "db down", db: func(context.Context) error { return errors.New("refused") }, osu: ok, wantStatus: http.StatusServiceUnavailable, wantCheck: "database"},
		{name: "token exchange failing", db: ok, osu: func(context.Context) error { return errors.New("401") }, wantStatus: http.StatusServiceUnavailable, wantCheck: "osu_api"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(&Handlers{DB: tt.db, Osu: tt.osu}, "/readyz", nil)
			assert.Equal(t, tt.wantStatus, rr.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			if tt.wantCheck != "" {
				assert.Equal(t, tt.wantCheck, body["failed_check"])
			} else {
				assert.Equal(t, "ready", body["status"])
			}
		})
	}
}

func TestReadyz_ChecksAreBounded(t *testing.T) {
	slow := PingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	rr := serve(&Handlers{DB: PingFunc(ok), Osu: slow, CheckTimeout: 20 * time.Millisecond}, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestStatus(t *testing.T) {
	submitted := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	job := ordr.NewJob(ordr.Submission{RenderID: 42}, ordr.Origin{Platform: "discord", ChannelID: "discord:c", UserID: "discord:1"})
	job.SubmittedAt = submitted

	rr := serve(&Handlers{DB: PingFunc(ok), Renders: fakeRenders{jobs: []ordr.Job{job}}, Prefixes: fakePrefixes(3)}, "/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body statusJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 3, body.PrefixCache)
	assert.Equal(t, 1, body.Renders.InUse)
	assert.Equal(t, 4, body.Renders.Limit)
	require.Len(t, body.Renders.Active, 1)
	assert.Equal(t, int64(42), body.Renders.Active[0].RenderID)
	assert.Equal(t, "pending", body.Renders.Active[0].State)
	assert.True(t, submitted.Equal(body.Renders.Active[0].SubmittedAt))
}

func TestStatus_NoRenderer(t *testing.T) {
	rr := serve(&Handlers{DB: PingFunc(ok)}, "/status", nil)
	assert.JSONEq(t, `{"renders":{"active":[],"in_use":0,"limit":0},"prefix_cache":0,"tracing":false}`, rr.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	rr := serve(&Handlers{DB: PingFunc(ok)}, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadyz_CacheCheck(t *testing.T) {
	down := PingFunc(func(context.Context) error { return errors.New("redis gone") })
	rr := serve(&Handlers{DB: PingFunc(ok), Osu: PingFunc(ok), Cache: down}, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"failed_check":"cache"`)
}
