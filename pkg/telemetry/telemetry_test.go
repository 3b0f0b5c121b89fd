package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	p, shutdown, err := Init(context.Background(), &Config{ServiceName: "song-svc"})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Nil(t, p.MetricsHandler())
	assert.NotNil(t, p.Tracer())

	// instruments still work against the global noop meter
	counter, err := p.NewHTTPRequestCounter()
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_MetricsOnly(t *testing.T) {
	ctx := context.Background()
	p, shutdown, err := Init(ctx, &Config{ServiceName: "song-svc", Enabled: true})
	require.NoError(t, err)
	defer shutdown(ctx)

	require.True(t, p.Enabled())

	counter, err := p.NewHTTPRequestCounter()
	require.NoError(t, err)
	counter.Add(ctx, 3)

	srv := httptest.NewServer(p.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "song_svc_http_requests")
}

func TestTraceIDFromContext_Empty(t *testing.T) {
	assert.Equal(t, "", TraceIDFromContext(context.Background()))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "song_svc_v2", sanitizeName("song-svc.v2"))
}

func TestObserveListeners(t *testing.T) {
	ctx := context.Background()
	p, shutdown, err := Init(ctx, &Config{ServiceName: "song-svc", Enabled: true})
	require.NoError(t, err)
	defer shutdown(ctx)

	require.NoError(t, p.ObserveListeners(func() int { return 4 }))

	w := httptest.NewRecorder()
	p.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "event_stream_listeners")
}
