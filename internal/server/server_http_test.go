package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikhailv/fnstream/eventloop"
	"github.com/mikhailv/fnstream/internal/catalog"
	"github.com/mikhailv/fnstream/internal/config"
	"github.com/mikhailv/fnstream/internal/log"
)

type testEnv struct {
	ctx     context.Context
	loop    *eventloop.Loop
	catalog *catalog.Catalog
	logger  *slog.Logger
	url     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	loop := eventloop.New()
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(loop.Close)

	discard := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	recorder, logs, err := log.NewRecorder(discard, loop)
	require.NoError(t, err)

	var c *catalog.Catalog
	require.NoError(t, loop.Do(ctx, func() {
		c, err = catalog.Build(loop, []config.Stream{
			{Name: "count", Kind: config.KindCounter, Interval: 5 * time.Millisecond},
		}, rand.New(rand.NewPCG(1, 2)), slog.New(discard))
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = loop.Do(context.Background(), c.Close) })

	srv := NewHTTPServer(config.DefaultConfig(), slog.New(discard), loop, c, logs)
	ts := httptest.NewServer(srv.createHandler())
	t.Cleanup(ts.Close)

	return &testEnv{ctx: ctx, loop: loop, catalog: c, logger: slog.New(recorder), url: ts.URL}
}

func (e *testEnv) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(e.ctx, "ws"+strings.TrimPrefix(e.url, "http")+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func TestHTTPServer_StreamNames(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.url + "/api/streams")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Equal(t, []string{"count"}, names)
}

func TestHTTPServer_UnknownStream(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.url + "/api/streams/nope/ws")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_StreamWS(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "/api/streams/count/ws")

	var first, second float64
	require.NoError(t, wsjson.Read(env.ctx, conn, &first))
	require.NoError(t, wsjson.Read(env.ctx, conn, &second))
	assert.Greater(t, second, first)
}

func TestHTTPServer_StreamWS_ClosedOnCompletion(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "/api/streams/count/ws")

	var v float64
	require.NoError(t, wsjson.Read(env.ctx, conn, &v))
	require.NoError(t, env.loop.Do(env.ctx, env.catalog.Close))

	var err error
	for err == nil {
		err = wsjson.Read(env.ctx, conn, &v)
	}
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestHTTPServer_LogsWS(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "/api/logs/ws?level=warn")

	ctx, cancel := context.WithCancel(env.ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				env.logger.Info("info")
				env.logger.Warn("warn", "n", 1)
			}
		}
	}()

	var entry log.Entry
	require.NoError(t, wsjson.Read(env.ctx, conn, &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "warn", entry.Msg)
	assert.Equal(t, map[string]string{"n": "1"}, entry.Attrs)
}
