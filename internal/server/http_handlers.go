package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mikhailv/fnstream/internal/metrics"
	"github.com/mikhailv/fnstream/stream"
)

// serveStream upgrades the request to a websocket and sends every emission of
// st that happens while the client is connected, as JSON. Values the client
// cannot keep up with are dropped. The socket is closed normally once st
// completes.
func serveStream[T any](s *HTTPServer, logger *slog.Logger, w http.ResponseWriter, req *http.Request, st *stream.Stream[T], filter FilterFunc[T]) {
	conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		logger.Error("failed to accept websocket connection", "err", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	logger.Debug("accept websocket connection", "client", req.RemoteAddr)
	ctx := conn.CloseRead(req.Context())

	queue := make(chan T, s.ws.QueueSize)
	source, detach, err := attachListener(ctx, s.loop, st, filter, func(v T) {
		select {
		case queue <- v:
		default: // never block the loop
			metrics.TrackStatus("ws_send", "dropped")
		}
	})
	if err != nil {
		logger.Debug("failed to attach listener", "err", err)
		return
	}
	defer detach()

	send := func(v T) bool {
		writeCtx, cancel := context.WithTimeout(ctx, s.ws.WriteTimeout)
		defer cancel()
		if err := wsjson.Write(writeCtx, conn, v); err != nil {
			logger.Debug("failed to send value", "err", err)
			metrics.TrackStatus("ws_send", "error")
			return false
		}
		metrics.TrackStatus("ws_send", "ok")
		return true
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug("websocket connection closed", "err", ctx.Err())
			return
		case v := <-queue:
			if !send(v) {
				return
			}
		case <-source.Done():
			for len(queue) > 0 {
				if !send(<-queue) {
					return
				}
			}
			_ = conn.Close(websocket.StatusNormalClosure, "stream completed")
			return
		}
	}
}

// attachListener attaches fn on the loop to st, or to a filtered view of st
// when filter is set. detach releases both. If Do gives up, the attach task
// may still run later, so the release is posted to the loop in that case.
func attachListener[T any](ctx context.Context, loop Loop, st *stream.Stream[T], filter FilterFunc[T], fn func(T)) (*stream.Stream[T], func(), error) {
	var stopListen func()
	view := st
	release := func() {
		if stopListen != nil {
			stopListen()
		}
		if view != st {
			view.Cancel()
		}
	}
	err := loop.Do(ctx, func() {
		if filter != nil {
			view = st.Filter(filter)
		}
		stopListen = view.Listen(fn)
	})
	if err != nil {
		loop.Post(release)
		return nil, nil, err
	}
	return view, func() { loop.Post(release) }, nil
}
