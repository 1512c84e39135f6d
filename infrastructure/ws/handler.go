// Package ws serves the chat over WebSocket: handshake, per-connection
// sessions and the JSON frames exchanged with clients.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"socialchat/auth"
	"socialchat/services"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Handler upgrades authenticated requests and runs one Session per connection.
// Sessions live until the peer leaves or ctx is canceled.
type Handler struct {
	ctx           context.Context
	log           *slog.Logger
	chat          services.IChatService
	authenticator auth.Authenticator
	upgrader      websocket.Upgrader
	cfg           SessionConfig
	mu            sync.Mutex // guards closing and orders wg.Add before Wait
	closing       bool
	wg            sync.WaitGroup
	active        atomic.Int64
}

func NewHandler(ctx context.Context, log *slog.Logger, chat services.IChatService,
	authenticator auth.Authenticator, origins OriginPolicy, cfg SessionConfig) *Handler {
	h := &Handler{
		ctx:           ctx,
		log:           log,
		chat:          chat,
		authenticator: authenticator,
		cfg:           cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if origins.Check(r) {
				return true
			}
			log.Warn("Blocked WebSocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
			return false
		},
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.track() {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()

	identity, err := h.authenticator.Authenticate(r)
	if err != nil {
		h.log.Warn("Handshake rejected", "remote_addr", r.RemoteAddr, "error", err)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered with an HTTP error
		h.log.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	h.active.Add(1)
	defer h.active.Add(-1)

	session := NewSession(h.log, conn, h.chat, identity, h.cfg)
	if err := session.Run(h.ctx); err != nil {
		h.log.Debug("Session ended with error", "session_id", session.ID(), "error", err)
	}
}

// track registers a handshake with the wait group, unless the handler is
// shutting down.
func (h *Handler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing || h.ctx.Err() != nil {
		return false
	}
	h.wg.Add(1)
	return true
}

// Active returns the number of running sessions.
func (h *Handler) Active() int64 {
	return h.active.Load()
}

// Wait refuses new handshakes and blocks until every session has been torn
// down, at most timeout. Sessions stop when the handler context is canceled.
func (h *Handler) Wait(timeout time.Duration) bool {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
