package ws

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"socialchat/contract"
	"socialchat/domain"
	"socialchat/domain/event"
	"socialchat/errors"
	"socialchat/services"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type State int32

const (
	Connecting State = iota
	Open
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "unknown"
}

const (
	DefaultBufferSize   = 256
	DefaultWriteTimeout = 10 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
	DefaultMaxFrameSize = 64 * 1024
)

type SessionConfig struct {
	Room         domain.RoomID
	HistoryLimit int
	BufferSize   int
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	PingPeriod   time.Duration
	MaxFrameSize int64
	RateLimit    RateLimitConfig
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.Room == 0 {
		c.Room = domain.DefaultRoom
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	// Pings must reach the peer before the idle deadline expires
	if c.PingPeriod <= 0 || c.PingPeriod >= c.IdleTimeout {
		c.PingPeriod = c.IdleTimeout * 9 / 10
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
	return c
}

// Session is one connected client in one room.
// It is the room member the dispatcher delivers to, through a bounded
// outbound queue drained by the write loop.
type Session struct {
	id       string
	identity domain.Identity
	conn     *websocket.Conn
	chat     services.IChatService
	log      *slog.Logger
	cfg      SessionConfig
	limiter  *rateLimiter

	mu         sync.Mutex // guards pending and the Connecting -> Open transition
	state      atomic.Int32
	pending    []domain.Message
	joined     atomic.Bool
	send       chan []byte
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	openedAt   time.Time
}

var _ contract.EventSink = (*Session)(nil)

func NewSession(log *slog.Logger, conn *websocket.Conn, chat services.IChatService, identity domain.Identity, cfg SessionConfig) *Session {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	return &Session{
		id:         id,
		identity:   identity,
		conn:       conn,
		chat:       chat,
		log:        log.With("session_id", id, "room_id", cfg.Room, "user", identity.DisplayName()),
		cfg:        cfg,
		limiter:    newRateLimiter(cfg.RateLimit),
		send:       make(chan []byte, cfg.BufferSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Consume queues a live message for this client without blocking.
// Messages arriving while history is being replayed are held back and
// flushed right after it.
func (s *Session) Consume(_ context.Context, e event.DomainEvent) error {
	posted, ok := e.(event.MessagePosted)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case Connecting:
		if len(s.pending) >= s.cfg.BufferSize {
			return errors.ErrSlowConsumer
		}
		s.pending = append(s.pending, posted.Message)
		return nil
	case Open:
		return s.enqueue(ToLiveFrame(posted.Message))
	default:
		return errors.ErrSessionClosed
	}
}

// Run drives the session until the peer leaves, the connection fails, Close
// is called or ctx is canceled. Teardown always runs before Run returns.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writeLoop()
	defer s.teardown()
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	s.openedAt = time.Now()
	if err := s.open(ctx); err != nil {
		s.log.Warn("Session could not be opened", "error", err)
		return err
	}
	s.log.Info("Session opened")
	s.chat.Report(event.New(event.SessionOpenedType, event.SessionOpened{
		Room:      s.cfg.Room,
		SessionID: s.id,
		User:      s.identity.DisplayName(),
	}))
	return s.readLoop(ctx)
}

// Close requests an application-level close. It is idempotent and safe to
// call from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closing))
		close(s.done)
		deadline := time.Now().Add(s.cfg.WriteTimeout)
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := s.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil && !isExpectedCloseError(err) {
			s.log.Debug("Unable to send close frame", "error", err)
		}
		_ = s.conn.Close()
	})
}

// open joins the room and replays history, then switches to Open.
// s.mu is only held to swap the pending buffer, never while a frame waits
// for room in the outbound queue, so Consume stays non-blocking.
func (s *Session) open(ctx context.Context) error {
	if _, err := s.chat.JoinRoom(s.cfg.Room, s.id, s); err != nil {
		return err
	}
	s.joined.Store(true)

	history, err := s.chat.GetMessages(domain.GetMessageCommand{Room: s.cfg.Room, Limit: s.cfg.HistoryLimit})
	if err != nil {
		s.log.Warn("History unavailable, joining without it", "error", err)
		history = nil
	}

	var lastSeq uint64
	replayed := false
	for _, message := range history {
		if err := s.enqueueWait(ctx, ToHistoryFrame(message)); err != nil {
			return err
		}
		lastSeq, replayed = message.Seq, true
	}

	// Drain what arrived meanwhile until the buffer stays empty, then go live
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		if len(batch) == 0 {
			opened := s.state.CompareAndSwap(int32(Connecting), int32(Open))
			s.mu.Unlock()
			if !opened {
				return errors.ErrSessionClosed
			}
			return nil
		}
		s.mu.Unlock()

		for _, message := range batch {
			// Already replayed as history
			if replayed && message.Seq <= lastSeq {
				continue
			}
			if err := s.enqueueWait(ctx, ToLiveFrame(message)); err != nil {
				return err
			}
			lastSeq, replayed = message.Seq, true
		}
	}
}

func (s *Session) readLoop(ctx context.Context) error {
	s.conn.SetReadLimit(s.cfg.MaxFrameSize)
	s.extendReadDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.extendReadDeadline()
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return s.readError(err)
		}
		s.extendReadDeadline()
		s.handleFrame(ctx, raw)
	}
}

func (s *Session) handleFrame(ctx context.Context, raw []byte) {
	if !s.limiter.allow() {
		s.reject(ctx, errors.ErrRateLimited)
		return
	}
	frame, err := DecodeInbound(raw)
	if err != nil {
		s.reject(ctx, err)
		return
	}
	_, err = s.chat.PostMessage(ctx, domain.PostMessageCommand{
		Room:       s.cfg.Room,
		SessionID:  s.id,
		Identity:   s.identity,
		Content:    frame.Message,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		s.reject(ctx, err)
	}
}

// reject answers the sender only; the connection stays open.
func (s *Session) reject(ctx context.Context, err error) {
	level := slog.LevelError
	if stderrors.Is(err, errors.ErrValidation) ||
		stderrors.Is(err, errors.ErrProtocol) ||
		stderrors.Is(err, errors.ErrUnexpectedShape) ||
		stderrors.Is(err, errors.ErrUnauthenticated) ||
		stderrors.Is(err, errors.ErrRateLimited) {
		level = slog.LevelDebug
	}
	s.log.Log(ctx, level, "Message rejected", "error", err)

	frame := ToErrorFrame(err)
	s.chat.Report(event.New(event.MessageRejectedType, event.MessageRejected{SessionID: s.id, Reason: frame.Error}))
	if err := s.enqueue(frame); err != nil {
		s.log.Debug("Error frame dropped", "error", err)
	}
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case raw := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				s.Close()
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				if !isExpectedCloseError(err) {
					s.log.Warn("Write failed, closing session", "error", err)
				}
				s.Close()
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				s.log.Debug("Ping failed, closing session", "error", err)
				s.Close()
				return
			}
		}
	}
}

// teardown is the Closing -> Closed transition.
func (s *Session) teardown() {
	s.Close()
	<-s.writerDone
	if s.joined.Load() {
		s.chat.LeaveRoom(s.cfg.Room, s.id)
	}
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	s.state.Store(int32(Closed))

	duration := time.Since(s.openedAt)
	s.chat.Report(event.New(event.SessionClosedType, event.SessionClosed{
		Room:      s.cfg.Room,
		SessionID: s.id,
		User:      s.identity.DisplayName(),
		Duration:  duration,
	}))
	s.log.Info("Session closed", "duration", duration)
}

func (s *Session) enqueue(frame OutboundFrame) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return errors.ErrSessionClosed
	default:
	}
	select {
	case s.send <- raw:
		return nil
	default:
		return errors.ErrSlowConsumer
	}
}

func (s *Session) enqueueWait(ctx context.Context, frame OutboundFrame) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	select {
	case s.send <- raw:
		return nil
	case <-s.done:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.WriteTimeout):
		return errors.ErrSlowConsumer
	}
}

func (s *Session) extendReadDeadline() {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
		s.log.Debug("Unable to set read deadline", "error", err)
	}
}

// readError classifies the end of the read loop. Normal departures and
// local closes return nil.
func (s *Session) readError(err error) error {
	var netErr net.Error
	switch {
	case s.State() != Open:
		return nil
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		s.log.Debug("Peer closed the connection", "error", err)
		return nil
	case stderrors.Is(err, websocket.ErrReadLimit):
		s.log.Warn("Frame exceeded the maximum size", "max_bytes", s.cfg.MaxFrameSize)
		return err
	case stderrors.As(err, &netErr) && netErr.Timeout():
		s.log.Info("Session idle for too long", "idle_timeout", s.cfg.IdleTimeout)
		return nil
	case stderrors.Is(err, io.EOF), stderrors.Is(err, io.ErrUnexpectedEOF), isExpectedCloseError(err):
		s.log.Debug("Connection dropped", "error", err)
		return nil
	default:
		s.log.Warn("Read failed", "error", err)
		return err
	}
}

func isExpectedCloseError(err error) bool {
	return stderrors.Is(err, net.ErrClosed) || stderrors.Is(err, websocket.ErrCloseSent)
}
