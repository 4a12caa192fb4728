package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/outpost-game/outpost/internal/app/logger/logging"
	"github.com/outpost-game/outpost/internal/geo"
	"github.com/outpost-game/outpost/internal/metrics"
	"github.com/outpost-game/outpost/internal/wire"
	"golang.org/x/time/rate"
)

// Inbound location reports are throttled per session. Anything faster than
// this is dropped before it reaches the game loop.
const (
	messagesPerSecond = 10
	messageBurst      = 20
)

// Session is the in-memory state of one connected client. A session starts as
// an empty placeholder; the first valid location report binds it to a user.
// All fields besides the connection are owned by the game loop.
type Session struct {
	// ID identifies the connection. It never changes for the lifetime of the
	// websocket.
	ID string

	// UserID is empty until the first valid location report and immutable
	// afterwards.
	UserID string

	Location geo.Point

	// CachedMoney mirrors the persisted balance. The income engine refreshes
	// it from the authoritative gateway value on every credit.
	CachedMoney float64

	// IncomeThisTick is the income credited in the current reconciliation
	// cycle. Reset to zero at the start of every cycle.
	IncomeThisTick float64

	// Notified is set once the current activation episode of an occupied base
	// has produced a notification for this session. Cleared when that base
	// deactivates.
	Notified bool

	ConnectedAt time.Time

	wsConn  ConnReadWriter
	limiter *rate.Limiter
}

func NewSession(id string, conn ConnReadWriter) *Session {
	return &Session{
		ID:          id,
		ConnectedAt: time.Now().In(time.UTC),
		wsConn:      conn,
		limiter:     rate.NewLimiter(messagesPerSecond, messageBurst),
	}
}

// Bound reports whether the session has been claimed by a user.
func (s *Session) Bound() bool { return s.UserID != "" }

func (s *Session) ReadNext(ctx context.Context) ([]byte, error) {
	if s.wsConn == nil {
		return nil, fmt.Errorf("not connected")
	}
	_, payload, err := s.wsConn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *Session) Send(ctx context.Context, payload []byte) {
	if s.wsConn == nil {
		slog.Debug("not connected", "sessionId", s.ID)
		metrics.FailedMessageSends.WithLabelValues("not_connected").Inc()
		return
	}
	if len(payload) < 1 {
		slog.Debug("payload is too short", "length", len(payload))
		metrics.FailedMessageSends.WithLabelValues("payload_too_short").Inc()
		return
	}

	if err := wire.Write(ctx, s.wsConn, payload); err != nil {
		slog.Warn("Could not send a WS message", "sessionId", s.ID, logging.Error(err))
		metrics.FailedMessageSends.WithLabelValues("write_error").Inc()
	}
}

func (s *Session) SendMessage(ctx context.Context, cmd wire.Command, params any) {
	s.Send(ctx, wire.Compose(cmd, params))
}

func (s *Session) SendError(ctx context.Context, message string) {
	s.SendMessage(ctx, wire.CmdError, wire.ErrorParams{Message: message})
}

var _ ConnReadWriter = (*websocket.Conn)(nil)

type ConnReadWriter interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	CloseNow() error
}
