// Package game runs the real-time side of the server: it owns the registry of
// connected sessions, reconciles player proximity against the stored bases on
// a fixed interval, credits income to occupants of active bases and pushes
// state updates back to every client.
package game

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/kelindar/event"
	"github.com/outpost-game/outpost/internal/app/logger/logging"
	"github.com/outpost-game/outpost/internal/metrics"
	"github.com/outpost-game/outpost/internal/wire"
)

// Game is the control plane for the live game state. Inbound location reports
// and both periodic ticks are processed one at a time by the Run loop, so a
// tick always observes a consistent registry state.
type Game struct {
	Settings Settings

	// Events carries base activation and deactivation events to subscribers
	// (audit logging, metrics).
	Events *event.Dispatcher

	gateway Gateway
	done    context.CancelFunc

	// Connected sessions, keyed by connection id.
	sessionMutex sync.RWMutex
	sessions     map[string]*Session

	messages chan locationReport

	// Bases with at least one occupant, keyed by base id. Owned by the Run
	// loop; rebuilt by the reconciliation tick, read by the broadcast tick.
	active map[string]*activeBase
}

// locationReport is one parsed updateLocation command queued for the Run loop.
type locationReport struct {
	session *Session
	msg     wire.UpdateLocation
}

func NewGame(gateway Gateway, settings Settings) *Game {
	return &Game{
		Settings: settings,
		Events:   event.NewDispatcher(),
		gateway:  gateway,
		sessions: make(map[string]*Session),
		messages: make(chan locationReport),
		active:   make(map[string]*activeBase),
	}
}

func (g *Game) Stop() {
	if g.done != nil {
		g.done()
	}
}

func (g *Game) Reset() {
	g.forEachSession(func(session *Session) bool {
		_ = session.wsConn.CloseNow()
		return true
	})
	g.sessionMutex.Lock()
	clear(g.sessions)
	g.sessionMutex.Unlock()
	clear(g.active)
}

// Run drains inbound location reports and fires the reconciliation and
// broadcast ticks. It is the single goroutine allowed to mutate session state
// and the active-base set.
func (g *Game) Run(ctx context.Context) {
	ctx, done := context.WithCancel(ctx)
	g.done = done
	defer done()

	reconcile := time.NewTicker(g.Settings.ReconcileInterval)
	defer reconcile.Stop()
	broadcast := time.NewTicker(g.Settings.BroadcastInterval)
	defer broadcast.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Received signal, closing the game loop")
			g.Reset()
			return

		case report := <-g.messages:
			g.handleUpdateLocation(ctx, report.session, report.msg)

		case <-reconcile.C:
			g.reconcile(ctx)

		case <-broadcast.C:
			g.broadcast(ctx)
		}
	}
}

// HandleSession registers the connection and pumps its messages into the Run
// loop until the client disconnects. Malformed payloads are logged and
// dropped; the connection stays open.
func (g *Game) HandleSession(ctx context.Context, session *Session) error {
	g.addSession(session)
	defer g.removeSession(session)

	metrics.TotalSessions.Inc()

	for {
		payload, err := session.ReadNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}

			switch state := websocket.CloseStatus(err); state {
			case -1:
				// connection reset by peer
				metrics.WebSocketDisconnects.WithLabelValues("reset").Inc()
				return nil
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				metrics.WebSocketDisconnects.WithLabelValues("closed").Inc()
				slog.Debug("Client disconnected", "sessionId", session.ID, logging.Error(err))
				return nil
			default:
				metrics.WebSocketDisconnects.WithLabelValues("error").Inc()
				slog.Error("Could not read the message", "sessionId", session.ID, logging.Error(err))
				return err
			}
		}

		if !session.limiter.Allow() {
			slog.Debug("Dropping message over the rate limit", "sessionId", session.ID)
			continue
		}

		cmd, err := wire.DecodeCommand(payload)
		if err != nil {
			slog.Debug("Invalid message received from client", "sessionId", session.ID, logging.Error(err))
			metrics.InvalidPayloads.Inc()
			continue
		}

		switch cmd {
		case wire.CmdUpdateLocation:
			msg, err := wire.DecodeTyped[wire.UpdateLocation](payload)
			if err != nil {
				slog.Debug("Invalid updateLocation payload", "sessionId", session.ID, logging.Error(err))
				metrics.InvalidPayloads.Inc()
				continue
			}
			metrics.MessagesReceived.WithLabelValues(string(cmd)).Inc()
			select {
			case g.messages <- locationReport{session: session, msg: msg}:
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			slog.Debug("Unhandled command", "command", string(cmd), "sessionId", session.ID)
		}
	}
}

// BroadcastMessage sends a payload to every connected session.
func (g *Game) BroadcastMessage(ctx context.Context, payload []byte) {
	g.forEachSession(func(session *Session) bool {
		session.Send(ctx, payload)
		return true
	})
}

// addSession is a thread-safe operation to register a session.
func (g *Game) addSession(session *Session) {
	g.sessionMutex.Lock()
	g.sessions[session.ID] = session
	g.sessionMutex.Unlock()
	metrics.ActiveSessions.Inc()
}

// removeSession is a thread-safe, idempotent operation to unregister a
// session and close its connection.
func (g *Game) removeSession(session *Session) {
	g.sessionMutex.Lock()
	_, existed := g.sessions[session.ID]
	delete(g.sessions, session.ID)
	g.sessionMutex.Unlock()

	if existed {
		metrics.ActiveSessions.Dec()
	}
	if session.wsConn != nil {
		_ = session.wsConn.CloseNow()
	}
}

// hasSession is a thread-safe check whether a connection is still registered.
func (g *Game) hasSession(id string) bool {
	g.sessionMutex.RLock()
	_, ok := g.sessions[id]
	g.sessionMutex.RUnlock()
	return ok
}

// findSessionByUser is a thread-safe lookup of the session bound to a user.
func (g *Game) findSessionByUser(userID string) (*Session, bool) {
	g.sessionMutex.RLock()
	defer g.sessionMutex.RUnlock()
	for _, session := range g.sessions {
		if session.UserID == userID {
			return session, true
		}
	}
	return nil, false
}

// forEachSession is a thread-safe method to iterate over all session entries.
func (g *Game) forEachSession(f func(session *Session) bool) {
	g.sessionMutex.RLock()
	defer g.sessionMutex.RUnlock()
	for _, session := range g.sessions {
		if next := f(session); !next {
			return
		}
	}
}

// Snapshot returns a point-in-time view of the registry, ordered by
// connection time. The reconciliation and broadcast ticks work off this view.
func (g *Game) Snapshot() []*Session {
	g.sessionMutex.RLock()
	list := make([]*Session, 0, len(g.sessions))
	for _, session := range g.sessions {
		list = append(list, session)
	}
	g.sessionMutex.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].ConnectedAt.Equal(list[j].ConnectedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].ConnectedAt.Before(list[j].ConnectedAt)
	})
	return list
}
