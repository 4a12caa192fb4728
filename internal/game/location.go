package game

import (
	"context"
	"errors"
	"log/slog"

	"github.com/outpost-game/outpost/internal/app/logger/logging"
	"github.com/outpost-game/outpost/internal/model"
	"github.com/outpost-game/outpost/internal/wire"
)

const (
	errUnknownUser         = "This userId does not correspond to any user."
	errInvalidLocationType = "Invalid location type"
	errInvalidCoordinates  = "Invalid location coordinates"
)

// handleUpdateLocation applies one location report. The first valid report on
// a session binds it to the user after a gateway lookup; later reports only
// move the player, the userId field is ignored once bound.
func (g *Game) handleUpdateLocation(ctx context.Context, session *Session, msg wire.UpdateLocation) {
	if msg.Location.Type != "Point" {
		session.SendError(ctx, errInvalidLocationType)
		return
	}
	if !msg.Location.Valid() {
		slog.Debug("Rejected location report",
			"sessionId", session.ID,
			"coordinates", msg.Location.Coordinates)
		session.SendError(ctx, errInvalidCoordinates)
		return
	}

	if session.Bound() {
		session.Location = msg.Location
		return
	}

	user, err := g.gateway.GetUserByID(ctx, msg.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			slog.Debug("Location report for unknown user",
				"sessionId", session.ID,
				logging.UserID(msg.UserID))
			session.SendError(ctx, errUnknownUser)
			return
		}
		slog.Error("Could not look up user", logging.UserID(msg.UserID), logging.Error(err))
		g.gatewayFailure(ctx, "GetUserByID")
		return
	}

	// A user holds at most one session. A reconnect wins over the stale one.
	if previous, ok := g.findSessionByUser(user.ID); ok && previous.ID != session.ID {
		slog.Info("Replacing session after reconnect",
			logging.UserID(user.ID),
			"oldSessionId", previous.ID,
			"newSessionId", session.ID)
		g.removeSession(previous)
	}

	session.UserID = user.ID
	session.CachedMoney = user.Money
	session.Location = msg.Location

	slog.Info("Session bound",
		"sessionId", session.ID,
		logging.UserID(user.ID),
		"userName", user.Name)
}
