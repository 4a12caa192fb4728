package console

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/outpost-game/outpost/internal/game"
	"github.com/outpost-game/outpost/internal/metrics"
	"github.com/outpost-game/outpost/internal/wire"
)

// HandleWebSocket upgrades the connection and hands it to the game loop as a
// fresh unbound session. The client claims it with its first location report.
func (c *Console) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	version := r.Header.Get("X-Version")
	if version != wire.ProtoVersion {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: c.Config.CORSAllowedOrigins,
	})
	if err != nil {
		metrics.ConnectionErrs.Inc()
		slog.Error("Could not accept the connection",
			"error", err,
			"origin", r.Header.Get("Origin"))
		return
	}
	defer conn.CloseNow()

	session := game.NewSession(uuid.NewString(), conn)
	if err := c.Game.HandleSession(r.Context(), session); err != nil {
		return
	}
}
