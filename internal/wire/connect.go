package wire

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/outpost-game/outpost/internal/geo"
)

var ProtoVersion = "dev"

// Connect dials the game websocket endpoint, retrying with an exponential
// backoff until the server accepts or maxElapsed passes. It is used by test
// harnesses and by any Go client of the server.
func Connect(ctx context.Context, wsURL string, maxElapsed time.Duration) (*websocket.Conn, error) {
	headers := http.Header{}
	headers.Set("X-Version", ProtoVersion)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed

	var ws *websocket.Conn
	operation := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
			HTTPHeader: headers,
		})
		if err != nil {
			return err
		}
		ws = conn
		return nil
	}

	notify := func(err error, next time.Duration) {
		slog.Warn("Retrying the websocket connection",
			"url", wsURL,
			"nextAttemptIn", next.String(),
			"error", err)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, err
	}
	return ws, nil
}

var _ WebSocketWriter = (*websocket.Conn)(nil)

type WebSocketWriter interface {
	Write(ctx context.Context, messageType websocket.MessageType, payload []byte) error
}

func Write(ctx context.Context, wsConn WebSocketWriter, payload []byte) error {
	return wsConn.Write(ctx, websocket.MessageText, payload)
}

// SendLocation composes and writes an updateLocation report.
func SendLocation(ctx context.Context, wsConn WebSocketWriter, userID string, lon, lat float64) error {
	payload, err := Encode(UpdateLocation{
		Command:  CmdUpdateLocation,
		UserID:   userID,
		Location: geo.NewPoint(lon, lat),
	})
	if err != nil {
		return err
	}
	return Write(ctx, wsConn, payload)
}
