package wire

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/fxamacker/cbor/v2"
	"github.com/outpost-game/outpost/internal/app/logger/logging"
)

var DefaultCodec = NewJSONCodec()

type Codec struct {
	Marshal   func(v any) ([]byte, error)
	Unmarshal func(data []byte, v any) error
}

func NewJSONCodec() *Codec {
	return &Codec{
		Marshal:   json.Marshal,
		Unmarshal: json.Unmarshal,
	}
}

func NewCBORCodec() *Codec {
	return &Codec{
		Marshal:   cbor.Marshal,
		Unmarshal: cbor.Unmarshal,
	}
}

// Compose encodes an outbound command with its params. It panics on a
// marshalling error, which can only happen for non-encodable params types.
func Compose(cmd Command, params any) []byte {
	out, err := Encode(Message{Command: cmd, Params: params})
	if err != nil {
		panic(err)
	}
	return out
}

func Encode(m any) ([]byte, error) {
	out, err := DefaultCodec.Marshal(m)
	if err != nil {
		slog.Error("Could not marshal the websocket message", logging.Error(err))
		return nil, err
	}
	return out, nil
}

// DecodeCommand extracts the command discriminator from an inbound payload.
func DecodeCommand(payload []byte) (Command, error) {
	if len(payload) == 0 {
		return "", io.ErrShortBuffer
	}
	var env Envelope
	if err := DefaultCodec.Unmarshal(payload, &env); err != nil {
		return "", err
	}
	return env.Command, nil
}

// DecodeTyped decodes an inbound payload into the concrete message type.
func DecodeTyped[T any](payload []byte) (m T, err error) {
	if len(payload) == 0 {
		return m, io.ErrShortBuffer
	}
	err = DefaultCodec.Unmarshal(payload, &m)
	return m, err
}
