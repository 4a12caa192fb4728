package wire

import (
	"testing"

	"github.com/outpost-game/outpost/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeAndDecodeCommand(t *testing.T) {
	payload := Compose(CmdNotification, NotificationParams{BaseID: "b1", BaseName: "Harbor"})
	assert.JSONEq(t, `{"command":"notification","params":{"baseId":"b1","baseName":"Harbor"}}`, string(payload))

	cmd, err := DecodeCommand(payload)
	require.NoError(t, err)
	assert.Equal(t, CmdNotification, cmd)
}

func TestDecodeTypedUpdateLocation(t *testing.T) {
	payload := []byte(`{"command":"updateLocation","userId":"u1","location":{"type":"Point","coordinates":[6.63,46.52]}}`)

	cmd, err := DecodeCommand(payload)
	require.NoError(t, err)
	require.Equal(t, CmdUpdateLocation, cmd)

	msg, err := DecodeTyped[UpdateLocation](payload)
	require.NoError(t, err)
	assert.Equal(t, "u1", msg.UserID)
	assert.True(t, msg.Location.Valid())
	assert.Equal(t, 6.63, msg.Location.Lon())
}

func TestDecodeCommandErrors(t *testing.T) {
	_, err := DecodeCommand(nil)
	assert.Error(t, err)

	_, err = DecodeCommand([]byte("{not json"))
	assert.Error(t, err)
}

func TestCBORCodecRoundTrip(t *testing.T) {
	codec := NewCBORCodec()

	payload, err := codec.Marshal(UpdateLocation{
		Command:  CmdUpdateLocation,
		UserID:   "u1",
		Location: geo.NewPoint(1, 2),
	})
	require.NoError(t, err)

	var msg UpdateLocation
	require.NoError(t, codec.Unmarshal(payload, &msg))
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, 2.0, msg.Location.Lat())
}
