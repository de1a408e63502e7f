package mediasession_test

import (
	"encoding/json"
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/damione1/paginated-grid/internal/mediasession"
	"github.com/damione1/paginated-grid/internal/models"
)

func TestDecodeEvent(t *testing.T) {
	t.Run("json text frame", func(t *testing.T) {
		data := []byte(`{
			"action": "participant-joined",
			"participant": {
				"session_id": "s1",
				"user_id": "alice",
				"user_name": "Alice",
				"tracks": {"video": {"state": "playable", "subscribed": "staged"}}
			}
		}`)

		event, err := mediasession.DecodeEvent(websocket.MessageText, data)

		require.NoError(t, err)
		assert.Equal(t, models.EventParticipantJoined, event.Action)
		require.NotNil(t, event.Participant)
		assert.Equal(t, "alice", event.Participant.ParticipantID())
		require.NotNil(t, event.Participant.Tracks.Video)
		assert.Equal(t, models.SubscriptionStaged, event.Participant.Tracks.Video.Subscribed)
	})

	t.Run("msgpack binary frame", func(t *testing.T) {
		data, err := msgpack.Marshal(&models.MediaEvent{
			Action:        models.EventActiveSpeakerChange,
			ActiveSpeaker: &models.ActiveSpeaker{PeerID: "bob"},
		})
		require.NoError(t, err)

		event, err := mediasession.DecodeEvent(websocket.MessageBinary, data)

		require.NoError(t, err)
		assert.Equal(t, models.EventActiveSpeakerChange, event.Action)
		require.NotNil(t, event.ActiveSpeaker)
		assert.Equal(t, "bob", event.ActiveSpeaker.PeerID)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := mediasession.DecodeEvent(websocket.MessageText, []byte(`{"action":`))
		assert.Error(t, err)
	})

	t.Run("unsupported frame type", func(t *testing.T) {
		_, err := mediasession.DecodeEvent(websocket.MessageType(99), []byte(`{}`))
		assert.ErrorIs(t, err, mediasession.ErrUnsupportedFrame)
	})
}

func TestEncodeCommand(t *testing.T) {
	data, err := mediasession.EncodeCommand(&models.MediaCommand{
		Type: models.CmdUpdateParticipants,
		Updates: map[string]models.ParticipantUpdate{
			"alice": {SetSubscribedTracks: models.SubscribedTracks{Video: models.SubscriptionSubscribed}},
		},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "update-participants", decoded["type"])
	assert.NotContains(t, decoded, "receiveSettings")
	assert.JSONEq(t, `{"alice":{"setSubscribedTracks":{"video":"subscribed"}}}`, string(mustJSON(t, decoded["updates"])))
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
