package mediasession

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coder/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/damione1/paginated-grid/internal/models"
)

var ErrUnsupportedFrame = errors.New("unsupported websocket frame")

// DecodeEvent decodes one inbound frame: JSON for text frames, msgpack for
// binary frames.
func DecodeEvent(typ websocket.MessageType, data []byte) (*models.MediaEvent, error) {
	var event models.MediaEvent

	switch typ {
	case websocket.MessageText:
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("failed to decode json event: %w", err)
		}
	case websocket.MessageBinary:
		if err := msgpack.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("failed to decode msgpack event: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFrame, typ)
	}

	return &event, nil
}

// EncodeCommand encodes an outbound command as JSON.
func EncodeCommand(cmd *models.MediaCommand) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s command: %w", cmd.Type, err)
	}
	return data, nil
}
